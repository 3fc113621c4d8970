// Package version exposes the scribe release version, embedded from the
// VERSION file at build time so the binary carries it without linker flags.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Get returns the release version string.
func Get() string {
	return strings.TrimSpace(raw)
}
