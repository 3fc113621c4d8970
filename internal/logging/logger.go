// Package logging provides the file-backed logger used across the
// orchestration pipeline. Log output goes to a rotated file so that
// pipeline diagnostics never interleave with the script printed on stdout.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a standard logger with a verbosity gate.
type Logger struct {
	mu      sync.Mutex
	logger  *log.Logger
	verbose bool
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the singleton logger, creating it on first use.
// The verbose flag can be changed on subsequent calls.
func Get(verbose bool) *Logger {
	once.Do(func() {
		globalLogger = New(defaultLogPath(), verbose)
	})
	globalLogger.SetVerbose(verbose)
	return globalLogger
}

// New creates a logger writing to the given file path with rotation.
// An empty path sends output to stderr (used in tests).
func New(path string, verbose bool) *Logger {
	var w io.Writer
	if path == "" {
		w = os.Stderr
	} else {
		w = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return &Logger{
		logger:  log.New(w, "", log.LstdFlags),
		verbose: verbose,
	}
}

// SetVerbose toggles debug output.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// Infof logs an informational message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.logger.Printf("INFO "+format, v...)
}

// Warnf logs a warning.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logger.Printf("WARN "+format, v...)
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logger.Printf("ERROR "+format, v...)
}

// Error logs an error value.
func (l *Logger) Error(err error) {
	l.logger.Printf("ERROR %s", err)
}

// Debugf logs a message only when verbose output is enabled.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.mu.Lock()
	verbose := l.verbose
	l.mu.Unlock()
	if !verbose {
		return
	}
	l.logger.Printf("DEBUG "+format, v...)
}

// Close releases the underlying rotated file, if any.
func (l *Logger) Close() error {
	if f, ok := l.logger.Writer().(*lumberjack.Logger); ok {
		return f.Close()
	}
	return nil
}

// defaultLogPath returns the XDG state path for the scribe log file.
func defaultLogPath() string {
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		return filepath.Join(stateDir, "scribe", "scribe.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".scribe", "scribe.log")
	}
	return filepath.Join(home, ".local", "state", "scribe", "scribe.log")
}

// Discard returns a logger that drops all output. Useful in tests that
// assert on behavior rather than log content.
func Discard() *Logger {
	return &Logger{logger: log.New(io.Discard, "", 0)}
}
