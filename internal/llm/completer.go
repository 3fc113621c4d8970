// Package llm provides the LLM completion capability consumed by the
// orchestration pipeline, backed by the Anthropic API.
package llm

import "context"

// Completer is the single-call completion capability the pipeline depends on.
// Each call is stateless: one user prompt in, one text completion out.
// Components receive a Completer by injection, never from ambient state.
type Completer interface {
	// Complete sends one user-role prompt and returns the text completion.
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
