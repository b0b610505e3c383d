// Package analysis turns a portfolio into a prompt and asks a language model about it.
package analysis

import (
	"context"
	"errors"
)

// FallbackText is shown whenever no analysis could be produced.
const FallbackText = "The AI analysis is not available right now. Your figures above are up to date; try again in a moment."

// ErrDisabled is returned by Disabled. Callers treat it like any other failure.
var ErrDisabled = errors.New("analysis disabled: no API key configured")

// Analyzer answers a freeform prompt with freeform text.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Disabled is used when no model is configured.
type Disabled struct{}

func (Disabled) Analyze(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, prompt string) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
