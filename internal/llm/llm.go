// Package llm holds the language model boundary used by the question pipeline.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by completers that have no backing model
var ErrUnavailable = errors.New("language model unavailable")

// Completer turns a prompt into completion text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Unavailable is used when no API key is configured; every stage of the
// pipeline then falls back to its default.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

var (
	_ Completer = CompleterFunc(nil)
	_ Completer = Unavailable{}
)
