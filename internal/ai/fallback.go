package ai

import "context"

// Source records which path produced a value.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Outcome is the result of a two-stage AI call.
type Outcome[T any] struct {
	Value  T
	Source Source
	// Err is the primary-path failure, if any. It is informational; Value is
	// always usable.
	Err error
}

// WithFallback runs primary and, on any error, the deterministic fallback.
// It is the single failure boundary for AI-assisted operations.
func WithFallback[T any](ctx context.Context, primary func(context.Context) (T, error), fallback func() T) Outcome[T] {
	if primary != nil {
		v, err := primary(ctx)
		if err == nil {
			return Outcome[T]{Value: v, Source: SourceAI}
		}
		return Outcome[T]{Value: fallback(), Source: SourceFallback, Err: err}
	}
	return Outcome[T]{Value: fallback(), Source: SourceFallback, Err: ErrDisabled}
}
