// Package fallback runs ordered alternatives until one succeeds and polls
// long-running jobs to a terminal state.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Strategy is one named way of producing a T
type Strategy[T any] struct {
	Name string
	Try  func(ctx context.Context) (T, error)
}

// Chain tries each strategy in order and returns the first success
type Chain[T any] struct {
	name       string
	strategies []Strategy[T]
}

// NewChain names a chain for logging
func NewChain[T any](name string, strategies ...Strategy[T]) *Chain[T] {
	return &Chain[T]{name: name, strategies: strategies}
}

// Then appends a strategy and returns the chain
func (c *Chain[T]) Then(name string, try func(ctx context.Context) (T, error)) *Chain[T] {
	c.strategies = append(c.strategies, Strategy[T]{Name: name, Try: try})
	return c
}

// Len reports how many strategies the chain holds
func (c *Chain[T]) Len() int {
	return len(c.strategies)
}

// ExhaustedError lists every attempt's failure
type ExhaustedError struct {
	Chain    string
	Attempts []AttemptError
}

// AttemptError is one failed strategy
type AttemptError struct {
	Strategy string
	Err      error
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("all %d strategies for %s failed: %s", len(e.Attempts), e.Chain, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error to errors.Is and errors.As
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// PermanentError stops a chain: the remaining strategies are not tried
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so Run returns it without trying further strategies
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Run returns the first successful result along with the strategy that
// produced it. A cancelled context stops the chain immediately.
func (c *Chain[T]) Run(ctx context.Context) (T, string, error) {
	var zero T
	if len(c.strategies) == 0 {
		return zero, "", fmt.Errorf("chain %s has no strategies", c.name)
	}

	exhausted := &ExhaustedError{Chain: c.name}
	for i, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		slog.Debug("Trying strategy", "chain", c.name, "strategy", s.Name, "attempt", i+1, "of", len(c.strategies))
		out, err := s.Try(ctx)
		if err == nil {
			if i > 0 {
				slog.Info("Fallback strategy succeeded", "chain", c.name, "strategy", s.Name, "attempt", i+1)
			}
			return out, s.Name, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return zero, "", err
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			slog.Warn("Strategy failed permanently", "chain", c.name, "strategy", s.Name, "err", perm.Err)
			return zero, s.Name, perm.Err
		}

		slog.Warn("Strategy failed", "chain", c.name, "strategy", s.Name, "attempt", i+1, "err", err)
		exhausted.Attempts = append(exhausted.Attempts, AttemptError{Strategy: s.Name, Err: err})
	}
	return zero, "", exhausted
}
