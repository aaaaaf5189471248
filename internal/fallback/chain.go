// Package fallback runs an ordered list of provider attempts and returns
// the first success, collecting every failure on the way.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is returned by a provider whose call succeeded but carried no usable data
var ErrEmpty = errors.New("no data returned")

// Attempt records one failed provider call
type Attempt struct {
	Provider string
	Err      error
}

// ExhaustedError is returned when every provider in a chain failed
type ExhaustedError struct {
	Chain    string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: no providers configured", e.Chain)
	}
	return fmt.Sprintf("%s: all providers failed: %s", e.Chain, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error to errors.Is and errors.As
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Step is one named provider call in a chain
type Step[T any] struct {
	Name string
	Call func(ctx context.Context) (T, error)
}

// Result carries the winning value and the provider that produced it
type Result[T any] struct {
	Value    T
	Provider string
	Failed   []Attempt // Providers tried before the winner
}

// FirstSuccess tries steps in order and returns the first one whose call
// returns a nil error and passes accept (nil accept takes any value).
// A rejected value counts as a failure with ErrEmpty. Context
// cancellation stops the chain early.
func FirstSuccess[T any](ctx context.Context, chain string, steps []Step[T], accept func(T) bool) (Result[T], error) {
	var failed []Attempt

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			failed = append(failed, Attempt{Provider: step.Name, Err: err})
			break
		}

		value, err := step.Call(ctx)
		if err == nil && accept != nil && !accept(value) {
			err = ErrEmpty
		}
		if err != nil {
			failed = append(failed, Attempt{Provider: step.Name, Err: err})
			continue
		}

		return Result[T]{Value: value, Provider: step.Name, Failed: failed}, nil
	}

	return Result[T]{Failed: failed}, &ExhaustedError{Chain: chain, Attempts: failed}
}
