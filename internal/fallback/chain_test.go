package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTimeout = errors.New("request timed out")

func TestFirstSuccess_ShortCircuits(t *testing.T) {
	thirdCalled := false
	steps := []Step[int]{
		{Name: "primary", Call: func(ctx context.Context) (int, error) { return 0, errors.New("503") }},
		{Name: "secondary", Call: func(ctx context.Context) (int, error) { return 42, nil }},
		{Name: "tertiary", Call: func(ctx context.Context) (int, error) { thirdCalled = true; return 7, nil }},
	}

	result, err := FirstSuccess(context.Background(), "test", steps, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, result.Value)
	assert.Equal(t, "secondary", result.Provider)
	assert.Len(t, result.Failed, 1)
	assert.False(t, thirdCalled)
}

func TestFirstSuccess_RejectedValueFallsThrough(t *testing.T) {
	steps := []Step[int]{
		{Name: "empty", Call: func(ctx context.Context) (int, error) { return 0, nil }},
		{Name: "full", Call: func(ctx context.Context) (int, error) { return 3, nil }},
	}

	result, err := FirstSuccess(context.Background(), "test", steps, func(v int) bool { return v != 0 })
	require.NoError(t, err)
	assert.Equal(t, "full", result.Provider)
	assert.ErrorIs(t, result.Failed[0].Err, ErrEmpty)
}

func TestFirstSuccess_ExhaustedCarriesEveryReason(t *testing.T) {
	steps := []Step[int]{
		{Name: "finnhub", Call: func(ctx context.Context) (int, error) { return 0, errors.New("HTTP 429") }},
		{Name: "yahoo", Call: func(ctx context.Context) (int, error) { return 0, errTimeout }},
		{Name: "eodhd", Call: func(ctx context.Context) (int, error) { return 0, errors.New("invalid api key") }},
	}

	_, err := FirstSuccess(context.Background(), "price target", steps, nil)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "finnhub: HTTP 429")
	assert.Contains(t, msg, "yahoo: request timed out")
	assert.Contains(t, msg, "eodhd: invalid api key")
	assert.ErrorIs(t, err, errTimeout)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Attempts, 3)
}

func TestFirstSuccess_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	steps := []Step[int]{
		{Name: "primary", Call: func(ctx context.Context) (int, error) { called = true; return 1, nil }},
	}

	_, err := FirstSuccess(ctx, "test", steps, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
