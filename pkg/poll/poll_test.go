package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(maxAttempts int) Options {
	return Options{Interval: time.Millisecond, MaxAttempts: maxAttempts, StopOnError: true}
}

func TestUntil_ReturnsValueWhenDone(t *testing.T) {
	calls := 0

	value, err := Until(context.Background(), fastOptions(5), func(ctx context.Context, attempt int) (string, bool, error) {
		calls++
		return "finished", attempt == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "finished", value)
	assert.Equal(t, 3, calls)
}

func TestUntil_TimesOut(t *testing.T) {
	calls := 0

	_, err := Until(context.Background(), fastOptions(4), func(ctx context.Context, attempt int) (int, bool, error) {
		calls++
		return 0, false, nil
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 4, calls)
}

func TestUntil_StopOnError(t *testing.T) {
	boom := errors.New("boom")

	_, err := Until(context.Background(), fastOptions(5), func(ctx context.Context, attempt int) (int, bool, error) {
		return 0, false, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestUntil_ToleratesErrorsWhenConfigured(t *testing.T) {
	boom := errors.New("flaky")
	opts := fastOptions(5)
	opts.StopOnError = false

	value, err := Until(context.Background(), opts, func(ctx context.Context, attempt int) (int, bool, error) {
		if attempt < 3 {
			return 0, false, boom
		}
		return attempt, true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, value)

	_, err = Until(context.Background(), opts, func(ctx context.Context, attempt int) (int, bool, error) {
		return 0, false, boom
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, boom)
}

func TestUntil_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	opts := Options{Interval: time.Hour, MaxAttempts: 3}

	_, err := Until(ctx, opts, func(ctx context.Context, attempt int) (int, bool, error) {
		cancel()
		return 0, false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
