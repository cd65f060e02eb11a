// Package poll waits for asynchronous remote work (workflow executions,
// export jobs) to reach a terminal state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrTimeout = errors.New("poll: gave up before reaching a terminal state")

type Options struct {
	Interval    time.Duration
	MaxAttempts int
	// StopOnError makes a check error end polling immediately. Otherwise
	// errors count as a non-terminal attempt.
	StopOnError bool
	Name        string
}

func DefaultOptions() Options {
	return Options{
		Interval:    2 * time.Second,
		MaxAttempts: 30,
		StopOnError: true,
	}
}

// CheckFunc reports whether the awaited state is terminal. The returned
// value is handed back by Until once done is true.
type CheckFunc[T any] func(ctx context.Context, attempt int) (value T, done bool, err error)

// Until calls check until it reports done, the attempts run out or ctx is
// cancelled. The first check runs immediately.
func Until[T any](ctx context.Context, opts Options, check CheckFunc[T]) (T, error) {
	var zero T

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		value, done, err := check(ctx, attempt)
		if err != nil {
			if opts.StopOnError {
				return zero, err
			}

			lastErr = err
			log.Debug().Err(err).Str("poll", opts.Name).Int("attempt", attempt).Msg("Poll check failed")
		} else if done {
			return value, nil
		}

		if attempt == opts.MaxAttempts {
			break
		}

		timer := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr != nil {
		return zero, fmt.Errorf("%w after %d attempts: %w", ErrTimeout, opts.MaxAttempts, lastErr)
	}

	return zero, fmt.Errorf("%w after %d attempts", ErrTimeout, opts.MaxAttempts)
}
