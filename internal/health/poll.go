package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Poll when the probe did not pass before the
// deadline.
var ErrTimeout = errors.New("health check did not pass in time")

// PollOptions configures Poll.
type PollOptions struct {
	// Interval between two attempts.
	Interval time.Duration
	// Timeout for the whole poll, attempts included.
	Timeout time.Duration
	// OnAttempt, if set, is called after every attempt.
	OnAttempt func(attempt int, err error)
}

// Poll runs check immediately and then every Interval until it returns nil.
// It returns an error wrapping ErrTimeout and the last probe error when
// Timeout elapses, or ctx.Err() when ctx is cancelled first.
func Poll(ctx context.Context, check func(ctx context.Context) error, opts PollOptions) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for attempt := 1; ; attempt++ {
		last = check(pollCtx)
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt, last)
		}
		if last == nil {
			return nil
		}

		select {
		case <-pollCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w after %s (%d attempts): %v", ErrTimeout, opts.Timeout, attempt, last)
		case <-ticker.C:
		}
	}
}
