package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptTimeout marks an attempt cut off by WithTimeout rather than by
// the caller's context. It wraps context.DeadlineExceeded.
var ErrAttemptTimeout = fmt.Errorf("attempt timed out: %w", context.DeadlineExceeded)

// WithTimeout runs fn under its own deadline. fn must honor its context;
// it is not abandoned. A non-positive timeout runs fn on ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(attemptCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", name, ctx.Err())
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s after %s: %w", name, timeout, ErrAttemptTimeout)
	default:
		return err
	}
}
