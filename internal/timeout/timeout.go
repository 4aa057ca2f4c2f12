// Package timeout runs a single cancellable operation under a deadline.
//
// The operation receives a context that is done when either the timeout
// elapses or the caller's context is done. Run reports which of the two
// ended the operation so callers can tell their own cancellation apart
// from a timeout:
//
//	resp, err := timeout.Run(ctx, 500*time.Millisecond, func(ctx context.Context) ([]byte, error) {
//	    return exchange(ctx, conn)
//	})
//	switch {
//	case errors.Is(err, timeout.ErrTimeout):
//	    // attempt took too long
//	case ctx.Err() != nil:
//	    // caller gave up
//	}
//
// Run never retries.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the operation did not finish within the timeout
// and the caller's context was still live.
var ErrTimeout = errors.New("timeout: operation timed out")

// Run executes op with a context bounded by timeout and by ctx.
//
// Exactly one outcome is reported:
//   - op returns without error: its result is returned unchanged.
//   - ctx is done: the caller's cancellation cause is returned. This is
//     checked first, so a caller cancellation wins over a timeout that fired
//     at the same time.
//   - the timeout fired: ErrTimeout wrapping whatever op returned.
//
// Any other error from op is returned as is.
func Run[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	opCtx, cancel := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer cancel()

	result, err := op(opCtx)
	if err == nil {
		return result, nil
	}

	if ctx.Err() != nil {
		return zero, fmt.Errorf("cancelled by caller: %w", context.Cause(ctx))
	}

	if errors.Is(context.Cause(opCtx), ErrTimeout) {
		return zero, fmt.Errorf("%w after %v: %w", ErrTimeout, timeout, err)
	}

	return zero, err
}

// Do is Run for operations without a result.
func Do(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	_, err := Run(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
