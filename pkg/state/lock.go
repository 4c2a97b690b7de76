package state

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const lockRetryWait = 25 * time.Millisecond

// ErrLockTimeout is returned when the context ends while waiting for a
// session lock.
var ErrLockTimeout = errors.New("timed out waiting for session lock")

func waitForLock(ctx context.Context, lockPath string) error {
	timer := time.NewTimer(lockRetryWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrLockTimeout, lockPath, ctx.Err())
	case <-timer.C:
		return nil
	}
}
