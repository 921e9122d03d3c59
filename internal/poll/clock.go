package poll

import (
	"context"
	"time"
)

// Clock abstracts time so the polling loop is testable without real sleeps.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that
	// case. The timer is always released; a cancelled sleep never leaks.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real-time Clock used outside of tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
