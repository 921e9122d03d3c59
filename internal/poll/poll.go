// Package poll drives a bounded polling loop against the progress query
// service until a tracked job reaches a terminal state.
package poll

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
)

const (
	// DefaultInitialWait is the base backoff step when none is configured.
	DefaultInitialWait = 500 * time.Millisecond

	// DefaultMaxWait is the overall polling deadline when none is configured.
	DefaultMaxWait = 30 * time.Minute

	// UnknownErrorMessage is reported for FAILED records carrying no message.
	UnknownErrorMessage = "Unknown error"
)

// ErrTimeout is returned when the deadline elapsed with no terminal
// observation. It means "unknown outcome", never job failure: callers may
// re-poll with a fresh budget, but must not treat it as a failed job.
var ErrTimeout = errors.New("polling deadline elapsed before a terminal state")

// JobError carries the worker-supplied failure message of a FAILED record.
type JobError struct {
	Message string
}

func (e *JobError) Error() string {
	return e.Message
}

// Querier is the read-only view the poller needs. Both query.Service and
// query.HTTPClient satisfy it.
type Querier interface {
	Lookup(ctx context.Context, key domain.ProgressKey) (rec *domain.ProgressRecord, visible bool, err error)
}

// Options configures one polling loop.
type Options struct {
	// InitialWait is the base backoff step. Non-positive values fall back to
	// DefaultInitialWait, so the first sleep is never zero and a query is
	// never issued before the job had any chance to register.
	InitialWait time.Duration

	// MaxWait is the overall wall-clock budget. A non-positive MaxWait is an
	// already-elapsed deadline: the loop returns ErrTimeout without sleeping.
	MaxWait time.Duration

	// Verbose emits a log line per polling iteration.
	Verbose bool
}

// DefaultOptions returns the standard polling configuration.
func DefaultOptions() Options {
	return Options{InitialWait: DefaultInitialWait, MaxWait: DefaultMaxWait}
}

// Waiter polls a querier with linearly increasing, capped backoff.
type Waiter struct {
	querier Querier
	clock   Clock
	logger  *zap.Logger
}

// NewWaiter creates a Waiter. A nil clock uses the system clock.
func NewWaiter(querier Querier, clock Clock, logger *zap.Logger) *Waiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Waiter{querier: querier, clock: clock, logger: logger}
}

// Wait polls until the record under key reaches a terminal state or the
// deadline elapses. Outcomes:
//   - (record, nil) when the job completed; Data is returned unchanged.
//   - (nil, *JobError) when the job failed, carrying the worker's message.
//   - (nil, ErrTimeout) when the deadline elapsed with no terminal state.
//   - (nil, ctx.Err()) when ctx was cancelled during a backoff sleep.
//
// A key not yet visible in the store is treated exactly like a job still
// running: the registration may simply not have happened yet.
func (w *Waiter) Wait(ctx context.Context, key domain.ProgressKey, opts Options) (*domain.ProgressRecord, error) {
	initial := opts.InitialWait
	if initial <= 0 {
		initial = DefaultInitialWait
	}

	start := w.clock.Now()
	deadline := start.Add(opts.MaxWait)

	for i := 1; ; i++ {
		remaining := deadline.Sub(w.clock.Now())
		if remaining <= 0 {
			if opts.Verbose {
				w.logger.Info("Polling deadline elapsed",
					zap.String("progress_key", string(key)),
					zap.Int("iterations", i-1),
					zap.Duration("max_wait", opts.MaxWait),
				)
			}
			return nil, ErrTimeout
		}

		// Clamp the last sleep to the remaining budget so the loop overshoots
		// the deadline by at most one backoff step.
		wait := Interval(initial, i)
		if wait > remaining {
			wait = remaining
		}
		if err := w.clock.Sleep(ctx, wait); err != nil {
			return nil, err
		}

		rec, visible, err := w.querier.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}

		if opts.Verbose {
			state := "not visible"
			if visible {
				state = string(rec.State)
			}
			w.logger.Info("Polled progress record",
				zap.String("progress_key", string(key)),
				zap.Int("iteration", i),
				zap.Duration("waited", wait),
				zap.String("state", state),
			)
		}

		if !visible {
			continue
		}
		switch rec.State {
		case domain.StateCompleted:
			return rec, nil
		case domain.StateFailed:
			msg := UnknownErrorMessage
			if rec.Error != nil && *rec.Error != "" {
				msg = *rec.Error
			}
			return nil, &JobError{Message: msg}
		}
	}
}
