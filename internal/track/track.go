// Package track is the worker-side write path for progress records.
package track

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/metrics"
	"github.com/harborai/beacon/internal/store"
)

// Tracker registers progress records for jobs about to run.
type Tracker struct {
	store  store.ProgressStore
	logger *zap.Logger
}

// NewTracker creates a Tracker over the given store.
func NewTracker(st store.ProgressStore, logger *zap.Logger) *Tracker {
	return &Tracker{store: st, logger: logger}
}

// Begin registers a fresh STARTED record and returns its key together with
// the Job handle owning it. The handle is the record's only writer.
func (t *Tracker) Begin(ctx context.Context) (domain.ProgressKey, *Job, error) {
	key, err := domain.NewProgressKey()
	if err != nil {
		return "", nil, err
	}
	if err := t.store.Register(ctx, key); err != nil {
		return "", nil, err
	}
	metrics.ProgressUpdatesTotal.WithLabelValues(string(domain.StateStarted)).Inc()
	t.logger.Debug("Registered progress record", zap.String("progress_key", string(key)))
	return key, &Job{key: key, store: t.store, logger: t.logger}, nil
}

// Adopt returns a Job handle for a key registered elsewhere, e.g. by the API
// server before the submission travelled through the broker. The caller is
// responsible for the single-writer discipline.
func (t *Tracker) Adopt(key domain.ProgressKey) *Job {
	return &Job{key: key, store: t.store, logger: t.logger}
}

// Go registers a record, runs fn in a goroutine and writes the terminal state
// from its result. It returns the key immediately so callers can hand it to
// pollers while the work proceeds.
func (t *Tracker) Go(ctx context.Context, fn func(ctx context.Context) (json.RawMessage, error)) (domain.ProgressKey, error) {
	key, job, err := t.Begin(ctx)
	if err != nil {
		return "", err
	}

	go func() {
		data, err := fn(ctx)
		if err != nil {
			if failErr := job.Fail(ctx, err.Error()); failErr != nil {
				t.logger.Error("Failed to record job failure",
					zap.String("progress_key", string(key)), zap.Error(failErr))
			}
			return
		}
		if err := job.Complete(ctx, data); err != nil {
			t.logger.Error("Failed to record job completion",
				zap.String("progress_key", string(key)), zap.Error(err))
		}
	}()

	return key, nil
}

// Job is the write handle for one progress record. The owning worker calls
// SetData on milestones and Complete or Fail exactly once; the store rejects
// any write past the terminal state.
type Job struct {
	key    domain.ProgressKey
	store  store.ProgressStore
	logger *zap.Logger
}

// Key returns the progress key this handle owns.
func (j *Job) Key() domain.ProgressKey {
	return j.key
}

// SetData records intermediate job-defined metadata without changing state.
func (j *Job) SetData(ctx context.Context, data json.RawMessage) error {
	return j.store.Update(ctx, j.key, domain.Patch{Data: data})
}

// Complete writes the COMPLETED terminal record with the job's result.
func (j *Job) Complete(ctx context.Context, data json.RawMessage) error {
	state := domain.StateCompleted
	if err := j.store.Update(ctx, j.key, domain.Patch{State: &state, Data: data}); err != nil {
		return err
	}
	metrics.ProgressUpdatesTotal.WithLabelValues(string(state)).Inc()
	j.logger.Info("Job completed", zap.String("progress_key", string(j.key)))
	return nil
}

// Fail writes the FAILED terminal record carrying msg.
func (j *Job) Fail(ctx context.Context, msg string) error {
	state := domain.StateFailed
	if err := j.store.Update(ctx, j.key, domain.Patch{State: &state, Error: &msg}); err != nil {
		return err
	}
	metrics.ProgressUpdatesTotal.WithLabelValues(string(state)).Inc()
	j.logger.Info("Job failed",
		zap.String("progress_key", string(j.key)), zap.String("reason", msg))
	return nil
}
