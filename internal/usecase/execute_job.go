package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/registry"
	"github.com/harborai/beacon/internal/track"
)

// ExecuteJobUsecase runs one consumed job and writes its terminal record.
type ExecuteJobUsecase struct {
	tracker  *track.Tracker
	registry *registry.Registry
	logger   *zap.Logger
}

// NewExecuteJobUsecase creates a new ExecuteJobUsecase.
func NewExecuteJobUsecase(tracker *track.Tracker, reg *registry.Registry, logger *zap.Logger) *ExecuteJobUsecase {
	return &ExecuteJobUsecase{
		tracker:  tracker,
		registry: reg,
		logger:   logger,
	}
}

// Execute resolves the handler for the message's job type, runs it and writes
// the terminal record exactly once. The record was registered by the
// submitter; this worker adopts it as its sole writer.
func (uc *ExecuteJobUsecase) Execute(ctx context.Context, msg *domain.JobMessage) error {
	job := uc.tracker.Adopt(msg.ProgressKey)

	handler, err := uc.registry.Resolve(msg.Type)
	if err != nil {
		uc.logger.Error("No handler for job type",
			zap.String("progress_key", string(msg.ProgressKey)),
			zap.String("type", msg.Type),
		)
		if failErr := job.Fail(ctx, "no handler registered for job type "+msg.Type); failErr != nil {
			return failErr
		}
		return err
	}

	data, err := handler(ctx, msg.Payload)
	if err != nil {
		uc.logger.Warn("Job handler failed",
			zap.String("progress_key", string(msg.ProgressKey)),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
		if failErr := job.Fail(ctx, err.Error()); failErr != nil {
			// A terminal record already present means another writer raced
			// us, which is a worker bug worth surfacing loudly.
			if errors.Is(failErr, domain.ErrAlreadyTerminal) {
				uc.logger.Error("Terminal record written twice",
					zap.String("progress_key", string(msg.ProgressKey)))
			}
			return failErr
		}
		return nil
	}

	if err := job.Complete(ctx, data); err != nil {
		uc.logger.Error("Failed to record completion",
			zap.String("progress_key", string(msg.ProgressKey)), zap.Error(err))
		return err
	}
	return nil
}
