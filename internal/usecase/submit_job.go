package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/publisher"
	"github.com/harborai/beacon/internal/store"
)

const maxPayloadSize = 1 << 20 // 1 MB

// SubmitJobUsecase accepts a job submission, registers its progress record
// and hands the work to the broker. The returned progress key is what callers
// poll until a terminal outcome.
type SubmitJobUsecase struct {
	store     store.ProgressStore
	publisher publisher.Publisher
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase.
func NewSubmitJobUsecase(st store.ProgressStore, pub publisher.Publisher, logger *zap.Logger) *SubmitJobUsecase {
	return &SubmitJobUsecase{
		store:     st,
		publisher: pub,
		logger:    logger,
	}
}

// Execute validates the submission, registers a STARTED record under a fresh
// key, publishes the job, and returns the key.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, sub *domain.Submission) (*domain.SubmitResponse, error) {
	if strings.TrimSpace(sub.Type) == "" {
		return nil, domain.ErrEmptyJobType
	}
	if len(sub.Payload) > maxPayloadSize {
		return nil, domain.ErrPayloadTooLarge
	}

	key, err := domain.NewProgressKey()
	if err != nil {
		return nil, fmt.Errorf("generate progress key: %w", err)
	}

	if err := uc.store.Register(ctx, key); err != nil {
		uc.logger.Error("Failed to register progress record",
			zap.Error(err), zap.String("progress_key", string(key)))
		return nil, fmt.Errorf("register progress record: %w", err)
	}

	msg := &domain.JobMessage{
		ProgressKey: key,
		Type:        sub.Type,
		Payload:     sub.Payload,
	}
	if err := uc.publisher.Publish(ctx, msg); err != nil {
		uc.logger.Error("Failed to publish job to queue",
			zap.Error(err), zap.String("progress_key", string(key)))
		// The job will never run; fail its record so pollers don't wait out
		// their full budget.
		failed := domain.StateFailed
		reason := "job could not be queued for execution"
		_ = uc.store.Update(ctx, key, domain.Patch{State: &failed, Error: &reason})
		return nil, domain.ErrPublishFailed
	}

	uc.logger.Info("Job submitted",
		zap.String("progress_key", string(key)),
		zap.String("type", sub.Type),
	)

	return &domain.SubmitResponse{ProgressKey: key}, nil
}
