// Package query exposes non-blocking point reads over the progress store.
package query

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/store"
)

// Service answers "what is the current state of key K" in O(1).
// It never blocks on job completion: an unknown or not-yet-visible key is a
// normal outcome (visible == false), not an error.
type Service struct {
	store  store.ProgressStore
	logger *zap.Logger
}

// NewService creates a store-backed query service.
func NewService(st store.ProgressStore, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Lookup returns the current record for key. visible is false when the key is
// unknown to the store; err is reserved for infrastructure failures.
func (s *Service) Lookup(ctx context.Context, key domain.ProgressKey) (rec *domain.ProgressRecord, visible bool, err error) {
	rec, err = s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrUnknownKey) {
		s.logger.Debug("Progress key not visible", zap.String("progress_key", string(key)))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
