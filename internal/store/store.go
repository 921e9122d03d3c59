package store

import (
	"context"

	"github.com/harborai/beacon/internal/domain"
)

// ProgressStore maps progress keys to their current records.
// Implementations must be safe for concurrent use: many readers per key,
// and exactly one writer (the job owning that key).
type ProgressStore interface {
	// Register creates a record in STARTED state.
	// Returns domain.ErrDuplicateKey if the key already exists.
	Register(ctx context.Context, key domain.ProgressKey) error

	// Update applies a partial update to an existing, non-terminal record.
	// Returns domain.ErrUnknownKey if the key is absent and
	// domain.ErrAlreadyTerminal if the record already reached a terminal state.
	Update(ctx context.Context, key domain.ProgressKey, patch domain.Patch) error

	// Get is a non-blocking point read. It never waits for job completion.
	// Returns domain.ErrUnknownKey if the key is absent.
	Get(ctx context.Context, key domain.ProgressKey) (*domain.ProgressRecord, error)
}
