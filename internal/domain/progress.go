package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ProgressState represents the lifecycle state of a tracked job.
type ProgressState string

const (
	StateStarted   ProgressState = "STARTED"
	StateCompleted ProgressState = "COMPLETED"
	StateFailed    ProgressState = "FAILED"
)

// IsTerminal returns true if the state represents a final state.
func (s ProgressState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsValid checks if the state is one of the known lifecycle states.
func (s ProgressState) IsValid() bool {
	switch s {
	case StateStarted, StateCompleted, StateFailed:
		return true
	}
	return false
}

// ProgressKey is an opaque handle identifying one job's tracked lifecycle.
type ProgressKey string

// NewProgressKey generates a fresh, unguessable progress key.
// UUIDv7 keeps the keys time-ordered for operators reading logs.
func NewProgressKey() (ProgressKey, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return ProgressKey(id.String()), nil
}

// ProgressRecord is the current snapshot of one tracked job.
// Error is set if and only if State is FAILED. Data is an opaque,
// job-defined payload this core never interprets.
type ProgressRecord struct {
	State ProgressState   `json:"state"`
	Error *string         `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Validate enforces the record invariants.
func (r *ProgressRecord) Validate() error {
	if !r.State.IsValid() {
		return ErrInvalidState
	}
	if r.Error != nil && r.State != StateFailed {
		return ErrInvalidRecord
	}
	return nil
}

// Patch is a partial update applied to a non-terminal progress record.
// Nil fields are left untouched; Data replaces the previous payload when set.
type Patch struct {
	State *ProgressState
	Error *string
	Data  json.RawMessage
}

// Apply returns a copy of rec with the patch applied. A patch that would
// leave an error message on a non-FAILED record is rejected: the message is
// meaningful only as a failure reason.
func (p Patch) Apply(rec ProgressRecord) (ProgressRecord, error) {
	if p.State != nil {
		rec.State = *p.State
	}
	if p.Error != nil {
		rec.Error = p.Error
	}
	if p.Data != nil {
		rec.Data = p.Data
	}
	if err := rec.Validate(); err != nil {
		return ProgressRecord{}, err
	}
	return rec, nil
}
