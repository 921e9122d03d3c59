// Package registry maps job types to their handlers on the worker side.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/harborai/beacon/internal/domain"
)

// Handler executes the actual work of one job type. The returned payload is
// stored as the terminal record's data; a returned error marks the job FAILED
// with the error text as the record's message.
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Registry is a thread-safe map from job type to handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a job type, replacing any previous binding.
func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

// Resolve returns the handler for jobType.
func (r *Registry) Resolve(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	if !ok {
		return nil, domain.ErrUnknownJobType
	}
	return h, nil
}

// Types returns the registered job types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// Has reports whether a handler is registered for jobType.
func (r *Registry) Has(jobType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[jobType]
	return ok
}
