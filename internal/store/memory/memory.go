package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/store"
)

// Ensure Store implements store.ProgressStore.
var _ store.ProgressStore = (*Store)(nil)

const janitorInterval = time.Minute

type entry struct {
	record     domain.ProgressRecord
	terminalAt time.Time
}

// Store is an in-memory progress store guarded by a RWMutex.
// Terminal records are retained for the configured TTL so that every
// interested poller can still observe the final state, then evicted by a
// background janitor.
type Store struct {
	mu        sync.RWMutex
	records   map[domain.ProgressKey]*entry
	retention time.Duration
	logger    *zap.Logger
	stop      chan struct{}
	stopOnce  sync.Once
}

// New creates an in-memory store. Terminal records are evicted after retention;
// a non-positive retention keeps them forever.
func New(retention time.Duration, logger *zap.Logger) *Store {
	s := &Store{
		records:   make(map[domain.ProgressKey]*entry),
		retention: retention,
		logger:    logger,
		stop:      make(chan struct{}),
	}
	if retention > 0 {
		go s.janitor()
	}
	return s
}

// Close stops the eviction janitor.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) Register(_ context.Context, key domain.ProgressKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key]; exists {
		return domain.ErrDuplicateKey
	}
	s.records[key] = &entry{
		record: domain.ProgressRecord{State: domain.StateStarted},
	}
	return nil
}

func (s *Store) Update(_ context.Context, key domain.ProgressKey, patch domain.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.records[key]
	if !exists {
		return domain.ErrUnknownKey
	}
	if e.record.State.IsTerminal() {
		return domain.ErrAlreadyTerminal
	}

	updated, err := patch.Apply(e.record)
	if err != nil {
		return err
	}

	e.record = updated
	if updated.State.IsTerminal() {
		e.terminalAt = time.Now()
	}
	return nil
}

func (s *Store) Get(_ context.Context, key domain.ProgressKey) (*domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.records[key]
	if !exists {
		return nil, domain.ErrUnknownKey
	}

	// Copy so callers never alias the stored record.
	rec := e.record
	return &rec, nil
}

// janitor periodically evicts terminal records past the retention TTL.
// Records still in STARTED state are never evicted here: abandonment is a
// policy this store does not infer.
func (s *Store) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired(time.Now())
		}
	}
}

func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, e := range s.records {
		if !e.terminalAt.IsZero() && now.Sub(e.terminalAt) > s.retention {
			delete(s.records, key)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("Evicted expired progress records", zap.Int("count", evicted))
	}
}
