package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/store"
)

// Ensure Store implements store.ProgressStore.
var _ store.ProgressStore = (*Store)(nil)

const keyPrefix = "beacon:progress:"

// Store is a Redis-backed progress store. Records are stored as JSON under
// a prefixed key; terminal records expire after the configured retention.
type Store struct {
	client    *goredis.Client
	retention time.Duration
}

// New creates a Redis-backed store. Terminal records expire after retention;
// a non-positive retention keeps them until Redis evicts them itself.
func New(client *goredis.Client, retention time.Duration) *Store {
	return &Store{client: client, retention: retention}
}

func redisKey(key domain.ProgressKey) string {
	return keyPrefix + string(key)
}

func (s *Store) Register(ctx context.Context, key domain.ProgressKey) error {
	body, err := json.Marshal(domain.ProgressRecord{State: domain.StateStarted})
	if err != nil {
		return fmt.Errorf("redis: marshal record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisKey(key), body, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: register: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key domain.ProgressKey, patch domain.Patch) error {
	rkey := redisKey(key)

	// Watch gives us a check-and-set update: the transaction aborts if
	// the record changed between read and write.
	txn := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, rkey).Bytes()
		if errors.Is(err, goredis.Nil) {
			return domain.ErrUnknownKey
		}
		if err != nil {
			return fmt.Errorf("redis: read record: %w", err)
		}

		var rec domain.ProgressRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("redis: decode record: %w", err)
		}
		if rec.State.IsTerminal() {
			return domain.ErrAlreadyTerminal
		}

		updated, err := patch.Apply(rec)
		if err != nil {
			return err
		}
		body, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("redis: marshal record: %w", err)
		}

		var expiry time.Duration
		if updated.State.IsTerminal() && s.retention > 0 {
			expiry = s.retention
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, rkey, body, expiry)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, rkey)
	if errors.Is(err, goredis.TxFailedErr) {
		// Concurrent writers to the same key are a programming error;
		// surface it as a conflicting update rather than racing silently.
		return domain.ErrAlreadyTerminal
	}
	return err
}

func (s *Store) Get(ctx context.Context, key domain.ProgressKey) (*domain.ProgressRecord, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrUnknownKey
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get record: %w", err)
	}

	rec := &domain.ProgressRecord{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("redis: decode record: %w", err)
	}
	return rec, nil
}
