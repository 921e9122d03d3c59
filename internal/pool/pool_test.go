package pool

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/registry"
	"github.com/harborai/beacon/internal/store/memory"
	"github.com/harborai/beacon/internal/track"
	"github.com/harborai/beacon/internal/usecase"
)

func newExecuteUC(t *testing.T, reg *registry.Registry) (*usecase.ExecuteJobUsecase, *memory.Store) {
	t.Helper()
	st := memory.New(time.Hour, zap.NewNop())
	t.Cleanup(st.Close)
	tracker := track.NewTracker(st, zap.NewNop())
	return usecase.NewExecuteJobUsecase(tracker, reg, zap.NewNop()), st
}

func delivery(key domain.ProgressKey, jobType string, acked, nacked *atomic.Int32) *domain.Delivery {
	return &domain.Delivery{
		Message: &domain.JobMessage{ProgressKey: key, Type: jobType},
		Ack: func() error {
			acked.Add(1)
			return nil
		},
		Nack: func(requeue bool) error {
			if requeue {
				return errors.New("failed jobs must not be requeued")
			}
			nacked.Add(1)
			return nil
		},
	}
}

func TestWorkerPool_ProcessesAndAcks(t *testing.T) {
	reg := registry.New()
	reg.Register("noop", func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})
	uc, st := newExecuteUC(t, reg)
	ctx := context.Background()

	jobs := make(chan *domain.Delivery, 4)
	p := NewWorkerPool(2, jobs, uc, zap.NewNop())
	p.Start(ctx)

	var acked, nacked atomic.Int32
	keys := []domain.ProgressKey{"a", "b", "c", "d"}
	for _, k := range keys {
		if err := st.Register(ctx, k); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		jobs <- delivery(k, "noop", &acked, &nacked)
	}
	close(jobs)
	p.Stop()

	if got := acked.Load(); got != int32(len(keys)) {
		t.Errorf("expected %d acks, got %d", len(keys), got)
	}
	if got := nacked.Load(); got != 0 {
		t.Errorf("expected no nacks, got %d", got)
	}
	for _, k := range keys {
		rec, err := st.Get(ctx, k)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.State != domain.StateCompleted {
			t.Errorf("key %s: expected COMPLETED, got %s", k, rec.State)
		}
	}
}

func TestWorkerPool_NacksOnInfraError(t *testing.T) {
	// An unknown job type cannot be handled; the message goes to the DLQ.
	uc, st := newExecuteUC(t, registry.New())
	ctx := context.Background()

	jobs := make(chan *domain.Delivery, 1)
	p := NewWorkerPool(1, jobs, uc, zap.NewNop())
	p.Start(ctx)

	var acked, nacked atomic.Int32
	key := domain.ProgressKey("orphan")
	if err := st.Register(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jobs <- delivery(key, "no.such.type", &acked, &nacked)
	close(jobs)
	p.Stop()

	if got := nacked.Load(); got != 1 {
		t.Errorf("expected 1 nack, got %d", got)
	}
	if got := acked.Load(); got != 0 {
		t.Errorf("expected no acks, got %d", got)
	}
}

func TestWorkerPool_HandlerErrorStillAcks(t *testing.T) {
	// A job-level failure is a terminal outcome, not a delivery problem.
	reg := registry.New()
	reg.Register("flaky", func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("upstream returned 502")
	})
	uc, st := newExecuteUC(t, reg)
	ctx := context.Background()

	jobs := make(chan *domain.Delivery, 1)
	p := NewWorkerPool(1, jobs, uc, zap.NewNop())
	p.Start(ctx)

	var acked, nacked atomic.Int32
	key := domain.ProgressKey("flaky-1")
	if err := st.Register(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jobs <- delivery(key, "flaky", &acked, &nacked)
	close(jobs)
	p.Stop()

	if got := acked.Load(); got != 1 {
		t.Errorf("expected 1 ack, got %d", got)
	}
	rec, err := st.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.State != domain.StateFailed {
		t.Errorf("expected FAILED, got %s", rec.State)
	}
}

func TestWorkerPool_StopsOnContextCancel(t *testing.T) {
	uc, _ := newExecuteUC(t, registry.New())
	ctx, cancel := context.WithCancel(context.Background())

	jobs := make(chan *domain.Delivery)
	p := NewWorkerPool(2, jobs, uc, zap.NewNop())
	p.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after context cancellation")
	}
}
