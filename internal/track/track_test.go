package track

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/store/memory"
)

func newTestTracker(t *testing.T) (*Tracker, *memory.Store) {
	t.Helper()
	st := memory.New(time.Hour, zap.NewNop())
	t.Cleanup(st.Close)
	return NewTracker(st, zap.NewNop()), st
}

func TestBegin_RegistersStartedRecord(t *testing.T) {
	tracker, st := newTestTracker(t)
	ctx := context.Background()

	key, job, err := tracker.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key == "" {
		t.Fatal("expected non-empty key")
	}
	if job.Key() != key {
		t.Errorf("handle key %s does not match returned key %s", job.Key(), key)
	}

	rec, err := st.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.State != domain.StateStarted {
		t.Errorf("expected STARTED, got %s", rec.State)
	}
}

func TestComplete_WritesTerminalRecord(t *testing.T) {
	tracker, st := newTestTracker(t)
	ctx := context.Background()

	key, job, err := tracker.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := json.RawMessage(`{"imported":128}`)
	if err := job.Complete(ctx, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := st.Get(ctx, key)
	if rec.State != domain.StateCompleted {
		t.Errorf("expected COMPLETED, got %s", rec.State)
	}
	if string(rec.Data) != `{"imported":128}` {
		t.Errorf("expected data stored, got %s", rec.Data)
	}

	// The terminal write happens exactly once.
	if err := job.Fail(ctx, "late"); !errors.Is(err, domain.ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal on second terminal write, got %v", err)
	}
}

func TestFail_CarriesMessage(t *testing.T) {
	tracker, st := newTestTracker(t)
	ctx := context.Background()

	key, job, err := tracker.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := job.Fail(ctx, "disk full"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := st.Get(ctx, key)
	if rec.State != domain.StateFailed {
		t.Errorf("expected FAILED, got %s", rec.State)
	}
	if rec.Error == nil || *rec.Error != "disk full" {
		t.Errorf("expected error 'disk full', got %v", rec.Error)
	}

	if err := job.Complete(ctx, nil); !errors.Is(err, domain.ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal on second terminal write, got %v", err)
	}
}

func TestSetData_KeepsStateStarted(t *testing.T) {
	tracker, st := newTestTracker(t)
	ctx := context.Background()

	key, job, err := tracker.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := job.SetData(ctx, json.RawMessage(`{"step":"uploading"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := st.Get(ctx, key)
	if rec.State != domain.StateStarted {
		t.Errorf("milestone update must not change state, got %s", rec.State)
	}
	if string(rec.Data) != `{"step":"uploading"}` {
		t.Errorf("expected milestone data, got %s", rec.Data)
	}
}

func TestGo_CompletesFromResult(t *testing.T) {
	tracker, st := newTestTracker(t)
	ctx := context.Background()

	done := make(chan struct{})
	key, err := tracker.Go(ctx, func(_ context.Context) (json.RawMessage, error) {
		defer close(done)
		return json.RawMessage(`{"ok":true}`), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-done

	// The record becomes terminal shortly after the function returns.
	deadline := time.Now().Add(time.Second)
	for {
		rec, err := st.Get(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.State == domain.StateCompleted {
			if string(rec.Data) != `{"ok":true}` {
				t.Errorf("expected result data, got %s", rec.Data)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("record never completed, state %s", rec.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGo_FailsFromError(t *testing.T) {
	tracker, st := newTestTracker(t)
	ctx := context.Background()

	done := make(chan struct{})
	key, err := tracker.Go(ctx, func(_ context.Context) (json.RawMessage, error) {
		defer close(done)
		return nil, errors.New("model artifact missing")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-done

	deadline := time.Now().Add(time.Second)
	for {
		rec, err := st.Get(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.State == domain.StateFailed {
			if rec.Error == nil || *rec.Error != "model artifact missing" {
				t.Errorf("expected handler error message, got %v", rec.Error)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("record never failed, state %s", rec.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
