package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	mockpub "github.com/harborai/beacon/internal/publisher/mock"
	"github.com/harborai/beacon/internal/registry"
	"github.com/harborai/beacon/internal/store/memory"
	"github.com/harborai/beacon/internal/track"
)

func newMemoryStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New(time.Hour, zap.NewNop())
	t.Cleanup(st.Close)
	return st
}

func TestSubmitJob_Success(t *testing.T) {
	st := newMemoryStore(t)
	pub := mockpub.NewMockPublisher()
	logger := zap.NewNop()

	uc := NewSubmitJobUsecase(st, pub, logger)

	resp, err := uc.Execute(context.Background(), &domain.Submission{
		Type:    "project.export",
		Payload: json.RawMessage(`{"project_id":"p-42"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ProgressKey == "" {
		t.Fatal("expected non-empty progress key")
	}

	// The record exists in STARTED state before any worker touched it.
	rec, err := st.Get(context.Background(), resp.ProgressKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.State != domain.StateStarted {
		t.Errorf("expected STARTED, got %s", rec.State)
	}

	if len(pub.Published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.Published))
	}
	msg := pub.Published[0]
	if msg.ProgressKey != resp.ProgressKey {
		t.Errorf("published key %s does not match response key %s", msg.ProgressKey, resp.ProgressKey)
	}
	if msg.Type != "project.export" {
		t.Errorf("expected type project.export, got %s", msg.Type)
	}
}

func TestSubmitJob_EmptyType(t *testing.T) {
	st := newMemoryStore(t)
	pub := mockpub.NewMockPublisher()

	uc := NewSubmitJobUsecase(st, pub, zap.NewNop())

	_, err := uc.Execute(context.Background(), &domain.Submission{Type: "   "})
	if !errors.Is(err, domain.ErrEmptyJobType) {
		t.Errorf("expected ErrEmptyJobType, got %v", err)
	}
	if len(pub.Published) != 0 {
		t.Error("invalid submission must not publish")
	}
}

func TestSubmitJob_PayloadTooLarge(t *testing.T) {
	st := newMemoryStore(t)
	pub := mockpub.NewMockPublisher()

	uc := NewSubmitJobUsecase(st, pub, zap.NewNop())

	large := make([]byte, maxPayloadSize+1)
	for i := range large {
		large[i] = 'x'
	}
	// Wrap in quotes so the payload stays valid JSON.
	large[0], large[len(large)-1] = '"', '"'

	_, err := uc.Execute(context.Background(), &domain.Submission{
		Type:    "project.import",
		Payload: large,
	})
	if !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestSubmitJob_PublishFailureFailsRecord(t *testing.T) {
	st := newMemoryStore(t)
	pub := mockpub.NewMockPublisher()

	var captured domain.ProgressKey
	pub.PublishFn = func(_ context.Context, msg *domain.JobMessage) error {
		captured = msg.ProgressKey
		return errors.New("connection refused")
	}

	uc := NewSubmitJobUsecase(st, pub, zap.NewNop())

	_, err := uc.Execute(context.Background(), &domain.Submission{Type: "deployment.create"})
	if !errors.Is(err, domain.ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	// The record must be FAILED so pollers don't wait out their full budget
	// on a job that will never run.
	rec, err := st.Get(context.Background(), captured)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.State != domain.StateFailed {
		t.Errorf("expected FAILED record after publish failure, got %s", rec.State)
	}
	if rec.Error == nil {
		t.Error("expected failure reason on record")
	}
}

func TestExecuteJob_Success(t *testing.T) {
	st := newMemoryStore(t)
	ctx := context.Background()
	tracker := track.NewTracker(st, zap.NewNop())

	reg := registry.New()
	reg.Register("table.generate", func(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"columns":8}`), nil
	})

	uc := NewExecuteJobUsecase(tracker, reg, zap.NewNop())

	key := domain.ProgressKey("k1")
	if err := st.Register(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := uc.Execute(ctx, &domain.JobMessage{ProgressKey: key, Type: "table.generate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := st.Get(ctx, key)
	if rec.State != domain.StateCompleted {
		t.Errorf("expected COMPLETED, got %s", rec.State)
	}
	if string(rec.Data) != `{"columns":8}` {
		t.Errorf("expected handler result stored, got %s", rec.Data)
	}
}

func TestExecuteJob_HandlerErrorFailsRecord(t *testing.T) {
	st := newMemoryStore(t)
	ctx := context.Background()
	tracker := track.NewTracker(st, zap.NewNop())

	reg := registry.New()
	reg.Register("project.import", func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("archive corrupted")
	})

	uc := NewExecuteJobUsecase(tracker, reg, zap.NewNop())

	key := domain.ProgressKey("k1")
	if err := st.Register(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A job-level failure is recorded, not returned: the message is handled.
	if err := uc.Execute(ctx, &domain.JobMessage{ProgressKey: key, Type: "project.import"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := st.Get(ctx, key)
	if rec.State != domain.StateFailed {
		t.Errorf("expected FAILED, got %s", rec.State)
	}
	if rec.Error == nil || *rec.Error != "archive corrupted" {
		t.Errorf("expected handler error message, got %v", rec.Error)
	}
}

func TestExecuteJob_UnknownType(t *testing.T) {
	st := newMemoryStore(t)
	ctx := context.Background()
	tracker := track.NewTracker(st, zap.NewNop())

	uc := NewExecuteJobUsecase(tracker, registry.New(), zap.NewNop())

	key := domain.ProgressKey("k1")
	if err := st.Register(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := uc.Execute(ctx, &domain.JobMessage{ProgressKey: key, Type: "nope"})
	if !errors.Is(err, domain.ErrUnknownJobType) {
		t.Errorf("expected ErrUnknownJobType, got %v", err)
	}

	// The record still reaches FAILED so pollers see a terminal outcome.
	rec, _ := st.Get(ctx, key)
	if rec.State != domain.StateFailed {
		t.Errorf("expected FAILED, got %s", rec.State)
	}
}
