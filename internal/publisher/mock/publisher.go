package mock

import (
	"context"
	"sync"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/publisher"
)

// Ensure MockPublisher implements publisher.Publisher.
var _ publisher.Publisher = (*MockPublisher)(nil)

// MockPublisher records published messages in memory for testing.
type MockPublisher struct {
	mu        sync.Mutex
	Published []*domain.JobMessage

	// PublishFn, when set, overrides Publish for error injection.
	PublishFn func(ctx context.Context, msg *domain.JobMessage) error
}

// NewMockPublisher creates an empty MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, msg *domain.JobMessage) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, msg)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
