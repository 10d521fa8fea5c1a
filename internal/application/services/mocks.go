package services

import (
	"context"
	"sync"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/domain"
)

// MockPublisher records published confirmations; PublishFn can inject
// broker failures.
type MockPublisher struct {
	mu        sync.Mutex
	published []domain.Confirmation

	PublishFn func(ctx context.Context, confirmation domain.Confirmation) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, confirmation domain.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishFn != nil {
		if err := m.PublishFn(ctx, confirmation); err != nil {
			return err
		}
	}
	m.published = append(m.published, confirmation)
	return nil
}

func (m *MockPublisher) Published() []domain.Confirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Confirmation, len(m.published))
	copy(out, m.published)
	return out
}

// MockUnitOfWork lets tests fail the transactional unit outright.
type MockUnitOfWork struct {
	WithinTxFn func(ctx context.Context, fn func(cards application.CardStore, settlements application.SettlementStore) error) error
}

func (m *MockUnitOfWork) WithinTx(ctx context.Context, fn func(cards application.CardStore, settlements application.SettlementStore) error) error {
	return m.WithinTxFn(ctx, fn)
}
