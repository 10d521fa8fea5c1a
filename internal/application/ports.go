// Package application defines the ports the settlement core depends on
// and the orchestration errors it surfaces.
package application

import (
	"context"

	"github.com/cardledger/payments-service/internal/domain"
)

// CardStore is the ledger port. Debit must be atomic with respect to
// the read-check-write sequence: concurrent debits against the same
// card may never drive the balance negative.
type CardStore interface {
	Create(ctx context.Context, card *domain.Card) error
	FindByID(ctx context.Context, id string) (*domain.Card, error)
	FindByNumber(ctx context.Context, number string) (*domain.Card, error)
	List(ctx context.Context) ([]*domain.Card, error)

	// Debit subtracts amount from the card's balance and returns the new
	// balance. Returns domain.ErrCardNotFound or
	// *domain.InsufficientFundsError; sufficiency is re-validated at the
	// point of mutation.
	Debit(ctx context.Context, id string, amount int64) (int64, error)
}

// SettlementStore remembers terminal outcomes keyed by purchase ID.
type SettlementStore interface {
	// Record stores a terminal settlement. Returns
	// domain.ErrDuplicateSettlement when the purchase ID was already
	// recorded by another attempt.
	Record(ctx context.Context, settlement *domain.Settlement) error
	FindByPurchaseID(ctx context.Context, purchaseID string) (*domain.Settlement, error)
}

// UnitOfWork runs the ledger mutation and the settlement record as one
// atomic unit: either both commit or neither does.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(cards CardStore, settlements SettlementStore) error) error
}

// ConfirmationPublisher emits a confirmation to the broker. The call
// returns only after the broker has accepted the message; failures
// surface to the caller, which decides whether to redeliver.
type ConfirmationPublisher interface {
	Publish(ctx context.Context, confirmation domain.Confirmation) error
}
