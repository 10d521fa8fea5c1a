package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardledger/payments-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

type SettlementRepository struct {
	q Executor
}

func NewSettlementRepository(db *DB) *SettlementRepository {
	return &SettlementRepository{q: db.Pool}
}

// Record inserts the terminal settlement for a purchase. The primary key
// on purchase_id makes a second attempt fail with
// domain.ErrDuplicateSettlement; inside a transaction a concurrent
// insert blocks until the winner commits, which gives losers the
// winner's recorded outcome to recall.
func (r *SettlementRepository) Record(ctx context.Context, settlement *domain.Settlement) error {
	query := `
		INSERT INTO settlements (purchase_id, card_id, amount, status, message, balance, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		settlement.PurchaseID,
		settlement.CardID,
		settlement.Amount,
		string(settlement.Status),
		settlement.Message,
		settlement.Balance,
		settlement.SettledAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicateSettlement
		}
		return fmt.Errorf("failed to record settlement: %w", err)
	}

	return nil
}

func (r *SettlementRepository) FindByPurchaseID(ctx context.Context, purchaseID string) (*domain.Settlement, error) {
	query := `
		SELECT purchase_id, card_id, amount, status, message, balance, settled_at
		FROM settlements WHERE purchase_id = $1
	`

	var m SettlementModel
	err := r.q.QueryRow(ctx, query, purchaseID).Scan(
		&m.PurchaseID,
		&m.CardID,
		&m.Amount,
		&m.Status,
		&m.Message,
		&m.Balance,
		&m.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to scan settlement: %w", err)
	}

	return toDomainSettlement(m), nil
}
