package postgres

import (
	"context"
	"fmt"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UnitOfWork runs the ledger debit and the settlement record inside one
// database transaction, handing transaction-scoped repositories to the
// closure. A crash between the two writes is impossible: either both
// commit or neither does.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{pool: db.Pool}
}

var _ application.UnitOfWork = (*UnitOfWork)(nil)

func (u *UnitOfWork) WithinTx(
	ctx context.Context,
	fn func(cards application.CardStore, settlements application.SettlementStore) error,
) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txCards := &CardRepository{q: tx}
	txSettlements := &SettlementRepository{q: tx}

	if err := fn(txCards, txSettlements); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
