package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardledger/payments-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CardRepository struct {
	q Executor
}

func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{q: db.Pool}
}

func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (id, owner_id, kind, number, balance, expiration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		card.ID,
		card.OwnerID,
		card.Kind,
		card.Number,
		card.Balance,
		card.Expiration,
		card.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicateCard
		}
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

func (r *CardRepository) FindByID(ctx context.Context, id string) (*domain.Card, error) {
	query := `
		SELECT id, owner_id, kind, number, balance, expiration, created_at
		FROM cards WHERE id = $1
	`

	row := r.q.QueryRow(ctx, query, id)
	return scanCard(row)
}

func (r *CardRepository) FindByNumber(ctx context.Context, number string) (*domain.Card, error) {
	query := `
		SELECT id, owner_id, kind, number, balance, expiration, created_at
		FROM cards WHERE number = $1
	`

	row := r.q.QueryRow(ctx, query, number)
	return scanCard(row)
}

func (r *CardRepository) List(ctx context.Context) ([]*domain.Card, error) {
	query := `
		SELECT id, owner_id, kind, number, balance, expiration, created_at
		FROM cards
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}

	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Card, error) {
		var m CardModel
		err := row.Scan(&m.ID, &m.OwnerID, &m.Kind, &m.Number, &m.Balance, &m.Expiration, &m.CreatedAt)
		return toDomainCard(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan cards: %w", err)
	}

	return cards, nil
}

// Debit performs the atomic check-and-debit: the conditional UPDATE
// re-validates sufficiency at the point of mutation, so two concurrent
// debits can never drive the balance negative. On a miss it reads the
// row again to tell "not found" apart from "insufficient funds".
func (r *CardRepository) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	query := `
		UPDATE cards
		SET balance = balance - $2
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, id, amount).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("debit card %s: %w", id, err)
	}

	var balance int64
	err = r.q.QueryRow(ctx, `SELECT balance FROM cards WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrCardNotFound
		}
		return 0, fmt.Errorf("read balance of card %s: %w", id, err)
	}

	return 0, &domain.InsufficientFundsError{Balance: balance}
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var m CardModel
	err := row.Scan(&m.ID, &m.OwnerID, &m.Kind, &m.Number, &m.Balance, &m.Expiration, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	return toDomainCard(m), nil
}
