// Package domain holds the entities of the card settlement service.
package domain

import (
	"errors"
	"time"
)

// Card is a registered payment card. Balance is held in minor currency
// units and is mutated only through the ledger's debit operation.
type Card struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Kind       string    `json:"kind"`
	Number     string    `json:"number"`
	Balance    int64     `json:"balance"`
	Expiration time.Time `json:"expiration"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewCard(id, ownerID, kind, number string, initialBalance int64, expiration time.Time) (*Card, error) {
	if id == "" {
		return nil, errors.New("card ID is required")
	}
	if number == "" {
		return nil, errors.New("card number is required")
	}
	if kind == "" {
		return nil, errors.New("card kind is required")
	}
	if initialBalance < 0 {
		return nil, errors.New("initial balance cannot be negative")
	}

	return &Card{
		ID:         id,
		OwnerID:    ownerID,
		Kind:       kind,
		Number:     number,
		Balance:    initialBalance,
		Expiration: expiration,
		CreatedAt:  time.Now(),
	}, nil
}
