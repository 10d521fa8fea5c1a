package postgres

import (
	"time"
)

type CardModel struct {
	ID         string
	OwnerID    string
	Kind       string
	Number     string
	Balance    int64
	Expiration time.Time
	CreatedAt  time.Time
}

// SettlementModel is the durable idempotency record. The primary key on
// PurchaseID enforces at-most-once settlement; Balance is null for
// rejections without a balance claim.
type SettlementModel struct {
	PurchaseID string
	CardID     string
	Amount     int64
	Status     string
	Message    string
	Balance    *int64
	SettledAt  time.Time
}
