package domain

import "time"

// SettlementStatus is the terminal business decision for a purchase.
type SettlementStatus string

const (
	StatusApproved SettlementStatus = "approved"
	StatusRejected SettlementStatus = "rejected"
)

// Rejection messages are part of the wire contract; confirmations carry
// them verbatim.
const (
	MsgInvalidAmount     = "invalid amount"
	MsgCardNotFound      = "card not found"
	MsgInsufficientFunds = "insufficient funds"
	MsgApproved          = "payment processed successfully"
)

// PaymentRequest is the canonical purchase request. Both ingress paths
// (HTTP and the request queue) decode into this shape. PurchaseID is the
// idempotency key; the request itself is never persisted.
type PaymentRequest struct {
	PurchaseID  string    `json:"purchase_id"`
	CardID      string    `json:"card_id"`
	Amount      int64     `json:"amount"`
	RequestedAt time.Time `json:"requested_at"`
}

// SettlementOutcome is the terminal result of processing a purchase.
// Infrastructure faults are not outcomes; they travel as errors so the
// caller can retry. Balance is the new balance when approved, or the
// unchanged current balance when rejected for insufficient funds.
type SettlementOutcome struct {
	PurchaseID string
	Status     SettlementStatus
	Message    string
	Balance    *int64
}

func NewApprovedOutcome(purchaseID string, newBalance int64) SettlementOutcome {
	return SettlementOutcome{
		PurchaseID: purchaseID,
		Status:     StatusApproved,
		Message:    MsgApproved,
		Balance:    &newBalance,
	}
}

func NewRejectedOutcome(purchaseID, reason string) SettlementOutcome {
	return SettlementOutcome{
		PurchaseID: purchaseID,
		Status:     StatusRejected,
		Message:    reason,
	}
}

func NewRejectedOutcomeWithBalance(purchaseID, reason string, balance int64) SettlementOutcome {
	return SettlementOutcome{
		PurchaseID: purchaseID,
		Status:     StatusRejected,
		Message:    reason,
		Balance:    &balance,
	}
}

func (o SettlementOutcome) Approved() bool {
	return o.Status == StatusApproved
}

// Settlement is the durable record of a terminal outcome, keyed by
// purchase ID. It is written in the same transaction as the ledger
// mutation and is the source of truth for "already settled".
type Settlement struct {
	PurchaseID string
	CardID     string
	Amount     int64
	Status     SettlementStatus
	Message    string
	Balance    *int64
	SettledAt  time.Time
}

func NewSettlement(req PaymentRequest, outcome SettlementOutcome) *Settlement {
	return &Settlement{
		PurchaseID: req.PurchaseID,
		CardID:     req.CardID,
		Amount:     req.Amount,
		Status:     outcome.Status,
		Message:    outcome.Message,
		Balance:    outcome.Balance,
		SettledAt:  time.Now(),
	}
}

// Outcome reconstructs the terminal outcome a stored settlement records.
func (s *Settlement) Outcome() SettlementOutcome {
	return SettlementOutcome{
		PurchaseID: s.PurchaseID,
		Status:     s.Status,
		Message:    s.Message,
		Balance:    s.Balance,
	}
}

// Confirmation derives the message published for this settlement.
// Re-deriving it on a recall yields byte-identical content, which makes
// republishing under retry safe.
func (s *Settlement) Confirmation() Confirmation {
	return Confirmation{
		PurchaseID: s.PurchaseID,
		Status:     s.Status,
		Message:    s.Message,
		Timestamp:  s.SettledAt,
	}
}

// Confirmation is the message published for every settled purchase.
type Confirmation struct {
	PurchaseID string           `json:"purchase_id"`
	Status     SettlementStatus `json:"status"`
	Message    string           `json:"message"`
	Timestamp  time.Time        `json:"timestamp"`
}
