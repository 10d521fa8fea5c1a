package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cardledger/payments-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRequest_JSONRoundTrip(t *testing.T) {
	req := domain.PaymentRequest{
		PurchaseID:  "P1",
		CardID:      "C1",
		Amount:      1999,
		RequestedAt: time.Date(2026, 8, 14, 10, 30, 0, 0, time.UTC),
	}

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"purchase_id": "P1",
		"card_id": "C1",
		"amount": 1999,
		"requested_at": "2026-08-14T10:30:00Z"
	}`, string(body))

	var decoded domain.PaymentRequest
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, req, decoded)
}

func TestConfirmation_JSONShape(t *testing.T) {
	confirmation := domain.Confirmation{
		PurchaseID: "P1",
		Status:     domain.StatusApproved,
		Message:    domain.MsgApproved,
		Timestamp:  time.Date(2026, 8, 14, 10, 30, 0, 0, time.UTC),
	}

	body, err := json.Marshal(confirmation)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"purchase_id": "P1",
		"status": "approved",
		"message": "payment processed successfully",
		"timestamp": "2026-08-14T10:30:00Z"
	}`, string(body))
}

func TestSettlement_OutcomeAndConfirmationDeriveFromRecord(t *testing.T) {
	req := domain.PaymentRequest{PurchaseID: "P1", CardID: "C1", Amount: 200}
	settlement := domain.NewSettlement(req, domain.NewApprovedOutcome("P1", 300))

	outcome := settlement.Outcome()
	assert.Equal(t, "P1", outcome.PurchaseID)
	assert.Equal(t, domain.StatusApproved, outcome.Status)
	require.NotNil(t, outcome.Balance)
	assert.Equal(t, int64(300), *outcome.Balance)
	assert.True(t, outcome.Approved())

	// Deriving twice yields identical confirmations, which is what makes
	// republishing on recall safe.
	assert.Equal(t, settlement.Confirmation(), settlement.Confirmation())
	assert.Equal(t, settlement.SettledAt, settlement.Confirmation().Timestamp)
}

func TestNewRejectedOutcome(t *testing.T) {
	outcome := domain.NewRejectedOutcome("P1", domain.MsgCardNotFound)
	assert.False(t, outcome.Approved())
	assert.Nil(t, outcome.Balance)

	withBalance := domain.NewRejectedOutcomeWithBalance("P1", domain.MsgInsufficientFunds, 150)
	require.NotNil(t, withBalance.Balance)
	assert.Equal(t, int64(150), *withBalance.Balance)
}

func TestNewCard_Validation(t *testing.T) {
	expiration := time.Now().AddDate(3, 0, 0)

	cases := []struct {
		name    string
		id      string
		kind    string
		number  string
		balance int64
		wantErr bool
	}{
		{"valid", "C1", "debit", "4111-0000", 100, false},
		{"zero balance is valid", "C1", "debit", "4111-0000", 0, false},
		{"missing id", "", "debit", "4111-0000", 100, true},
		{"missing kind", "C1", "", "4111-0000", 100, true},
		{"missing number", "C1", "debit", "", 100, true},
		{"negative balance", "C1", "debit", "4111-0000", -1, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card, err := domain.NewCard(tc.id, "owner-1", tc.kind, tc.number, tc.balance, expiration)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.balance, card.Balance)
			assert.False(t, card.CreatedAt.IsZero())
		})
	}
}
