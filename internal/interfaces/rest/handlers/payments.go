package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/domain"
	"github.com/cardledger/payments-service/internal/interfaces/rest"
)

type ProcessRequest struct {
	PurchaseID string `json:"purchase_id" validate:"required"`
	CardID     string `json:"card_id" validate:"required"`
	Amount     int64  `json:"amount"`
}

type ProcessResponse struct {
	Status     domain.SettlementStatus `json:"status"`
	PurchaseID string                  `json:"purchase_id"`
	NewBalance int64                   `json:"new_balance"`
	Message    string                  `json:"message"`
}

type RejectionResponse struct {
	Error          string `json:"error"`
	CurrentBalance *int64 `json:"current_balance,omitempty"`
}

func (h *Handlers) HandleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	outcome, err := h.processor.Process(r.Context(), domain.PaymentRequest{
		PurchaseID:  req.PurchaseID,
		CardID:      req.CardID,
		Amount:      req.Amount,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	if !outcome.Approved() {
		rest.WriteJSON(w, http.StatusBadRequest, RejectionResponse{
			Error:          outcome.Message,
			CurrentBalance: outcome.Balance,
		})
		return
	}

	rest.WriteJSON(w, http.StatusOK, ProcessResponse{
		Status:     outcome.Status,
		PurchaseID: outcome.PurchaseID,
		NewBalance: *outcome.Balance,
		Message:    outcome.Message,
	})
}
