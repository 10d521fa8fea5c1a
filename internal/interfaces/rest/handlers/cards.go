package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/application/services"
	"github.com/cardledger/payments-service/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type RegisterCardRequest struct {
	OwnerID        string    `json:"owner_id" validate:"required"`
	Kind           string    `json:"kind" validate:"required"`
	Number         string    `json:"number" validate:"required"`
	InitialBalance int64     `json:"initial_balance"`
	Expiration     time.Time `json:"expiration" validate:"required"`
}

type BalanceResponse struct {
	CardNumber string `json:"card_number"`
	Balance    int64  `json:"balance"`
}

func (h *Handlers) HandleRegisterCard(w http.ResponseWriter, r *http.Request) {
	var req RegisterCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	card, err := h.cards.Register(r.Context(), services.RegisterCardCommand{
		OwnerID:        req.OwnerID,
		Kind:           req.Kind,
		Number:         req.Number,
		InitialBalance: req.InitialBalance,
		Expiration:     req.Expiration,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, card)
}

func (h *Handlers) HandleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, cards)
}

func (h *Handlers) HandleBalance(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "cardNumber")

	card, err := h.cards.BalanceByNumber(r.Context(), number)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, BalanceResponse{
		CardNumber: card.Number,
		Balance:    card.Balance,
	})
}
