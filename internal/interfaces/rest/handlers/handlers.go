// Package handlers is the synchronous ingress adapter: it translates
// HTTP requests into canonical payment requests and card commands. The
// HTTP response doubles as the acknowledgment.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cardledger/payments-service/internal/application/services"
	"github.com/cardledger/payments-service/internal/domain"
	"github.com/cardledger/payments-service/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"
)

type PaymentProcessor interface {
	Process(ctx context.Context, req domain.PaymentRequest) (domain.SettlementOutcome, error)
}

type CardService interface {
	Register(ctx context.Context, cmd services.RegisterCardCommand) (*domain.Card, error)
	List(ctx context.Context) ([]*domain.Card, error)
	BalanceByNumber(ctx context.Context, number string) (*domain.Card, error)
}

type Handlers struct {
	processor PaymentProcessor
	cards     CardService
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewHandlers(processor PaymentProcessor, cards CardService, logger *slog.Logger) *Handlers {
	return &Handlers{
		processor: processor,
		cards:     cards,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Router mounts the payment routes; metrics may be nil when the
// Prometheus endpoint is not exposed.
func (h *Handlers) Router(metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Route("/payments", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Post("/process", h.HandleProcess)
		r.Post("/cards", h.HandleRegisterCard)
		r.Get("/cards", h.HandleListCards)
		r.Get("/cards/{cardNumber}/balance", h.HandleBalance)
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return r
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
