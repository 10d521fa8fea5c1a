package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/application/services"
	"github.com/cardledger/payments-service/internal/domain"
	"github.com/cardledger/payments-service/internal/interfaces/rest/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	req     domain.PaymentRequest
	outcome domain.SettlementOutcome
	err     error
}

func (s *stubProcessor) Process(ctx context.Context, req domain.PaymentRequest) (domain.SettlementOutcome, error) {
	s.req = req
	return s.outcome, s.err
}

type stubCardService struct {
	card  *domain.Card
	cards []*domain.Card
	err   error
}

func (s *stubCardService) Register(ctx context.Context, cmd services.RegisterCardCommand) (*domain.Card, error) {
	return s.card, s.err
}

func (s *stubCardService) List(ctx context.Context) ([]*domain.Card, error) {
	return s.cards, s.err
}

func (s *stubCardService) BalanceByNumber(ctx context.Context, number string) (*domain.Card, error) {
	return s.card, s.err
}

func newRouter(processor handlers.PaymentProcessor, cards handlers.CardService) http.Handler {
	h := handlers.NewHandlers(processor, cards, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h.Router(nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleProcess_Approved(t *testing.T) {
	processor := &stubProcessor{outcome: domain.NewApprovedOutcome("P1", 300)}
	router := newRouter(processor, &stubCardService{})

	rec := doJSON(t, router, http.MethodPost, "/payments/process", map[string]any{
		"purchase_id": "P1",
		"card_id":     "C1",
		"amount":      200,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusApproved, resp.Status)
	assert.Equal(t, "P1", resp.PurchaseID)
	assert.Equal(t, int64(300), resp.NewBalance)
	assert.Equal(t, domain.MsgApproved, resp.Message)

	assert.Equal(t, "P1", processor.req.PurchaseID)
	assert.Equal(t, int64(200), processor.req.Amount)
	assert.False(t, processor.req.RequestedAt.IsZero())
}

func TestHandleProcess_RejectedInsufficientFunds(t *testing.T) {
	processor := &stubProcessor{
		outcome: domain.NewRejectedOutcomeWithBalance("P1", domain.MsgInsufficientFunds, 150),
	}
	router := newRouter(processor, &stubCardService{})

	rec := doJSON(t, router, http.MethodPost, "/payments/process", map[string]any{
		"purchase_id": "P1",
		"card_id":     "C1",
		"amount":      200,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "insufficient funds", "current_balance": 150}`, rec.Body.String())
}

func TestHandleProcess_RejectedCardNotFound_OmitsBalance(t *testing.T) {
	processor := &stubProcessor{outcome: domain.NewRejectedOutcome("P1", domain.MsgCardNotFound)}
	router := newRouter(processor, &stubCardService{})

	rec := doJSON(t, router, http.MethodPost, "/payments/process", map[string]any{
		"purchase_id": "P1",
		"card_id":     "missing",
		"amount":      200,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "card not found"}`, rec.Body.String())
}

func TestHandleProcess_MissingFields(t *testing.T) {
	router := newRouter(&stubProcessor{}, &stubCardService{})

	rec := doJSON(t, router, http.MethodPost, "/payments/process", map[string]any{
		"amount": 200,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProcess_InfrastructureFailure(t *testing.T) {
	processor := &stubProcessor{err: application.NewUnavailableError(errors.New("broker unreachable"))}
	router := newRouter(processor, &stubCardService{})

	rec := doJSON(t, router, http.MethodPost, "/payments/process", map[string]any{
		"purchase_id": "P1",
		"card_id":     "C1",
		"amount":      200,
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleRegisterCard(t *testing.T) {
	card, err := domain.NewCard("C1", "owner-1", "debit", "4111-0000", 1000, time.Now().AddDate(3, 0, 0))
	require.NoError(t, err)
	router := newRouter(&stubProcessor{}, &stubCardService{card: card})

	rec := doJSON(t, router, http.MethodPost, "/payments/cards", map[string]any{
		"owner_id":        "owner-1",
		"kind":            "debit",
		"number":          "4111-0000",
		"initial_balance": 1000,
		"expiration":      time.Now().AddDate(3, 0, 0).Format(time.RFC3339),
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Card
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "C1", created.ID)
	assert.Equal(t, int64(1000), created.Balance)
}

func TestHandleRegisterCard_MissingFields(t *testing.T) {
	router := newRouter(&stubProcessor{}, &stubCardService{})

	rec := doJSON(t, router, http.MethodPost, "/payments/cards", map[string]any{
		"owner_id": "owner-1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBalance(t *testing.T) {
	card, err := domain.NewCard("C1", "owner-1", "debit", "4111-0000", 750, time.Now().AddDate(3, 0, 0))
	require.NoError(t, err)
	router := newRouter(&stubProcessor{}, &stubCardService{card: card})

	rec := doJSON(t, router, http.MethodGet, "/payments/cards/4111-0000/balance", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"card_number": "4111-0000", "balance": 750}`, rec.Body.String())
}

func TestHandleBalance_UnknownCard(t *testing.T) {
	router := newRouter(&stubProcessor{}, &stubCardService{err: domain.ErrCardNotFound})

	rec := doJSON(t, router, http.MethodGet, "/payments/cards/0000/balance", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "card not found"}`, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	router := newRouter(&stubProcessor{}, &stubCardService{})

	rec := doJSON(t, router, http.MethodGet, "/payments/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
