package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/config"
	"github.com/cardledger/payments-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	rejected bool
	requeue  bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.rejected = true
	f.requeue = requeue
	return nil
}

type fakeProcessor struct {
	requests []domain.PaymentRequest
	outcome  domain.SettlementOutcome
	err      error
}

func (f *fakeProcessor) Process(ctx context.Context, req domain.PaymentRequest) (domain.SettlementOutcome, error) {
	f.requests = append(f.requests, req)
	return f.outcome, f.err
}

func newTestConsumer(processor Processor) *Consumer {
	cfg := config.RabbitMQConfig{
		RequestQueue: "payments.requests",
		Prefetch:     8,
		RetryDelay:   time.Second,
	}
	return NewConsumer(nil, cfg, processor, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func delivery(t *testing.T, ack *fakeAcknowledger, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         body,
	}
}

func paymentBody(t *testing.T, req domain.PaymentRequest) []byte {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

func TestConsumer_Handle_AcksAfterSuccessfulSettlement(t *testing.T) {
	processor := &fakeProcessor{outcome: domain.NewApprovedOutcome("P1", 300)}
	consumer := newTestConsumer(processor)
	ack := &fakeAcknowledger{}

	req := domain.PaymentRequest{PurchaseID: "P1", CardID: "C1", Amount: 200}
	consumer.handle(context.Background(), delivery(t, ack, paymentBody(t, req)))

	require.Len(t, processor.requests, 1)
	assert.Equal(t, "P1", processor.requests[0].PurchaseID)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.False(t, ack.rejected)
}

func TestConsumer_Handle_AcksBusinessRejections(t *testing.T) {
	// A rejected purchase is a settled purchase; it must not requeue.
	processor := &fakeProcessor{outcome: domain.NewRejectedOutcome("P1", domain.MsgInsufficientFunds)}
	consumer := newTestConsumer(processor)
	ack := &fakeAcknowledger{}

	req := domain.PaymentRequest{PurchaseID: "P1", CardID: "C1", Amount: 200}
	consumer.handle(context.Background(), delivery(t, ack, paymentBody(t, req)))

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestConsumer_Handle_RejectsMalformedBody(t *testing.T) {
	processor := &fakeProcessor{}
	consumer := newTestConsumer(processor)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(t, ack, []byte("{not json")))

	assert.Empty(t, processor.requests)
	assert.True(t, ack.rejected)
	assert.False(t, ack.requeue)
}

func TestConsumer_Handle_RejectsInvalidInput(t *testing.T) {
	processor := &fakeProcessor{err: application.NewInvalidInputError(errors.New("purchase ID is required"))}
	consumer := newTestConsumer(processor)
	ack := &fakeAcknowledger{}

	req := domain.PaymentRequest{CardID: "C1", Amount: 200}
	consumer.handle(context.Background(), delivery(t, ack, paymentBody(t, req)))

	assert.True(t, ack.rejected)
	assert.False(t, ack.requeue)
	assert.False(t, ack.acked)
}

func TestConsumer_Handle_RequeuesTransientFailures(t *testing.T) {
	processor := &fakeProcessor{err: application.NewUnavailableError(errors.New("broker unreachable"))}
	consumer := newTestConsumer(processor)
	ack := &fakeAcknowledger{}

	req := domain.PaymentRequest{PurchaseID: "P1", CardID: "C1", Amount: 200}
	consumer.handle(context.Background(), delivery(t, ack, paymentBody(t, req)))

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
	assert.False(t, ack.acked)
}

func TestConsumer_Handle_SettlesDespiteCancelledContext(t *testing.T) {
	// Shutdown cancels the consumer context while deliveries drain; the
	// in-flight settlement still runs to its acknowledgment decision.
	processor := &fakeProcessor{outcome: domain.NewApprovedOutcome("P1", 300)}
	consumer := newTestConsumer(processor)
	ack := &fakeAcknowledger{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := domain.PaymentRequest{PurchaseID: "P1", CardID: "C1", Amount: 200}
	consumer.handle(ctx, delivery(t, ack, paymentBody(t, req)))

	require.Len(t, processor.requests, 1)
	assert.True(t, ack.acked)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "payment.approved", RoutingKey(domain.StatusApproved))
	assert.Equal(t, "payment.rejected", RoutingKey(domain.StatusRejected))
}
