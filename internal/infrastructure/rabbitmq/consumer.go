package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/config"
	"github.com/cardledger/payments-service/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const processTimeout = 30 * time.Second

// Processor is the downstream contract shared with the HTTP ingress.
type Processor interface {
	Process(ctx context.Context, req domain.PaymentRequest) (domain.SettlementOutcome, error)
}

// Consumer is the asynchronous ingress adapter: it decodes purchase
// requests from the durable request queue and acknowledges a delivery
// only after the settlement and its confirmation have both completed.
// Everything before that point stays unacknowledged so the broker
// redelivers it; redelivery is safe because settled purchases are
// recalled, not re-debited.
type Consumer struct {
	conn       *Connection
	queue      string
	prefetch   int
	retryDelay time.Duration
	processor  Processor
	logger     *slog.Logger
}

func NewConsumer(conn *Connection, cfg config.RabbitMQConfig, processor Processor, logger *slog.Logger) *Consumer {
	return &Consumer{
		conn:       conn,
		queue:      cfg.RequestQueue,
		prefetch:   cfg.Prefetch,
		retryDelay: cfg.RetryDelay,
		processor:  processor,
		logger:     logger,
	}
}

// Start consumes until ctx is cancelled, redialing the broker after a
// delay when the consuming session fails.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("payment consumer started", "queue", c.queue)

	for {
		if err := c.run(ctx); err != nil {
			c.logger.Error("consumer session ended", "error", err)
		}

		select {
		case <-ctx.Done():
			c.logger.Info("payment consumer stopped")
			return
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Consumer) run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	tag := "payments-" + uuid.New().String()
	deliveries, err := ch.Consume(c.queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			// Stop new deliveries, then settle the ones the broker
			// already handed over before the channel closes.
			if err := ch.Cancel(tag, false); err != nil {
				return fmt.Errorf("cancel consumer: %w", err)
			}
			for d := range deliveries {
				c.handle(ctx, d)
			}
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle settles one delivery. It runs detached from the consumer's
// cancellation so an in-flight debit/publish sequence finishes before
// the acknowledgment decision, also during shutdown.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), processTimeout)
	defer cancel()

	var req domain.PaymentRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		// Malformed input is never retryable; rejecting without requeue
		// hands it to the queue's dead-letter policy.
		c.logger.Warn("dropping malformed payment request", "error", err)
		c.settleDelivery(d.Reject(false), "reject")
		return
	}

	_, err := c.processor.Process(ctx, req)
	if err != nil {
		if svcErr, ok := application.IsServiceError(err); ok && svcErr.Code == application.ErrCodeInvalidInput {
			c.logger.Warn("dropping invalid payment request", "purchase_id", req.PurchaseID, "error", err)
			c.settleDelivery(d.Reject(false), "reject")
			return
		}

		c.logger.Error("payment processing failed, requeueing",
			"purchase_id", req.PurchaseID,
			"error", err,
		)
		c.settleDelivery(d.Nack(false, true), "nack")
		return
	}

	// Ack strictly after the ledger mutation (or idempotent recall) and
	// the confirmation publish have both succeeded.
	c.settleDelivery(d.Ack(false), "ack")
}

func (c *Consumer) settleDelivery(err error, op string) {
	if err != nil {
		c.logger.Error("failed to settle delivery", "op", op, "error", err)
	}
}
