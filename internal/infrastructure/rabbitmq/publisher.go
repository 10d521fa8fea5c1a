package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits confirmations on a topic exchange, routed by status
// so downstream consumers can bind to approvals and rejections
// separately. The channel runs in confirm mode: Publish returns only
// after the broker has accepted the message.
type Publisher struct {
	conn     *Connection
	exchange string
	logger   *slog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(conn *Connection, exchange string, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}
}

var _ application.ConfirmationPublisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, confirmation domain.Confirmation) error {
	body, err := json.Marshal(confirmation)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		p.exchange,
		RoutingKey(confirmation.Status),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    confirmation.PurchaseID,
			Timestamp:    confirmation.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		p.invalidate(ch)
		return fmt.Errorf("publish confirmation: %w", err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await broker confirm: %w", err)
	}
	if !acked {
		return errors.New("broker refused confirmation message")
	}

	p.logger.Debug("confirmation published",
		"purchase_id", confirmation.PurchaseID,
		"routing_key", RoutingKey(confirmation.Status),
	)
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	p.ch = ch
	return ch, nil
}

func (p *Publisher) invalidate(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.ch = nil
	}
	ch.Close()
}

// RoutingKey distinguishes approved from rejected confirmations.
func RoutingKey(status domain.SettlementStatus) string {
	return "payment." + string(status)
}
