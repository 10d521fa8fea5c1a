// Package rabbitmq carries the broker-facing adapters: the confirmation
// publisher and the purchase request consumer.
package rabbitmq

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cardledger/payments-service/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection owns the AMQP connection as an explicit scoped resource.
// Callers acquire channels through it; when the underlying connection
// drops, the next acquire redials.
type Connection struct {
	url    string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

func Dial(cfg config.RabbitMQConfig, logger *slog.Logger) (*Connection, error) {
	c := &Connection{
		url:    cfg.URL,
		logger: logger,
	}
	if _, err := c.acquire(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) acquire() (*amqp.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, amqp.ErrClosed
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	c.conn = conn
	c.logger.Info("broker connection established")

	return conn, nil
}

// Channel opens a fresh channel, redialing the connection first when the
// previous one has gone away.
func (c *Connection) Channel() (*amqp.Channel, error) {
	conn, err := c.acquire()
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn != nil && !c.conn.IsClosed() {
		c.logger.Info("closing broker connection")
		return c.conn.Close()
	}
	return nil
}
