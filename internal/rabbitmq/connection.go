// Package rabbitmq holds the engine's single shared AMQP connection, built
// directly on rabbitmq/amqp091-go and returning errors instead of fataling
// the process.
package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/libra-dev/deploy-engine/internal/logging"
)

// Connection is a lazily-established, reused AMQP connection + channel pair.
type Connection struct {
	uri string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewConnection wires a Connection against uri. Nothing is dialed yet.
func NewConnection(uri string) *Connection {
	return &Connection{uri: uri}
}

// Channel returns the shared channel, dialing and opening it on first use.
func (c *Connection) Channel(ctx context.Context) (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}

	log := logging.FromContext(ctx)
	log.Info("connecting to rabbitmq")

	conn, err := amqp.Dial(c.uri)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	c.conn = conn
	c.channel = ch

	log.Info("connected to rabbitmq")

	return c.channel, nil
}

// HealthCheck reports whether the connection and channel are live.
func (c *Connection) HealthCheck() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed()
}

// Close tears down the channel and connection, if open.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error

	if c.channel != nil {
		err = c.channel.Close()
	}

	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}
