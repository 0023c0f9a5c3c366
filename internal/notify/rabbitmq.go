// Package notify publishes trip events to RabbitMQ.
package notify

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange every event is published to.
const ExchangeName = "tripmeter.events"

// Publisher publishes JSON events on ExchangeName. The AMQP channel is
// reopened on the next publish after it closes.
type Publisher struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher opens a channel on conn and declares the exchange.
func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	p := &Publisher{conn: conn}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

// channel returns an open channel, declaring the exchange on a fresh one.
// Callers hold no lock.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p.ch = ch
	return ch, nil
}

// Publish sends body under routingKey as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Close closes the channel. The connection belongs to the caller.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		return nil
	}
	return p.ch.Close()
}
