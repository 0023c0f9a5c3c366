package app

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"tripmeter/internal/config"
)

// NewRabbitMQ dials the event bus.
func NewRabbitMQ(cfg config.RabbitMQConfig) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	return conn, nil
}
