package mq

import (
	"context"
	"fmt"

	"github.com/storefront/apiserver/config"
)

// Event is a broker-agnostic payload delivered to subscribers.
type Event struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes an event. Return an error to signal a nack/retry.
type Handler func(ctx context.Context, ev Event) error

// Broker defines the broker-agnostic operations used by the app. The
// API server publishes mail events; the worker process subscribes.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Connect picks the broker implementation from config.
func Connect(ctx context.Context, cfg *config.Config) (Broker, error) {
	switch cfg.MQ.Backend {
	case "rabbitmq":
		return NewRabbitBroker(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}
