package broker

import (
	"context"

	"pushflow/pkg/models"
)

// Producer publishes push tasks onto a named queue. Delivery is at-least-once;
// consumers must tolerate redelivered tasks.
type Producer interface {
	Publish(ctx context.Context, queue string, task models.PushTask) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, queue string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, task models.PushTask) error
