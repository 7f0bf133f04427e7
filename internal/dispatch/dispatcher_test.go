package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushflow/internal/broker"
	"pushflow/internal/logger"
	"pushflow/pkg/models"
)

type blockingConsumer struct {
	mu     sync.Mutex
	closed bool
	queue  string
}

func (c *blockingConsumer) Consume(ctx context.Context, queue string, _ broker.HandlerFunc) error {
	c.mu.Lock()
	c.queue = queue
	c.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (c *blockingConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *blockingConsumer) SetServiceName(string) {}

type stubVariant struct{}

func (stubVariant) Name() string  { return "webpush" }
func (stubVariant) Queue() string { return "webpush-delivery" }
func (stubVariant) Handle(context.Context, models.PushTask) error {
	return nil
}

func TestDispatcherLifecycle(t *testing.T) {
	var created []*blockingConsumer
	factory := func() (broker.Consumer, error) {
		consumer := &blockingConsumer{}
		created = append(created, consumer)
		return consumer, nil
	}

	dispatcher := NewDispatcher(stubVariant{}, factory, 3, logger.NopLogger())
	assert.Equal(t, StateIdle, dispatcher.State())

	require.NoError(t, dispatcher.Start(context.Background()))
	assert.Equal(t, StateSubscribed, dispatcher.State())
	assert.Len(t, created, 3)

	dispatcher.Stop()
	assert.Equal(t, StateStopped, dispatcher.State())
	assert.NoError(t, dispatcher.Wait())
	for _, consumer := range created {
		assert.True(t, consumer.closed)
	}

	// stopping again is a no-op
	dispatcher.Stop()
	assert.Equal(t, StateStopped, dispatcher.State())
}

func TestDispatcherStartTwice(t *testing.T) {
	factory := func() (broker.Consumer, error) {
		return &blockingConsumer{}, nil
	}
	dispatcher := NewDispatcher(stubVariant{}, factory, 1, logger.NopLogger())

	require.NoError(t, dispatcher.Start(context.Background()))
	defer dispatcher.Stop()

	assert.Error(t, dispatcher.Start(context.Background()))
}

func TestDispatcherStartAfterStop(t *testing.T) {
	dispatcher := NewDispatcher(stubVariant{}, func() (broker.Consumer, error) {
		return &blockingConsumer{}, nil
	}, 1, logger.NopLogger())

	dispatcher.Stop()
	assert.Equal(t, StateStopped, dispatcher.State())
	assert.Error(t, dispatcher.Start(context.Background()))
}

func TestDispatcherConsumerFactoryFailure(t *testing.T) {
	var calls atomic.Int32
	factory := func() (broker.Consumer, error) {
		if calls.Add(1) == 2 {
			return nil, errors.New("no brokers reachable")
		}
		return &blockingConsumer{}, nil
	}

	dispatcher := NewDispatcher(stubVariant{}, factory, 3, logger.NopLogger())
	err := dispatcher.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create consumer")
	assert.Equal(t, StateIdle, dispatcher.State())
}

func TestDispatcherParentContextCancel(t *testing.T) {
	factory := func() (broker.Consumer, error) {
		return &blockingConsumer{}, nil
	}
	dispatcher := NewDispatcher(stubVariant{}, factory, 2, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, dispatcher.Start(ctx))

	cancel()

	done := make(chan error, 1)
	go func() { done <- dispatcher.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consume loops did not exit after context cancel")
	}

	dispatcher.Stop()
	assert.Equal(t, StateStopped, dispatcher.State())
}

func TestDispatcherDefaultsParallelism(t *testing.T) {
	var created int
	factory := func() (broker.Consumer, error) {
		created++
		return &blockingConsumer{}, nil
	}

	dispatcher := NewDispatcher(stubVariant{}, factory, 0, logger.NopLogger())
	require.NoError(t, dispatcher.Start(context.Background()))
	defer dispatcher.Stop()

	assert.Equal(t, 1, created)
}
