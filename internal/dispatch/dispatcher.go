package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"pushflow/internal/broker"
	"pushflow/internal/logger"
)

type State int

const (
	StateIdle State = iota
	StateSubscribed
	StateStopped
)

// ConsumerFactory builds one queue consumer. The dispatcher opens one
// consumer per unit of parallelism; they share a consumer group, so tasks are
// spread across them with no ordering guarantee.
type ConsumerFactory func() (broker.Consumer, error)

// Dispatcher is the long-lived queue consumer for one sender variant. It runs
// a bounded number of parallel consume loops and hands every task to the
// variant's handler. Stopping is cooperative: cancellation stops intake of new
// tasks but does not abort an in-flight gateway call.
type Dispatcher struct {
	variant     Variant
	newConsumer ConsumerFactory
	parallelism int
	logger      logger.Logger

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	group     *errgroup.Group
	consumers []broker.Consumer
	stopOnce  sync.Once
}

func NewDispatcher(variant Variant, newConsumer ConsumerFactory, parallelism int, log logger.Logger) *Dispatcher {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Dispatcher{
		variant:     variant,
		newConsumer: newConsumer,
		parallelism: parallelism,
		logger:      log,
		state:       StateIdle,
	}
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start opens the durable subscription. It returns immediately; consumption
// runs until Stop is called or the parent context is canceled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateIdle {
		return fmt.Errorf("dispatcher already started")
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.group, consumeCtx = errgroup.WithContext(consumeCtx)

	for i := 0; i < d.parallelism; i++ {
		consumer, err := d.newConsumer()
		if err != nil {
			cancel()
			d.closeConsumersLocked()
			return fmt.Errorf("failed to create consumer: %w", err)
		}
		consumer.SetServiceName("push-dispatcher")
		d.consumers = append(d.consumers, consumer)

		d.group.Go(func() error {
			err := consumer.Consume(consumeCtx, d.variant.Queue(), d.variant.Handle)
			if err != nil && consumeCtx.Err() != nil {
				return nil
			}
			return err
		})
	}

	d.state = StateSubscribed
	d.logger.Infow("Dispatcher subscribed",
		"variant", d.variant.Name(),
		"queue", d.variant.Queue(),
		"parallelism", d.parallelism,
	)
	return nil
}

// Stop cancels intake and waits for in-flight handlers to finish. Stopping
// twice is a no-op.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		if d.state != StateSubscribed {
			d.state = StateStopped
			d.mu.Unlock()
			return
		}
		cancel := d.cancel
		group := d.group
		d.mu.Unlock()

		cancel()
		if group != nil {
			_ = group.Wait()
		}

		d.mu.Lock()
		d.closeConsumersLocked()
		d.state = StateStopped
		d.mu.Unlock()

		d.logger.Infow("Dispatcher stopped",
			"variant", d.variant.Name(),
		)
	})
}

// Wait blocks until all consume loops have exited.
func (d *Dispatcher) Wait() error {
	d.mu.Lock()
	group := d.group
	d.mu.Unlock()

	if group == nil {
		return nil
	}
	return group.Wait()
}

func (d *Dispatcher) closeConsumersLocked() {
	for _, consumer := range d.consumers {
		if err := consumer.Close(); err != nil {
			d.logger.Errorw("Failed to close consumer",
				"error", err,
				"variant", d.variant.Name(),
			)
		}
	}
	d.consumers = nil
}
