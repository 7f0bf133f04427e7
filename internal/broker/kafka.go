package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"pushflow/internal/config"
	"pushflow/internal/constants"
	"pushflow/internal/logger"
	"pushflow/pkg/errors"
	"pushflow/pkg/logging"
	"pushflow/pkg/metrics"
	"pushflow/pkg/models"
	"pushflow/pkg/retry"
	"pushflow/pkg/tracing"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, queue string, task models.PushTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal push task: %w", err)
	}

	headers := []kafka.Header{}
	headers = tracing.InjectTraceContext(ctx, headers)

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   queue,
			Key:     []byte(task.CorrelationID),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)

	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      *kafka.Reader
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *KafkaConsumer) Consume(ctx context.Context, queue string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"queue", queue,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    queue,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming",
			"queue", queue,
		)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"queue", queue,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"queue", queue,
				)
				time.Sleep(time.Second)
				continue
			}

			var task models.PushTask
			if err := json.Unmarshal(m.Value, &task); err != nil {
				c.logger.ErrorwCtx(consumeCtx, "Failed to unmarshal push task",
					"error", err,
					"queue", queue,
				)
				metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, queue, "unmarshal_error").Inc()
				_ = c.reader.CommitMessages(context.WithoutCancel(ctx), m)
				continue
			}

			msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m.Headers)
			msgCtx = logging.WithCorrelationID(msgCtx, task.CorrelationID)
			msgCtx = logging.WithDomain(msgCtx, task.Domain)
			msgCtx = logging.WithMessageID(msgCtx, task.MessageID)
			msgCtx = logging.WithServiceName(msgCtx, c.serviceName)

			// Cancellation stops intake only. A task already fetched runs and
			// commits detached from the consume context, so an in-flight
			// gateway call is never aborted mid-delivery and the message is
			// not redelivered after a restart.
			taskCtx := context.WithoutCancel(msgCtx)

			if err := c.processTaskWithRetry(taskCtx, task, handler, queue); err != nil {
				c.logger.ErrorwCtx(taskCtx, "Failed to process task after retries",
					"error", err,
					"queue", queue,
				)
				if c.dlqProducer != nil && c.cfg.DLQTopic != "" {
					if dlqErr := c.sendToDLQ(taskCtx, task, err, queue); dlqErr != nil {
						c.logger.ErrorwCtx(taskCtx, "Failed to send task to DLQ",
							"error", dlqErr,
							"queue", queue,
						)
					}
				} else {
					c.logger.WarnwCtx(taskCtx, "No DLQ configured, committing task to avoid blocking",
						"queue", queue,
					)
				}
				_ = c.reader.CommitMessages(taskCtx, m)
			} else {
				if err := c.reader.CommitMessages(taskCtx, m); err != nil {
					c.logger.ErrorwCtx(taskCtx, "Failed to commit message",
						"error", err,
						"queue", queue,
					)
				}
			}
			span.End()
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

// Close waits for the receive loop to finish the task it is on, then closes
// the reader. Callers must cancel the Consume context first.
func (c *KafkaConsumer) Close() error {
	c.wg.Wait()

	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			}
		}
	}
	return err
}

func (c *KafkaConsumer) processTaskWithRetry(ctx context.Context, task models.PushTask, handler HandlerFunc, queue string) error {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	if c.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.Retry.MaxAttempts
	}
	if c.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.cfg.Retry.InitialInterval
	}
	if c.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.cfg.Retry.MaxInterval
	}
	if c.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = c.cfg.Retry.Multiplier
	}
	if c.cfg.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = c.cfg.Retry.MaxElapsedTime
	}

	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during task processing",
					"error", err,
					"queue", queue,
				)
			}
		}()
		return handler(ctx, task)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, queue).Inc()
		c.logger.WarnwCtx(ctx, "Retrying task processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"queue", queue,
		)
	})
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, task models.PushTask, originalErr error, sourceQueue string) error {
	err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, task)
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, sourceQueue, "max_retries_exceeded").Inc()
	c.logger.InfowCtx(ctx, "Task sent to DLQ",
		"source_queue", sourceQueue,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", originalErr.Error(),
	)

	return nil
}
