package dispatch

import (
	"context"
	"time"

	"pushflow/internal/classify"
	"pushflow/internal/gateway"
	"pushflow/internal/logger"
	"pushflow/pkg/metrics"
	"pushflow/pkg/models"
)

// ContactRemover is the slice of the contact store the pipeline needs.
type ContactRemover interface {
	MarkDeleted(ctx context.Context, domain, endpoint string) error
}

// EventRecorder is the slice of the stats service the pipeline needs.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event models.WebPushEvent) error
}

// Pipeline is the shared classify-and-record stage injected into every sender
// variant. For each classified outcome it emits at most one event into the
// stats paths and raises the contact-removal signal on permanent failures.
type Pipeline struct {
	stats    EventRecorder
	contacts ContactRemover
	logger   logger.Logger
}

func NewPipeline(stats EventRecorder, contacts ContactRemover, log logger.Logger) *Pipeline {
	return &Pipeline{
		stats:    stats,
		contacts: contacts,
		logger:   log,
	}
}

// Record turns one classification into its delivery facts. It never returns
// an error for stats-store failures: those are logged and must not trigger a
// queue redelivery of the task.
func (p *Pipeline) Record(ctx context.Context, variant string, task models.PushTask, result classify.Result) {
	now := time.Now().UTC()

	switch {
	case result.FailedProcessing:
		// The call itself failed; no delivery fact is known, so no event
		// is emitted and no counters move.
		metrics.DispatchOutcomesTotal.WithLabelValues(variant, "failed_processing").Inc()
		p.logger.ErrorwCtx(ctx, "Push delivery processing failed",
			"error_message", result.ErrorMessage,
		)
		return

	case result.None():
		return

	case result.DeliveredOK:
		metrics.DispatchOutcomesTotal.WithLabelValues(variant, "delivered").Inc()
		p.recordEvent(ctx, task, models.EventDelivered, models.SubtypeNone, now)

	case result.RateLimited:
		// TODO: route rate-limited sends to a re-queue path instead of
		// counting them as attempts once the gateway exposes Retry-After.
		metrics.DispatchOutcomesTotal.WithLabelValues(variant, "rate_limited").Inc()
		p.logger.WarnwCtx(ctx, "Push delivery rate limited by gateway",
			"endpoint", task.Subscription.Endpoint,
			"error_message", result.ErrorMessage,
		)
		p.recordEvent(ctx, task, models.EventDeliveryFailedButRetry, models.SubtypeNone, now)

	case result.InvalidSubscription:
		metrics.DispatchOutcomesTotal.WithLabelValues(variant, "invalid_subscription").Inc()
		p.recordEvent(ctx, task, models.EventDeliveryFailed, models.SubtypeInvalidSubscription, now)
		p.removeContact(ctx, task)

	case result.UnknownFailure:
		metrics.DispatchOutcomesTotal.WithLabelValues(variant, "unknown_failure").Inc()
		p.logger.ErrorwCtx(ctx, "Push delivery failed",
			"endpoint", task.Subscription.Endpoint,
			"error_message", result.ErrorMessage,
		)
		p.recordEvent(ctx, task, models.EventDeliveryFailed, models.SubtypeNone, now)
	}
}

func (p *Pipeline) recordEvent(ctx context.Context, task models.PushTask, eventType models.EventType, subtype models.EventSubtype, eventTime time.Time) {
	event := models.WebPushEvent{
		Domain:    task.Domain,
		MessageID: task.MessageID,
		EventTime: eventTime,
		Type:      eventType,
		Subtype:   subtype,
	}

	if err := p.stats.RecordEvent(ctx, event); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to record delivery event",
			"error", err,
			"event_type", eventType,
		)
	}
}

func (p *Pipeline) removeContact(ctx context.Context, task models.PushTask) {
	if err := p.contacts.MarkDeleted(ctx, task.Domain, task.Subscription.Endpoint); err != nil {
		metrics.ContactRemovalsTotal.WithLabelValues("error").Inc()
		p.logger.ErrorwCtx(ctx, "Failed to mark contact deleted",
			"error", err,
			"endpoint", task.Subscription.Endpoint,
		)
		return
	}
	metrics.ContactRemovalsTotal.WithLabelValues("ok").Inc()
}

// WebPushVariant is the default sender variant: one gateway call per task,
// classified and recorded through the shared pipeline.
type WebPushVariant struct {
	queue    string
	client   gateway.Client
	pipeline *Pipeline
	logger   logger.Logger
}

func NewWebPushVariant(queue string, client gateway.Client, pipeline *Pipeline, log logger.Logger) *WebPushVariant {
	return &WebPushVariant{
		queue:    queue,
		client:   client,
		pipeline: pipeline,
		logger:   log,
	}
}

func (v *WebPushVariant) Name() string {
	return "webpush"
}

func (v *WebPushVariant) Queue() string {
	return v.queue
}

// Handle processes one push task. It always returns nil: every outcome,
// including a transport failure, has been classified and recorded, and the
// queue must not redeliver.
func (v *WebPushVariant) Handle(ctx context.Context, task models.PushTask) error {
	req := gateway.SendRequest{
		Subscriptions: []gateway.SubscriptionPayload{
			{
				Endpoint: task.Subscription.Endpoint,
				P256DH:   task.Subscription.P256DH,
				Auth:     task.Subscription.Auth,
				Extra: gateway.SubscriptionExtras{
					ClickedEventEndpoint:  task.ClickedEventEndpoint,
					ReceivedEventEndpoint: task.ReceivedEventEndpoint,
				},
			},
		},
		Title:       task.Title,
		Body:        task.Body,
		OnClickLink: task.Link,
		ImageURL:    task.ImageURL,
	}

	resp, err := v.client.Send(ctx, req)
	result := classify.Classify(resp, err)
	v.pipeline.Record(ctx, v.Name(), task, result)

	return nil
}
