package stats

import (
	"context"
	"fmt"

	"pushflow/internal/logger"
	"pushflow/pkg/metrics"
	"pushflow/pkg/models"
)

// Service feeds delivery and interaction events into both stats paths: the
// hourly aggregate table and the best-effort all-time per-message counters.
type Service struct {
	repo     Repository
	counters MessageCounters
	logger   logger.Logger
}

func NewService(repo Repository, counters MessageCounters, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		counters: counters,
		logger:   log,
	}
}

// RecordEvent maps one event and applies it to both stores. A failure of the
// all-time counters is logged and swallowed; that read-model must never fail
// the delivery path. A failure of the hourly upsert is returned.
func (s *Service) RecordEvent(ctx context.Context, event models.WebPushEvent) error {
	delta := MapEvent(event)

	if delta.Sent != 0 || delta.Delivered != 0 || delta.NotDelivered != 0 {
		if err := s.counters.IncrementMessageCounters(ctx, event.Domain, event.MessageID, delta.Sent, delta.Delivered, delta.NotDelivered); err != nil {
			metrics.StatsWriteFailuresTotal.WithLabelValues("message_counters").Inc()
			s.logger.ErrorwCtx(ctx, "Failed to update all-time message counters",
				"error", err,
				"event_type", event.Type,
			)
		}
	}

	if err := s.repo.UpsertStats(ctx, delta); err != nil {
		metrics.StatsWriteFailuresTotal.WithLabelValues("message_stats").Inc()
		return fmt.Errorf("failed to record event in hourly stats: %w", err)
	}
	return nil
}

// RecordEvents aggregates an arbitrary event collection and applies one upsert
// per (domain, message_id, hour) group. Used for back-fill; the all-time
// counters are updated per group as well.
func (s *Service) RecordEvents(ctx context.Context, events []models.WebPushEvent) error {
	for _, delta := range MapEvents(events) {
		if delta.Sent != 0 || delta.Delivered != 0 || delta.NotDelivered != 0 {
			if err := s.counters.IncrementMessageCounters(ctx, delta.Domain, delta.MessageID, delta.Sent, delta.Delivered, delta.NotDelivered); err != nil {
				metrics.StatsWriteFailuresTotal.WithLabelValues("message_counters").Inc()
				s.logger.ErrorwCtx(ctx, "Failed to update all-time message counters",
					"error", err,
					"domain", delta.Domain,
					"message_id", delta.MessageID,
				)
			}
		}

		if err := s.repo.UpsertStats(ctx, delta); err != nil {
			metrics.StatsWriteFailuresTotal.WithLabelValues("message_stats").Inc()
			return fmt.Errorf("failed to record events in hourly stats: %w", err)
		}
	}
	return nil
}
