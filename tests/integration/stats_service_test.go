package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushflow/internal/stats"
	"pushflow/pkg/models"
)

func newStatsService(infra *TestInfra) *stats.Service {
	return stats.NewService(
		stats.NewRepository(infra.PostgresDB),
		stats.NewMessageCounters(infra.RedisClient),
		createTestLogger(),
	)
}

func TestStatsService_RecordEventWritesBothStores(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, true)

	ctx := context.Background()
	service := newStatsService(infra)

	at := time.Date(2026, 3, 14, 7, 12, 0, 0, time.UTC)
	require.NoError(t, service.RecordEvent(ctx,
		createTestEvent("shop.example", "msg-1", models.EventDelivered, models.SubtypeNone, at)))
	require.NoError(t, service.RecordEvent(ctx,
		createTestEvent("shop.example", "msg-1", models.EventDeliveryFailed, models.SubtypeInvalidSubscription, at)))
	require.NoError(t, service.RecordEvent(ctx,
		createTestEvent("shop.example", "msg-1", models.EventProcessingFailed, models.SubtypeNone, at)))

	repo := stats.NewRepository(infra.PostgresDB)
	rows, err := repo.GetStats(ctx, "shop.example", "msg-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].Sent)
	assert.Equal(t, int64(1), rows[0].Delivered)
	assert.Equal(t, int64(2), rows[0].NotDelivered)
	assert.Equal(t, int64(2), rows[0].BillableSends)

	counters := stats.NewMessageCounters(infra.RedisClient)
	sent, delivered, notDelivered, err := counters.GetMessageCounters(ctx, "shop.example", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sent)
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(2), notDelivered)
}

func TestStatsService_InteractionEventsSkipCounters(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, true)

	ctx := context.Background()
	service := newStatsService(infra)

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, service.RecordEvent(ctx,
		createTestEvent("shop.example", "msg-1", models.EventClicked, models.SubtypeNone, at)))

	repo := stats.NewRepository(infra.PostgresDB)
	rows, err := repo.GetStats(ctx, "shop.example", "msg-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Click)
	assert.Zero(t, rows[0].Sent)

	counters := stats.NewMessageCounters(infra.RedisClient)
	sent, delivered, notDelivered, err := counters.GetMessageCounters(ctx, "shop.example", "msg-1")
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, delivered)
	assert.Zero(t, notDelivered)
}

func TestStatsService_RecordEventsGroupsPerHour(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, true)

	ctx := context.Background()
	service := newStatsService(infra)

	events := []models.WebPushEvent{
		createTestEvent("shop.example", "msg-1", models.EventDelivered, models.SubtypeNone,
			time.Date(2026, 3, 14, 7, 5, 0, 0, time.UTC)),
		createTestEvent("shop.example", "msg-1", models.EventDelivered, models.SubtypeNone,
			time.Date(2026, 3, 14, 7, 55, 0, 0, time.UTC)),
		createTestEvent("shop.example", "msg-1", models.EventDeliveryFailed, models.SubtypeNone,
			time.Date(2026, 3, 14, 8, 5, 0, 0, time.UTC)),
	}
	require.NoError(t, service.RecordEvents(ctx, events))

	repo := stats.NewRepository(infra.PostgresDB)
	rows, err := repo.GetStats(ctx, "shop.example", "msg-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].Delivered)
	assert.Equal(t, int64(1), rows[1].NotDelivered)

	counters := stats.NewMessageCounters(infra.RedisClient)
	sent, _, _, err := counters.GetMessageCounters(ctx, "shop.example", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sent)
}
