package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"pushflow/internal/constants"
)

// MessageCounters is the coarse all-time per-message read-model, updated per
// individual event independently of the hourly table. It may drift from the
// hourly table under partial failure and is not the source of truth.
type MessageCounters interface {
	IncrementMessageCounters(ctx context.Context, domain, messageID string, sent, delivered, notDelivered int64) error
	GetMessageCounters(ctx context.Context, domain, messageID string) (sent, delivered, notDelivered int64, err error)
}

type RedisCounters struct {
	client *redis.Client
}

func NewMessageCounters(client *redis.Client) MessageCounters {
	return &RedisCounters{client: client}
}

func countersKey(domain, messageID string) string {
	return constants.MessageCountersKeyPrefix + domain + ":" + messageID
}

func (c *RedisCounters) IncrementMessageCounters(ctx context.Context, domain, messageID string, sent, delivered, notDelivered int64) error {
	key := countersKey(domain, messageID)

	pipe := c.client.Pipeline()
	if sent != 0 {
		pipe.HIncrBy(ctx, key, "sent", sent)
	}
	if delivered != 0 {
		pipe.HIncrBy(ctx, key, "delivered", delivered)
	}
	if notDelivered != 0 {
		pipe.HIncrBy(ctx, key, "not_delivered", notDelivered)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment message counters: %w", err)
	}
	return nil
}

func (c *RedisCounters) GetMessageCounters(ctx context.Context, domain, messageID string) (int64, int64, int64, error) {
	values, err := c.client.HGetAll(ctx, countersKey(domain, messageID)).Result()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to read message counters: %w", err)
	}

	parse := func(field string) int64 {
		v, _ := strconv.ParseInt(values[field], 10, 64)
		return v
	}
	return parse("sent"), parse("delivered"), parse("not_delivered"), nil
}
