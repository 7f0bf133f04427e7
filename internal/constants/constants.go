package constants

import "time"

const (
	KafkaBatchTimeout = 100 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second

	ShutdownTimeout = 10 * time.Second

	// DefaultDeliveryQueue is the queue the default webpush sender variant
	// consumes from.
	DefaultDeliveryQueue = "webpush-delivery"

	DefaultDispatchParallelism = 4
	DefaultFanoutChunkSize     = 500

	DefaultGatewayTimeout = 15 * time.Second

	// Hourly stats table name; field names are compatibility-critical.
	MessageStatsTable = "message_stats"

	ContactsCollection = "contacts"

	// Redis key prefix for the best-effort all-time message counters.
	MessageCountersKeyPrefix = "pushflow:message:counters:"
)
