package config

import (
	"fmt"
	"strings"

	"pushflow/internal/constants"
)

// ValidateStatic checks the parts of the configuration that must be correct
// before the process can start, and fills in defaults for optional knobs.
func ValidateStatic(cfg *Config) error {
	var problems []string

	if cfg.Broker.Type == "" {
		cfg.Broker.Type = "kafka"
	}
	if cfg.Broker.Type != "kafka" {
		problems = append(problems, fmt.Sprintf("broker.type %q is not supported", cfg.Broker.Type))
	}
	if len(cfg.Broker.Kafka.Brokers) == 0 {
		problems = append(problems, "broker.kafka.brokers must not be empty")
	}
	if cfg.Broker.Kafka.GroupID == "" {
		problems = append(problems, "broker.kafka.group_id must not be empty")
	}

	if cfg.Gateway.BaseURL == "" {
		problems = append(problems, "gateway.base_url must not be empty")
	}
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = constants.DefaultGatewayTimeout
	}

	if cfg.Dispatch.Variant == "" {
		cfg.Dispatch.Variant = "webpush"
	}
	if cfg.Dispatch.Queue == "" {
		cfg.Dispatch.Queue = constants.DefaultDeliveryQueue
	}
	if cfg.Dispatch.Parallelism <= 0 {
		cfg.Dispatch.Parallelism = constants.DefaultDispatchParallelism
	}

	if cfg.Fanout.Queue == "" {
		cfg.Fanout.Queue = cfg.Dispatch.Queue
	}
	if cfg.Fanout.ChunkSize <= 0 {
		cfg.Fanout.ChunkSize = constants.DefaultFanoutChunkSize
	}

	if cfg.Database.Postgres.Host == "" {
		problems = append(problems, "database.postgres.host must not be empty")
	}
	if cfg.Database.MongoDB.URI == "" {
		problems = append(problems, "database.mongodb.uri must not be empty")
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations/postgres"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
