package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushflow/internal/constants"
)

func validConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "push-dispatcher",
			},
		},
		Gateway: GatewayConfig{
			BaseURL: "https://gateway.local",
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{Host: "localhost"},
			MongoDB:  MongoDBConfig{URI: "mongodb://localhost:27017"},
		},
	}
}

func TestValidateStaticFillsDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, ValidateStatic(cfg))

	assert.Equal(t, "kafka", cfg.Broker.Type)
	assert.Equal(t, constants.DefaultGatewayTimeout, cfg.Gateway.Timeout)
	assert.Equal(t, "webpush", cfg.Dispatch.Variant)
	assert.Equal(t, constants.DefaultDeliveryQueue, cfg.Dispatch.Queue)
	assert.Equal(t, constants.DefaultDispatchParallelism, cfg.Dispatch.Parallelism)
	assert.Equal(t, cfg.Dispatch.Queue, cfg.Fanout.Queue)
	assert.Equal(t, constants.DefaultFanoutChunkSize, cfg.Fanout.ChunkSize)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "migrations/postgres", cfg.Database.MigrationsPath)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidateStaticKeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Dispatch.Parallelism = 16
	cfg.Fanout.Queue = "webpush-fanout"
	cfg.Server.Port = 9000

	require.NoError(t, ValidateStatic(cfg))
	assert.Equal(t, 16, cfg.Dispatch.Parallelism)
	assert.Equal(t, "webpush-fanout", cfg.Fanout.Queue)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestValidateStaticErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{
			name:    "unsupported broker type",
			mutate:  func(c *Config) { c.Broker.Type = "rabbitmq" },
			message: "broker.type",
		},
		{
			name:    "no kafka brokers",
			mutate:  func(c *Config) { c.Broker.Kafka.Brokers = nil },
			message: "broker.kafka.brokers",
		},
		{
			name:    "no group id",
			mutate:  func(c *Config) { c.Broker.Kafka.GroupID = "" },
			message: "broker.kafka.group_id",
		},
		{
			name:    "no gateway url",
			mutate:  func(c *Config) { c.Gateway.BaseURL = "" },
			message: "gateway.base_url",
		},
		{
			name:    "no postgres host",
			mutate:  func(c *Config) { c.Database.Postgres.Host = "" },
			message: "database.postgres.host",
		},
		{
			name:    "no mongodb uri",
			mutate:  func(c *Config) { c.Database.MongoDB.URI = "" },
			message: "database.mongodb.uri",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
