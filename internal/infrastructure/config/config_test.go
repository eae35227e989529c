package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "trackingdb", cfg.Mongo.Database)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, 300*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "tracking-events", cfg.Kafka.Topic)
	assert.Equal(t, "carriers", cfg.Carrier.Provider)
	assert.Equal(t, "http://api.carriers.com.br/client/Carriers", cfg.Carrier.BaseURL)
	assert.Empty(t, cfg.Carrier.Token)
	assert.Equal(t, 15*time.Second, cfg.Carrier.Timeout)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "@every 60s", cfg.Sweep.Schedule)
	assert.Equal(t, 1, cfg.Sweep.Workers)
	assert.False(t, cfg.AdminEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":               "8080",
		"KAFKA_BROKERS":      "k1:9092,k2:9092",
		"CACHE_TTL":          "1m",
		"CARRIERS_API_TOKEN": "secret",
		"CARRIER_TIMEZONE":   "America/Sao_Paulo",
		"SWEEP_WORKERS":      "4",
		"JWT_SECRET":         "jwt",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "secret", cfg.Carrier.Token)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
	assert.Equal(t, 4, cfg.Sweep.Workers)
	assert.True(t, cfg.AdminEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"SWEEP_WORKERS":    "0",
		"CARRIER_TIMEZONE": "Mars/Olympus",
		"CACHE_TTL":        "0s",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_WORKERS")
	assert.Contains(t, err.Error(), "CARRIER_TIMEZONE")
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_Unparsable(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"CARRIER_TIMEOUT": "soon",
	}))
	require.Error(t, err)
}
