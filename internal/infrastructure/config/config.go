package config

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=3000"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET"`

	Log     LogConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Carrier CarrierConfig
	Sweep   SweepConfig
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,  default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
	File   string `env:"LOG_FILE"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=trackingdb"`
}

type RedisConfig struct {
	URL      string        `env:"REDIS_URL, default=redis://localhost:6379"`
	CacheTTL time.Duration `env:"CACHE_TTL, default=300s"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS, default=localhost:9092"`
	Topic   string   `env:"KAFKA_TOPIC,   default=tracking-events"`
}

type CarrierConfig struct {
	Provider string        `env:"TRACKING_PROVIDER,  default=carriers"`
	BaseURL  string        `env:"API_URL_CARRIERS,   default=http://api.carriers.com.br/client/Carriers"`
	Token    string        `env:"CARRIERS_API_TOKEN"`
	Timeout  time.Duration `env:"CARRIER_TIMEOUT,    default=15s"`
	TimeZone string        `env:"CARRIER_TIMEZONE,   default=UTC"`
}

type SweepConfig struct {
	Schedule string `env:"SWEEP_SCHEDULE, default=@every 60s"`
	Workers  int    `env:"SWEEP_WORKERS,  default=1"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Redis.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must list at least one broker"))
	}
	if c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC must not be empty"))
	}
	if c.Carrier.Timeout <= 0 {
		errs = append(errs, errors.New("CARRIER_TIMEOUT must be positive"))
	}
	if _, err := time.LoadLocation(c.Carrier.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("CARRIER_TIMEZONE: %w", err))
	}
	if c.Sweep.Workers < 1 {
		errs = append(errs, errors.New("SWEEP_WORKERS must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the carrier time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Carrier.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AdminEnabled reports whether the JWT protected admin routes are served.
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != ""
}
