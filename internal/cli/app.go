package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/tracking-service/internal/api/handler"
	"github.com/99minutos/tracking-service/internal/core/domain"
	"github.com/99minutos/tracking-service/internal/core/ports"
	"github.com/99minutos/tracking-service/internal/core/service"
	"github.com/99minutos/tracking-service/internal/infrastructure/carrier"
	"github.com/99minutos/tracking-service/internal/infrastructure/config"
	"github.com/99minutos/tracking-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/tracking-service/internal/infrastructure/db/redis"
	"github.com/99minutos/tracking-service/internal/infrastructure/kafka"
	"github.com/99minutos/tracking-service/internal/infrastructure/queue"
)

const appName = "trackingd"

// app holds the process scoped clients and the service built on them.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *carrier.Registry
	service  *service.TrackingService
	health   map[string]handler.Pinger
	closers  []func(ctx context.Context) error
}

// newApp connects every dependency. On failure the clients opened so far
// are released.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log, health: make(map[string]handler.Pinger)}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  appName,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(func(ctx context.Context) error { return mongo.Disconnect(ctx, mongoClient) })

	repo := mongo.NewTrackingRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	a.health["mongodb"] = repo

	rdb, err := redisdb.Connect(ctx, redisdb.Config{URL: cfg.Redis.URL})
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return closeRedis(rdb) })

	cache := redisdb.NewResponseCache(rdb)
	a.health["redis"] = cache

	writer := kafka.NewWriter(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
	notifier := kafka.NewNotifier(writer, cfg.Kafka.Topic, log)
	a.onClose(func(context.Context) error { return notifier.Close() })
	a.health["kafka"] = kafka.NewPinger(cfg.Kafka.Brokers)

	a.registry = carrier.NewRegistry(
		carrier.NewCarriersProvider(carrier.Config{
			BaseURL: cfg.Carrier.BaseURL,
			Token:   cfg.Carrier.Token,
			Timeout: cfg.Carrier.Timeout,
		}, log),
	)
	provider, err := a.registry.Resolve(cfg.Carrier.Provider)
	if err != nil {
		return nil, err
	}
	if cfg.Carrier.Token == "" {
		log.Warn().Msg("CARRIERS_API_TOKEN not set, carrier fetches will fail")
	}

	fetcher := service.NewFetcher(provider, cache, cfg.Redis.CacheTTL, log)
	a.service = service.NewTrackingService(repo, fetcher, notifier, log,
		service.WithDedup(redisdb.NewNotificationDedup(rdb, 0)),
		service.WithFanout(queue.NewPool(cfg.Sweep.Workers, log)),
		service.WithLocation(cfg.Location()),
	)

	log.Info().
		Str("provider", provider.Name()).
		Str("topic", cfg.Kafka.Topic).
		Int("sweep_workers", cfg.Sweep.Workers).
		Msg("dependencies ready")

	return a, nil
}

func (a *app) onClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases clients in reverse order of creation.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func closeRedis(c *redis.Client) error {
	if err := c.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// sweepJob adapts the sweep to the scheduler. A sweep still running from a
// previous tick is not a failure.
func sweepJob(svc ports.TrackingService, log zerolog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if _, err := svc.ReconcilePending(ctx); err != nil {
			if errors.Is(err, domain.ErrSweepInProgress) {
				log.Debug().Msg("previous sweep still running, tick skipped")
				return nil
			}
			return err
		}
		return nil
	}
}
