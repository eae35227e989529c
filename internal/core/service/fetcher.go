package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/tracking-service/internal/core/domain"
	"github.com/99minutos/tracking-service/internal/core/ports"
	"github.com/99minutos/tracking-service/internal/infrastructure/metrics"
)

// DefaultCacheTTL bounds how stale a cached carrier response can be.
const DefaultCacheTTL = 300 * time.Second

// Fetcher reads carrier responses through a TTL cache. Cache entries are
// never invalidated by writes, so staleness is bounded only by the TTL.
type Fetcher struct {
	provider ports.CarrierProvider
	cache    ports.ResponseCache
	ttl      time.Duration
	log      zerolog.Logger
}

// NewFetcher returns a Fetcher. cache may be nil, in which case every call
// goes to the provider. A non-positive ttl selects DefaultCacheTTL.
func NewFetcher(provider ports.CarrierProvider, cache ports.ResponseCache, ttl time.Duration, log zerolog.Logger) *Fetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Fetcher{provider: provider, cache: cache, ttl: ttl, log: log}
}

// ProviderName is the name of the provider behind the cache.
func (f *Fetcher) ProviderName() string {
	return f.provider.Name()
}

// Fetch returns the carrier response for trackingCode, from cache when fresh.
// A provider without credentials fails with domain.ErrAuthentication even when
// the cache holds an entry.
func (f *Fetcher) Fetch(ctx context.Context, trackingCode string) (*domain.CarrierResponse, error) {
	if c, ok := f.provider.(ports.CredentialChecker); ok {
		if err := c.CheckCredentials(); err != nil {
			return nil, err
		}
	}

	if f.cache != nil {
		resp, ok, err := f.cache.Get(ctx, trackingCode)
		switch {
		case err != nil:
			metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
			f.log.Warn().Err(err).Str("tracking_code", trackingCode).Msg("cache read failed, fetching from carrier")
		case ok:
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return resp, nil
		default:
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		}
	}

	return f.fetchLive(ctx, trackingCode)
}

func (f *Fetcher) fetchLive(ctx context.Context, trackingCode string) (*domain.CarrierResponse, error) {
	resp, err := f.provider.FetchTrackingInfo(ctx, trackingCode)
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) || errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	if len(resp.Events) == 0 {
		return nil, fmt.Errorf("%w: %s returned no events for %s", domain.ErrUpstream, f.provider.Name(), trackingCode)
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, trackingCode, resp, f.ttl); err != nil {
			f.log.Warn().Err(err).Str("tracking_code", trackingCode).Msg("cache write failed")
		}
	}
	return resp, nil
}
