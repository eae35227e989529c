package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// ResponseCache implements ports.ResponseCache on Redis.
// Key format: tracking:response:<tracking_code>
type ResponseCache struct {
	client *redis.Client
}

func NewResponseCache(client *redis.Client) *ResponseCache {
	return &ResponseCache{client: client}
}

// Get returns the cached response. A missing or expired key is a miss.
func (c *ResponseCache) Get(ctx context.Context, trackingCode string) (*domain.CarrierResponse, bool, error) {
	raw, err := c.client.Get(ctx, responseKey(trackingCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

// Set stores resp for ttl.
func (c *ResponseCache) Set(ctx context.Context, trackingCode string, resp *domain.CarrierResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, responseKey(trackingCode), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *ResponseCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func responseKey(trackingCode string) string {
	return "tracking:response:" + trackingCode
}

func decodeResponse(raw []byte) (*domain.CarrierResponse, error) {
	var resp domain.CarrierResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &resp, nil
}
