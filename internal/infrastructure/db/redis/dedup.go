package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

const dedupTTL = 24 * time.Hour

// NotificationDedup implements ports.NotificationDedup with SET NX.
// Key format: notify:<tracking_code>:<status_code>:<unix_timestamp>
type NotificationDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewNotificationDedup wraps client. Claims expire after ttl, or a day when
// ttl is not positive.
func NewNotificationDedup(client *redis.Client, ttl time.Duration) *NotificationDedup {
	if ttl <= 0 {
		ttl = dedupTTL
	}
	return &NotificationDedup{client: client, ttl: ttl}
}

// Claim reports whether this process is the first to notify latest for
// trackingCode.
func (d *NotificationDedup) Claim(ctx context.Context, trackingCode string, latest domain.Event) (bool, error) {
	ok, err := d.client.SetNX(ctx, notifyKey(trackingCode, latest), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

func notifyKey(trackingCode string, latest domain.Event) string {
	return fmt.Sprintf("notify:%s:%d:%d", trackingCode, latest.StatusCode, latest.Timestamp.Unix())
}
