package ports

import (
	"context"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// Notifier publishes an updated tracking record downstream.
type Notifier interface {
	Publish(ctx context.Context, record *domain.TrackingRecord) error
}

// NotificationDedup guards against publishing the same status change twice
// when several processes sweep the same records.
type NotificationDedup interface {
	// Claim reports true for the first caller of a (code, event) pair.
	Claim(ctx context.Context, trackingCode string, latest domain.Event) (bool, error)
}
