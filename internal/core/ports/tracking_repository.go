package ports

import (
	"context"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// TrackingRepository persists tracking records keyed by tracking code.
type TrackingRepository interface {
	// FindByCode returns domain.ErrTrackingNotFound when no record exists.
	FindByCode(ctx context.Context, trackingCode string) (*domain.TrackingRecord, error)
	// Upsert atomically creates the record or replaces its events. Tracking code
	// and carrier are only written on creation. The stored document is returned.
	Upsert(ctx context.Context, record *domain.TrackingRecord) (*domain.TrackingRecord, error)
	// FindPending returns every record without a delivered event.
	FindPending(ctx context.Context) ([]*domain.TrackingRecord, error)
}
