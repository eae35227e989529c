package ports

import (
	"context"
	"time"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// SweepReport summarizes one batch reconciliation over the pending records.
type SweepReport struct {
	SweepID    string        `json:"sweep_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Pending    int           `json:"pending"`
	Reconciled int           `json:"reconciled"`
	Notified   int           `json:"notified"`
	Failed     int           `json:"failed"`
}

// TrackingService is the reconciliation use case exposed to transports.
type TrackingService interface {
	// ReconcileOne fetches fresh carrier data for one code, persists it and
	// returns the stored record. It never notifies.
	ReconcileOne(ctx context.Context, trackingCode string) (*domain.TrackingRecord, error)
	// ReconcilePending runs one sweep over every non-delivered record.
	ReconcilePending(ctx context.Context) (*SweepReport, error)
	// Get returns the stored record without contacting the carrier.
	Get(ctx context.Context, trackingCode string) (*domain.TrackingRecord, error)
}
