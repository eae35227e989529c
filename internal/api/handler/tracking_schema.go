package handler

import (
	"time"

	"github.com/99minutos/tracking-service/internal/core/domain"
	"github.com/99minutos/tracking-service/internal/core/ports"
)

// --- Request / Response types ---

type trackingCodeRequest struct {
	Code string `validate:"required,max=64,printascii"`
}

type eventResponse struct {
	Timestamp  string `json:"timestamp"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Location   string `json:"location"`
}

type trackingResponse struct {
	ID           string          `json:"id,omitempty"`
	TrackingCode string          `json:"tracking_code"`
	Carrier      string          `json:"carrier"`
	Delivered    bool            `json:"delivered"`
	LatestEvent  *eventResponse  `json:"latest_event,omitempty"`
	Events       []eventResponse `json:"events"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

type sweepResponse struct {
	SweepID    string `json:"sweep_id"`
	StartedAt  string `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
	Pending    int    `json:"pending"`
	Reconciled int    `json:"reconciled"`
	Notified   int    `json:"notified"`
	Failed     int    `json:"failed"`
}

type providersResponse struct {
	Active    string   `json:"active"`
	Providers []string `json:"providers"`
}

// --- Mappers ---

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339),
		Status:     e.Status,
		StatusCode: e.StatusCode,
		Location:   e.Location,
	}
}

func toTrackingResponse(rec *domain.TrackingRecord) trackingResponse {
	events := make([]eventResponse, 0, len(rec.Events))
	for _, e := range rec.Events {
		events = append(events, toEventResponse(e))
	}

	resp := trackingResponse{
		ID:           rec.ID,
		TrackingCode: rec.TrackingCode,
		Carrier:      rec.Carrier,
		Delivered:    rec.Delivered(),
		Events:       events,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if latest, ok := domain.LatestEvent(rec.Events); ok {
		ev := toEventResponse(latest)
		resp.LatestEvent = &ev
	}
	return resp
}

func toSweepResponse(r *ports.SweepReport) sweepResponse {
	return sweepResponse{
		SweepID:    r.SweepID,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		DurationMs: r.Duration.Milliseconds(),
		Pending:    r.Pending,
		Reconciled: r.Reconciled,
		Notified:   r.Notified,
		Failed:     r.Failed,
	}
}
