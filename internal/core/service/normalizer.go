package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

const isoLocalLayout = "2006-01-02T15:04:05"

// NormalizeEvents converts carrier events into domain events. Carrier dates
// come as "DD-MM-YYYY HH:MM:SS"; they are rebuilt as ISO-8601 and parsed in
// loc (UTC when nil).
func NormalizeEvents(raw []domain.RawEvent, loc *time.Location) ([]domain.Event, error) {
	if loc == nil {
		loc = time.UTC
	}

	events := make([]domain.Event, 0, len(raw))
	for i, r := range raw {
		ts, err := parseCarrierDate(r.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("normalize event %d: %w", i, err)
		}
		events = append(events, domain.Event{
			Timestamp:  ts,
			Status:     r.Description,
			StatusCode: r.StatusID,
		})
	}
	return events, nil
}

// parseCarrierDate turns "25-12-2024 14:30:00" into 2024-12-25T14:30:00.
func parseCarrierDate(s string, loc *time.Location) (time.Time, error) {
	datePart, timePart, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: date %q has no time part", domain.ErrValidation, s)
	}

	parts := strings.Split(datePart, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: date %q is not DD-MM-YYYY", domain.ErrValidation, s)
	}
	day, month, year := parts[0], parts[1], parts[2]

	iso := year + "-" + month + "-" + day + "T" + strings.TrimSpace(timePart)
	ts, err := time.ParseInLocation(isoLocalLayout, iso, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", domain.ErrValidation, s, err)
	}
	return ts, nil
}
