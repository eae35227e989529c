package domain

import "time"

// StatusCodeDelivered is the carrier status id for a completed delivery.
// A record holding an event with this code is terminal and is never polled again.
const StatusCodeDelivered = 101

// Event is a normalized carrier event. Events are values: a new carrier status
// always arrives as a new Event, existing ones are never edited in place.
type Event struct {
	Timestamp  time.Time `json:"timestamp"   bson:"timestamp"`
	Status     string    `json:"status"      bson:"status"`
	StatusCode int       `json:"status_code" bson:"status_code"`
	Location   string    `json:"location"    bson:"location"`
}

// IsDelivered reports whether the event carries the terminal delivered code.
func (e Event) IsDelivered() bool {
	return e.StatusCode == StatusCodeDelivered
}

// TrackingRecord is the persisted delivery state for one tracking code.
//
// TrackingCode and Carrier are fixed when the record is created. Events is the
// full history reported by the carrier and is replaced as a whole on every
// reconciliation.
type TrackingRecord struct {
	ID           string    `json:"id,omitempty"  bson:"_id,omitempty"`
	TrackingCode string    `json:"tracking_code" bson:"tracking_code"`
	Carrier      string    `json:"carrier"       bson:"carrier"`
	Events       []Event   `json:"events"        bson:"events"`
	CreatedAt    time.Time `json:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    bson:"updated_at"`
}

// Delivered reports whether any event of the record is terminal.
func (r *TrackingRecord) Delivered() bool {
	for _, e := range r.Events {
		if e.IsDelivered() {
			return true
		}
	}
	return false
}
