// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationEvent is published after every successful reservation state
// change.  It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type ReservationEvent struct {
	Type            string  `json:"type"` // reservation.created, reservation.confirmed, ...
	ReservationID   string  `json:"reservation_id"`
	SpaceID         string  `json:"space_id"`
	RequesterID     string  `json:"requester_id"`
	Status          string  `json:"status"`
	StartDate       string  `json:"start_date"` // YYYY-MM-DD
	EndDate         string  `json:"end_date"`   // YYYY-MM-DD
	StartTime       *string `json:"start_time,omitempty"` // HH:MM, full-day when absent
	EndTime         *string `json:"end_time,omitempty"`
	Headcount       int     `json:"headcount"`
	TotalPriceCents int64   `json:"total_price_cents"`
	OccurredAt      string  `json:"occurred_at"` // RFC3339 UTC
}
