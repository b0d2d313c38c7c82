package model

import (
	"time"

	"github.com/avierra/space-reservation/internal/interval"
)

// Reservation statuses.  PENDING and CONFIRMED reservations are "live" and
// count toward conflicts; COMPLETED and CANCELLED are terminal.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// IsLiveStatus reports whether a reservation in the given status still
// occupies its interval.
func IsLiveStatus(s string) bool { return s == StatusPending || s == StatusConfirmed }

// IsTerminalStatus reports whether the given status admits no further
// transitions.
func IsTerminalStatus(s string) bool { return s == StatusCompleted || s == StatusCancelled }

// Reservation records a request to occupy a space over a date interval,
// optionally narrowed to a time-of-day window.  Prices are derived at
// creation (and re-derived when the interval or headcount changes) and
// stored denormalized.  Corresponds to a row in the `reservations` table.
//
// Fields:
//  ID                    – opaque UUID identifier.
//  SpaceID               – space being occupied.
//  RequesterID           – user who requested the reservation.
//  StartDate             – first occupied date (inclusive).
//  EndDate               – last occupied date (inclusive, >= StartDate).
//  StartMin              – optional time-of-day window start, minutes from
//                          midnight.  Set together with EndMin or not at all.
//  EndMin                – optional time-of-day window end.
//  Headcount             – number of occupants; <= space capacity.
//  Status                – PENDING, CONFIRMED, COMPLETED or CANCELLED.
//  BasePriceCents        – rate per day x day count.
//  FeesCents             – service fee derived from the base price.
//  ExtraOccupantFeeCents – reserved for tiered pricing; currently zero.
//  TotalPriceCents       – base + fees + extra-occupant fee.
//  Days                  – inclusive day count of the interval.
//  Note                  – free-text note from the requester.
//  CancelReason          – reason recorded when cancelled (nullable).
//  CancelledAt           – when the reservation was cancelled (nullable).
//  CreatedAt             – creation timestamp.
//  UpdatedAt             – last update timestamp.
type Reservation struct {
	ID                    string     // reservations.id
	SpaceID               string     // reservations.space_id
	RequesterID           string     // reservations.requester_id
	StartDate             time.Time  // reservations.start_date
	EndDate               time.Time  // reservations.end_date
	StartMin              *int       // reservations.start_min (nullable)
	EndMin                *int       // reservations.end_min (nullable)
	Headcount             int        // reservations.headcount
	Status                string     // reservations.status
	BasePriceCents        int64      // reservations.base_price_cents
	FeesCents             int64      // reservations.fees_cents
	ExtraOccupantFeeCents int64      // reservations.extra_occupant_fee_cents
	TotalPriceCents       int64      // reservations.total_price_cents
	Days                  int        // reservations.days
	Note                  string     // reservations.note
	CancelReason          *string    // reservations.cancel_reason (nullable)
	CancelledAt           *time.Time // reservations.cancelled_at (nullable)
	CreatedAt             time.Time  // reservations.created_at
	UpdatedAt             time.Time  // reservations.updated_at
}

// Interval returns the reservation's occupied window as an interval value.
func (r *Reservation) Interval() interval.Interval {
	return interval.Interval{
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		StartMin:  r.StartMin,
		EndMin:    r.EndMin,
	}
}

// Conflict is a transient result describing an existing live reservation
// whose interval overlaps a candidate interval for the same space.  It is
// never stored; it exists only to reject creation and update attempts with
// enough detail for diagnostic display.
type Conflict struct {
	ReservationID  string    // conflicting reservation
	RequesterID    string    // who holds it
	RequesterEmail string    // contact for diagnostic display
	Status         string    // PENDING or CONFIRMED
	StartDate      time.Time // conflicting interval start
	EndDate        time.Time // conflicting interval end
	StartMin       *int      // optional time window start
	EndMin         *int      // optional time window end
}
