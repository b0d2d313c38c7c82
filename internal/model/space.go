package model

import "time"

// Space represents a reservable physical resource: a room, desk, court or
// similar shared facility.  The core only reads spaces; creation and
// maintenance happen in an external management flow.  This struct
// corresponds to a row in the `spaces` table.
//
// Fields:
//  ID               – opaque UUID identifier.
//  OperatorID       – user ID of the operator managing this space.
//  Name             – display name of the space.
//  Capacity         – maximum headcount; always >= 1.
//  RatePerDayCents  – tariff applied per occupied day, in cents.
//  RatePerHourCents – optional sub-day tariff in cents (nil when the space
//                     is priced per day only).
//  IsActive         – inactive spaces accept no new reservations.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Space struct {
	ID               string    // spaces.id
	OperatorID       string    // spaces.operator_id
	Name             string    // spaces.name
	Capacity         int       // spaces.capacity
	RatePerDayCents  int64     // spaces.rate_per_day_cents
	RatePerHourCents *int64    // spaces.rate_per_hour_cents (nullable)
	IsActive         bool      // spaces.is_active
	CreatedAt        time.Time // spaces.created_at
	UpdatedAt        time.Time // spaces.updated_at
}
