package handler // handler defines http handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
)

// Validator adapts go-playground/validator to Echo's Validator interface.
// Register it on the Echo instance so handlers can call c.Validate.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// callerFrom builds the booking caller from the JWT claims the auth
// middleware stored in the context.
func callerFrom(c echo.Context) (booking.Caller, error) {
	id, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	if id == "" || role == "" {
		return booking.Caller{}, errors.New("missing identity in context")
	}
	return booking.Caller{ID: id, Role: role}, nil
}

// statusForKind maps booking error kinds onto HTTP status codes.  The
// lifecycle service never deals in status codes, so this table is the only
// place the mapping exists.
func statusForKind(kind booking.Kind) int {
	switch kind {
	case booking.KindInvalidInterval, booking.KindPastDateBooking,
		booking.KindCapacityExceeded, booking.KindNoFieldsToUpdate,
		booking.KindInvalidStatus:
		return http.StatusBadRequest
	case booking.KindUnauthorized:
		return http.StatusForbidden
	case booking.KindSpaceNotFound, booking.KindNotFound,
		booking.KindNotFoundOrAlreadyProcessed, booking.KindNotFoundOrNotConfirmed:
		return http.StatusNotFound
	case booking.KindAvailabilityConflict, booking.KindNotCancellable,
		booking.KindCancellationWindowExpired, booking.KindSerializationConflict:
		return http.StatusConflict
	case booking.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeBookingErr renders a booking error as JSON.  Availability conflicts
// carry the list of blocking reservations so clients can show what is in
// the way.  Anything outside the booking taxonomy is a plain 500.
func writeBookingErr(c echo.Context, err error) error {
	var bErr *booking.Error
	if !errors.As(err, &bErr) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	body := echo.Map{
		"error": bErr.Message,
		"code":  string(bErr.Kind),
	}
	if len(bErr.Conflicts) > 0 {
		body["conflicts"] = conflictParts(bErr.Conflicts)
	}
	return c.JSON(statusForKind(bErr.Kind), body)
}

// ----- shared response shapes -----

type conflictPart struct {
	ReservationID  string  `json:"reservation_id"`
	RequesterID    string  `json:"requester_id"`
	RequesterEmail string  `json:"requester_email,omitempty"`
	Status         string  `json:"status"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	StartTime      *string `json:"start_time,omitempty"`
	EndTime        *string `json:"end_time,omitempty"`
}

func conflictParts(conflicts []model.Conflict) []conflictPart {
	out := make([]conflictPart, 0, len(conflicts))
	for _, cf := range conflicts {
		p := conflictPart{
			ReservationID:  cf.ReservationID,
			RequesterID:    cf.RequesterID,
			RequesterEmail: cf.RequesterEmail,
			Status:         cf.Status,
			StartDate:      cf.StartDate.Format(interval.DateLayout),
			EndDate:        cf.EndDate.Format(interval.DateLayout),
		}
		if cf.StartMin != nil {
			s := interval.FormatTimeOfDay(*cf.StartMin)
			p.StartTime = &s
		}
		if cf.EndMin != nil {
			e := interval.FormatTimeOfDay(*cf.EndMin)
			p.EndTime = &e
		}
		out = append(out, p)
	}
	return out
}

type reservationResp struct {
	ID              string  `json:"id"`
	SpaceID         string  `json:"space_id"`
	RequesterID     string  `json:"requester_id"`
	Status          string  `json:"status"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	StartTime       *string `json:"start_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty"`
	Headcount       int     `json:"headcount"`
	Days            int     `json:"days"`
	BasePriceCents  int64   `json:"base_price_cents"`
	FeesCents       int64   `json:"fees_cents"`
	TotalPriceCents int64   `json:"total_price_cents"`
	TotalPrice      string  `json:"total_price"`
	Note            string  `json:"note,omitempty"`
	CancelReason    *string `json:"cancel_reason,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toReservationResp(r *model.Reservation) reservationResp {
	resp := reservationResp{
		ID:              r.ID,
		SpaceID:         r.SpaceID,
		RequesterID:     r.RequesterID,
		Status:          r.Status,
		StartDate:       r.StartDate.Format(interval.DateLayout),
		EndDate:         r.EndDate.Format(interval.DateLayout),
		Headcount:       r.Headcount,
		Days:            r.Days,
		BasePriceCents:  r.BasePriceCents,
		FeesCents:       r.FeesCents,
		TotalPriceCents: r.TotalPriceCents,
		TotalPrice:      formatCents(r.TotalPriceCents),
		Note:            r.Note,
		CancelReason:    r.CancelReason,
		CreatedAt:       r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if r.StartMin != nil {
		s := interval.FormatTimeOfDay(*r.StartMin)
		resp.StartTime = &s
	}
	if r.EndMin != nil {
		e := interval.FormatTimeOfDay(*r.EndMin)
		resp.EndTime = &e
	}
	if r.CancelledAt != nil {
		at := r.CancelledAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.CancelledAt = &at
	}
	return resp
}

// formatCents renders integer cents as a decimal string ("330.00").  Money
// stays integral everywhere else; this is display only.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// parseIntervalParams builds an interval from the date/time request fields
// shared by the reservation create, availability and quote endpoints.
func parseIntervalParams(startDate, endDate string, startTime, endTime *string) (interval.Interval, error) {
	var iv interval.Interval
	var err error
	if iv.StartDate, err = interval.ParseDate(startDate); err != nil {
		return iv, fmt.Errorf("start_date: %w", err)
	}
	if iv.EndDate, err = interval.ParseDate(endDate); err != nil {
		return iv, fmt.Errorf("end_date: %w", err)
	}
	if startTime != nil && *startTime != "" {
		m, err := interval.ParseTimeOfDay(*startTime)
		if err != nil {
			return iv, fmt.Errorf("start_time: %w", err)
		}
		iv.StartMin = &m
	}
	if endTime != nil && *endTime != "" {
		m, err := interval.ParseTimeOfDay(*endTime)
		if err != nil {
			return iv, fmt.Errorf("end_time: %w", err)
		}
		iv.EndMin = &m
	}
	return iv, nil
}
