package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/model"
)

// SpaceHandler exposes the space catalogue plus the availability and quote
// endpoints that sit in front of the lifecycle service.
type SpaceHandler struct {
	Svc *booking.Service
}

func NewSpaceHandler(svc *booking.Service) *SpaceHandler {
	if svc == nil {
		panic("nil service passed to NewSpaceHandler")
	}
	return &SpaceHandler{Svc: svc}
}

type spacePart struct {
	ID               string `json:"id"`
	OperatorID       string `json:"operator_id"`
	Name             string `json:"name"`
	Capacity         int    `json:"capacity"`
	RatePerDayCents  int64  `json:"rate_per_day_cents"`
	RatePerDay       string `json:"rate_per_day"`
	RatePerHourCents *int64 `json:"rate_per_hour_cents,omitempty"`
	IsActive         bool   `json:"is_active"`
}

func toSpacePart(sp *model.Space) spacePart {
	return spacePart{
		ID:               sp.ID,
		OperatorID:       sp.OperatorID,
		Name:             sp.Name,
		Capacity:         sp.Capacity,
		RatePerDayCents:  sp.RatePerDayCents,
		RatePerDay:       formatCents(sp.RatePerDayCents),
		RatePerHourCents: sp.RatePerHourCents,
		IsActive:         sp.IsActive,
	}
}

// List handles GET /v1/spaces.  Pass ?active=false to include inactive
// spaces; default is active only.
func (h *SpaceHandler) List(c echo.Context) error {
	activeOnly := true
	if v := c.QueryParam("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			activeOnly = b
		}
	}
	spaces, err := h.Svc.ListSpaces(c.Request().Context(), activeOnly)
	if err != nil {
		return writeBookingErr(c, err)
	}
	out := make([]spacePart, 0, len(spaces))
	for i := range spaces {
		out = append(out, toSpacePart(&spaces[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/spaces/:id.
func (h *SpaceHandler) Get(c echo.Context) error {
	sp, err := h.Svc.GetSpace(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, toSpacePart(sp))
}

// Availability handles GET /v1/spaces/:id/availability.  It takes the same
// date/time query parameters as reservation creation and returns whether
// the interval is free, listing blocking reservations when it is not.
func (h *SpaceHandler) Availability(c echo.Context) error {
	startTime := c.QueryParam("start_time")
	endTime := c.QueryParam("end_time")
	iv, err := parseIntervalParams(c.QueryParam("start_date"), c.QueryParam("end_date"), &startTime, &endTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	conflicts, err := h.Svc.CheckConflicts(c.Request().Context(), c.Param("id"), iv, c.QueryParam("exclude"))
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available": len(conflicts) == 0,
		"conflicts": conflictParts(conflicts),
	})
}

type quoteReq struct {
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Headcount int     `json:"headcount" validate:"required,min=1"`
}

// Quote handles POST /v1/spaces/:id/quote.  It prices an interval without
// creating anything; the same calculator runs at reservation time, so a
// quote and the eventual reservation always agree.
func (h *SpaceHandler) Quote(c echo.Context) error {
	var req quoteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date, end_date and headcount are required"})
	}
	iv, err := parseIntervalParams(req.StartDate, req.EndDate, req.StartTime, req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	q, err := h.Svc.CalculatePrice(c.Request().Context(), c.Param("id"), iv, req.Headcount)
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"days":                     q.Days,
		"rate_per_day_cents":       q.RatePerDayCents,
		"base_price_cents":         q.BasePriceCents,
		"fees_cents":               q.FeesCents,
		"extra_occupant_fee_cents": q.ExtraOccupantFeeCents,
		"total_price_cents":        q.TotalPriceCents,
		"total_price":              formatCents(q.TotalPriceCents),
	})
}
