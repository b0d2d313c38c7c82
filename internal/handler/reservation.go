package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All
// routes assume JWT authentication ran first; the caller identity comes out
// of the context.
type ReservationHandler struct {
	Svc *booking.Service
}

func NewReservationHandler(svc *booking.Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	SpaceID   string  `json:"space_id" validate:"required,uuid4"`
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Headcount int     `json:"headcount" validate:"required,min=1"`
	Note      string  `json:"note" validate:"max=500"`
}

type updateReservationReq struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Headcount *int    `json:"headcount"`
	Note      *string `json:"note"`
	Status    *string `json:"status"`
}

type cancelReservationReq struct {
	Reason *string `json:"reason"`
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "space_id, start_date, end_date and headcount are required"})
	}
	iv, err := parseIntervalParams(req.StartDate, req.EndDate, req.StartTime, req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	res, err := h.Svc.Create(c.Request().Context(), caller, booking.CreateInput{
		SpaceID:   req.SpaceID,
		Interval:  iv,
		Headcount: req.Headcount,
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Svc.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// List handles GET /v1/reservations with filter, sort and pagination query
// parameters.  Results are scoped to the caller's role by the service.
func (h *ReservationHandler) List(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	q := booking.ListQuery{
		SpaceID:   c.QueryParam("space_id"),
		SortField: c.QueryParam("sort"),
		SortDesc:  strings.EqualFold(c.QueryParam("order"), "desc"),
	}
	if statuses := c.QueryParam("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				q.Statuses = append(q.Statuses, s)
			}
		}
	}
	if v := c.QueryParam("date_from"); v != "" {
		d, err := interval.ParseDate(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
		}
		q.DateFrom = &d
	}
	if v := c.QueryParam("date_to"); v != "" {
		d, err := interval.ParseDate(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
		}
		q.DateTo = &d
	}
	if v := c.QueryParam("page"); v != "" {
		q.Page, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("page_size"); v != "" {
		q.PageSize, _ = strconv.Atoi(v)
	}

	items, page, err := h.Svc.List(c.Request().Context(), caller, q)
	if err != nil {
		return writeBookingErr(c, err)
	}
	out := make([]reservationResp, 0, len(items))
	for i := range items {
		out = append(out, toReservationResp(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":      out,
		"pagination": page,
	})
}

// Update handles PATCH /v1/reservations/:id.  Date, time, headcount and
// note fields are partial; a status field triggers the corresponding
// lifecycle transition instead of a raw write.
func (h *ReservationHandler) Update(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var patch booking.UpdatePatch
	if req.StartDate != nil {
		d, err := interval.ParseDate(*req.StartDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
		}
		patch.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := interval.ParseDate(*req.EndDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_date"})
		}
		patch.EndDate = &d
	}
	if req.StartTime != nil {
		m, err := interval.ParseTimeOfDay(*req.StartTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
		}
		patch.StartMin = &m
	}
	if req.EndTime != nil {
		m, err := interval.ParseTimeOfDay(*req.EndTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
		}
		patch.EndMin = &m
	}
	patch.Headcount = req.Headcount
	patch.Note = req.Note
	if req.Status != nil {
		s := strings.ToUpper(strings.TrimSpace(*req.Status))
		patch.Status = &s
	}

	res, err := h.Svc.Update(c.Request().Context(), caller, c.Param("id"), patch)
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Confirm handles POST /v1/reservations/:id/confirm.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.Svc.Confirm)
}

// Complete handles POST /v1/reservations/:id/complete.
func (h *ReservationHandler) Complete(c echo.Context) error {
	return h.transition(c, h.Svc.Complete)
}

func (h *ReservationHandler) transition(c echo.Context, fn func(ctx context.Context, caller booking.Caller, id string) (*model.Reservation, error)) error {
	caller, err := callerFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := fn(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Cancel handles POST /v1/reservations/:id/cancel with an optional reason.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cancelReservationReq
	_ = c.Bind(&req)
	if req.Reason != nil {
		trimmed := strings.TrimSpace(*req.Reason)
		if trimmed == "" {
			req.Reason = nil
		} else {
			req.Reason = &trimmed
		}
	}

	res, err := h.Svc.Cancel(c.Request().Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}
