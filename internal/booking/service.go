// Package booking owns the reservation lifecycle: it validates requested
// intervals, checks availability, prices requests and drives each
// reservation through PENDING -> CONFIRMED -> COMPLETED with a cancellation
// side path.  All state transitions in the system go through this service.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
	"github.com/avierra/space-reservation/internal/pricing"
)

// CancelWindow is how far in the future a confirmed reservation's start
// must be for the requester themselves to cancel it.  Operators and admins
// bypass the window.
const CancelWindow = 24 * time.Hour

// Event types published after successful state changes.
const (
	EventCreated   = "reservation.created"
	EventConfirmed = "reservation.confirmed"
	EventCompleted = "reservation.completed"
	EventCancelled = "reservation.cancelled"
	EventUpdated   = "reservation.updated"
)

// Caller identifies who is invoking an operation.  Identity and role are
// established by the external auth layer; the service only consumes them.
type Caller struct {
	ID   string
	Role string
}

func (c Caller) elevated() bool {
	return c.Role == model.RoleOperator || c.Role == model.RoleAdmin
}

// CreateInput is a request to reserve a space.
type CreateInput struct {
	SpaceID   string
	Interval  interval.Interval
	Headcount int
	Note      string
}

// UpdatePatch is a partial reservation update.  Nil fields are left
// untouched.  A Status value delegates to the corresponding lifecycle
// transition; direct status writes do not exist.
type UpdatePatch struct {
	StartDate *time.Time
	EndDate   *time.Time
	StartMin  *int
	EndMin    *int
	Headcount *int
	Note      *string
	Status    *string
}

// Empty reports whether the patch changes nothing.
func (p UpdatePatch) Empty() bool {
	return p.StartDate == nil && p.EndDate == nil && p.StartMin == nil &&
		p.EndMin == nil && p.Headcount == nil && p.Note == nil && p.Status == nil
}

// touchesPricing reports whether the patch affects the interval or
// headcount, requiring a conflict re-check and a reprice.
func (p UpdatePatch) touchesPricing() bool {
	return p.StartDate != nil || p.EndDate != nil || p.StartMin != nil ||
		p.EndMin != nil || p.Headcount != nil
}

// Options configures optional service collaborators.  The zero value is
// usable: no events, a UTC clock and a disabled logger.
type Options struct {
	Events   EventPublisher   // lifecycle event sink, may be nil
	Logger   *zerolog.Logger  // structured logger, may be nil
	Location *time.Location   // timezone for "now" comparisons, default UTC
	Now      func() time.Time // clock, default time.Now
}

// Service implements the reservation lifecycle over a Store.
type Service struct {
	store  Store
	calc   *pricing.Calculator
	events EventPublisher
	log    zerolog.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewService builds a lifecycle service.
func NewService(store Store, calc *pricing.Calculator, opts Options) *Service {
	s := &Service{
		store:  store,
		calc:   calc,
		events: opts.Events,
		log:    zerolog.Nop(),
		loc:    time.UTC,
		now:    time.Now,
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	}
	if opts.Location != nil {
		s.loc = opts.Location
	}
	if opts.Now != nil {
		s.now = opts.Now
	}
	return s
}

// Create validates and prices a reservation request and persists it in
// PENDING state.  The availability check and the insert run inside the
// store's allocation boundary, so two concurrent creates for the same space
// can never both succeed over overlapping intervals.
func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (*model.Reservation, error) {
	if err := in.Interval.Validate(); err != nil {
		return nil, newError(KindInvalidInterval, "%v", err)
	}
	if s.intervalEnded(in.Interval) {
		return nil, ErrPastDateBooking
	}

	var created *model.Reservation
	err := s.store.Allocate(ctx, in.SpaceID, func(tx AllocationTx) error {
		sp, err := tx.LockSpace(ctx, in.SpaceID)
		if err != nil {
			return err
		}
		if !sp.IsActive {
			return ErrSpaceNotFound
		}
		cands, err := tx.Conflicts(ctx, in.SpaceID, in.Interval, "")
		if err != nil {
			return err
		}
		if conflicts := narrow(in.Interval, cands); len(conflicts) > 0 {
			return conflictError(conflicts)
		}
		quote, err := s.calc.Calculate(sp, in.Interval, in.Headcount)
		if err != nil {
			return mapPricingErr(err)
		}
		now := s.now().UTC()
		created = &model.Reservation{
			ID:                    uuid.NewString(),
			SpaceID:               in.SpaceID,
			RequesterID:           caller.ID,
			StartDate:             in.Interval.StartDate,
			EndDate:               in.Interval.EndDate,
			StartMin:              in.Interval.StartMin,
			EndMin:                in.Interval.EndMin,
			Headcount:             in.Headcount,
			Status:                model.StatusPending,
			BasePriceCents:        quote.BasePriceCents,
			FeesCents:             quote.FeesCents,
			ExtraOccupantFeeCents: quote.ExtraOccupantFeeCents,
			TotalPriceCents:       quote.TotalPriceCents,
			Days:                  quote.Days,
			Note:                  in.Note,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		return tx.Insert(ctx, created)
	})
	if err != nil {
		return nil, s.mapAllocErr(err)
	}

	s.log.Info().
		Str("reservation_id", created.ID).
		Str("space_id", created.SpaceID).
		Str("requester_id", created.RequesterID).
		Int64("total_cents", created.TotalPriceCents).
		Msg("reservation created")
	s.publish(ctx, EventCreated, created)
	return created, nil
}

// Get returns a reservation visible to the caller.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, res); err != nil {
		return nil, err
	}
	return res, nil
}

// List returns reservations matching the query, scoped to what the caller
// may see: clients see their own reservations, operators those on their
// spaces, admins everything.
func (s *Service) List(ctx context.Context, caller Caller, q ListQuery) ([]model.Reservation, Pagination, error) {
	switch caller.Role {
	case model.RoleAdmin:
	case model.RoleOperator:
		q.OperatorID = caller.ID
	default:
		q.RequesterID = caller.ID
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	if q.SortField == "" {
		q.SortField = SortCreatedAt
		q.SortDesc = true
	}

	items, total, err := s.store.ListReservations(ctx, q)
	if err != nil {
		return nil, Pagination{}, err
	}
	pages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return items, Pagination{Page: q.Page, PageSize: q.PageSize, Total: total, TotalPages: pages}, nil
}

// Update applies a partial update.  Patches touching the interval or
// headcount re-check availability (excluding the reservation itself) and
// reprice inside the allocation boundary; other patches are plain field
// writes.  A Status value delegates to the matching transition.
func (s *Service) Update(ctx context.Context, caller Caller, id string, patch UpdatePatch) (*model.Reservation, error) {
	if patch.Empty() {
		return nil, ErrNoFieldsToUpdate
	}
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, res); err != nil {
		return nil, err
	}
	if model.IsTerminalStatus(res.Status) && (patch.touchesPricing() || patch.Note != nil) {
		return nil, newError(KindNotCancellable, "reservation is %s", res.Status)
	}

	switch {
	case patch.touchesPricing():
		if res, err = s.repriceUpdate(ctx, res, patch); err != nil {
			return nil, err
		}
	case patch.Note != nil:
		res.Note = *patch.Note
		res.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateReservation(ctx, res); err != nil {
			return nil, err
		}
	}

	if patch.Status != nil && *patch.Status != res.Status {
		switch *patch.Status {
		case model.StatusConfirmed:
			return s.Confirm(ctx, caller, id)
		case model.StatusCompleted:
			return s.Complete(ctx, caller, id)
		case model.StatusCancelled:
			return s.Cancel(ctx, caller, id, nil)
		default:
			return nil, newError(KindInvalidStatus, "cannot move a reservation to %q", *patch.Status)
		}
	}

	s.log.Info().Str("reservation_id", res.ID).Msg("reservation updated")
	s.publish(ctx, EventUpdated, res)
	return res, nil
}

// repriceUpdate runs the availability re-check and reprice for an
// interval/headcount patch under the allocation boundary.
func (s *Service) repriceUpdate(ctx context.Context, res *model.Reservation, patch UpdatePatch) (*model.Reservation, error) {
	eff := res.Interval()
	if patch.StartDate != nil {
		eff.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		eff.EndDate = *patch.EndDate
	}
	if patch.StartMin != nil {
		eff.StartMin = patch.StartMin
	}
	if patch.EndMin != nil {
		eff.EndMin = patch.EndMin
	}
	headcount := res.Headcount
	if patch.Headcount != nil {
		headcount = *patch.Headcount
	}
	if err := eff.Validate(); err != nil {
		return nil, newError(KindInvalidInterval, "%v", err)
	}

	err := s.store.Allocate(ctx, res.SpaceID, func(tx AllocationTx) error {
		sp, err := tx.LockSpace(ctx, res.SpaceID)
		if err != nil {
			return err
		}
		cands, err := tx.Conflicts(ctx, res.SpaceID, eff, res.ID)
		if err != nil {
			return err
		}
		if conflicts := narrow(eff, cands); len(conflicts) > 0 {
			return conflictError(conflicts)
		}
		quote, err := s.calc.Calculate(sp, eff, headcount)
		if err != nil {
			return mapPricingErr(err)
		}
		res.StartDate = eff.StartDate
		res.EndDate = eff.EndDate
		res.StartMin = eff.StartMin
		res.EndMin = eff.EndMin
		res.Headcount = headcount
		res.BasePriceCents = quote.BasePriceCents
		res.FeesCents = quote.FeesCents
		res.ExtraOccupantFeeCents = quote.ExtraOccupantFeeCents
		res.TotalPriceCents = quote.TotalPriceCents
		res.Days = quote.Days
		if patch.Note != nil {
			res.Note = *patch.Note
		}
		res.UpdatedAt = s.now().UTC()
		return tx.Update(ctx, res)
	})
	if err != nil {
		return nil, s.mapAllocErr(err)
	}
	return res, nil
}

// Confirm moves a PENDING reservation to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, caller Caller, id string) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFoundOrAlreadyProcessed
		}
		return nil, err
	}
	if err := s.authorizeManage(ctx, caller, res); err != nil {
		return nil, err
	}
	ok, err := s.store.TransitionStatus(ctx, id, model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFoundOrAlreadyProcessed
	}
	res.Status = model.StatusConfirmed
	res.UpdatedAt = s.now().UTC()

	s.log.Info().Str("reservation_id", id).Msg("reservation confirmed")
	s.publish(ctx, EventConfirmed, res)
	return res, nil
}

// Complete moves a CONFIRMED reservation to COMPLETED.  Invoked once the
// interval has elapsed, typically by a scheduled sweep outside this core.
func (s *Service) Complete(ctx context.Context, caller Caller, id string) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFoundOrNotConfirmed
		}
		return nil, err
	}
	if err := s.authorizeManage(ctx, caller, res); err != nil {
		return nil, err
	}
	ok, err := s.store.TransitionStatus(ctx, id, model.StatusConfirmed, model.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFoundOrNotConfirmed
	}
	res.Status = model.StatusCompleted
	res.UpdatedAt = s.now().UTC()

	s.log.Info().Str("reservation_id", id).Msg("reservation completed")
	s.publish(ctx, EventCompleted, res)
	return res, nil
}

// Cancel cancels a PENDING or CONFIRMED reservation.  When the requester
// themselves cancels a confirmed reservation, the start must be at least
// CancelWindow away; operators and admins bypass the window.
func (s *Service) Cancel(ctx context.Context, caller Caller, id string, reason *string) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, res); err != nil {
		return nil, err
	}
	if model.IsTerminalStatus(res.Status) {
		return nil, newError(KindNotCancellable, "reservation is %s", res.Status)
	}
	if res.Status == model.StatusConfirmed && !caller.elevated() {
		if s.startsAt(res).Sub(s.now()) < CancelWindow {
			return nil, ErrCancellationWindowExpired
		}
	}

	now := s.now().UTC()
	ok, err := s.store.MarkCancelled(ctx, id, []string{model.StatusPending, model.StatusConfirmed}, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotCancellable
	}
	res.Status = model.StatusCancelled
	res.CancelReason = reason
	res.CancelledAt = &now
	res.UpdatedAt = now

	s.log.Info().Str("reservation_id", id).Str("cancelled_by", caller.ID).Msg("reservation cancelled")
	s.publish(ctx, EventCancelled, res)
	return res, nil
}

// CheckConflicts returns the live reservations whose intervals overlap the
// candidate interval for a space.  An empty result means the interval is
// available.  excludeID, when non-empty, removes that reservation from
// consideration so updates do not conflict with themselves.
func (s *Service) CheckConflicts(ctx context.Context, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error) {
	if err := iv.Validate(); err != nil {
		return nil, newError(KindInvalidInterval, "%v", err)
	}
	if _, err := s.store.GetSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	cands, err := s.store.FindConflicts(ctx, spaceID, iv, excludeID)
	if err != nil {
		return nil, err
	}
	return narrow(iv, cands), nil
}

// CalculatePrice quotes an interval for a space without reserving anything.
func (s *Service) CalculatePrice(ctx context.Context, spaceID string, iv interval.Interval, headcount int) (pricing.Quote, error) {
	if err := iv.Validate(); err != nil {
		return pricing.Quote{}, newError(KindInvalidInterval, "%v", err)
	}
	sp, err := s.store.GetSpace(ctx, spaceID)
	if err != nil {
		return pricing.Quote{}, err
	}
	q, err := s.calc.Calculate(sp, iv, headcount)
	if err != nil {
		return pricing.Quote{}, mapPricingErr(err)
	}
	return q, nil
}

// GetSpace exposes space lookup to the HTTP layer.
func (s *Service) GetSpace(ctx context.Context, id string) (*model.Space, error) {
	return s.store.GetSpace(ctx, id)
}

// ListSpaces exposes the space catalogue to the HTTP layer.
func (s *Service) ListSpaces(ctx context.Context, activeOnly bool) ([]model.Space, error) {
	return s.store.ListSpaces(ctx, activeOnly)
}

// authorize checks that the caller may read or modify the reservation: the
// requester themselves, an admin, or the operator running the space.
func (s *Service) authorize(ctx context.Context, caller Caller, res *model.Reservation) error {
	if caller.ID == res.RequesterID || caller.Role == model.RoleAdmin {
		return nil
	}
	if caller.Role == model.RoleOperator {
		sp, err := s.store.GetSpace(ctx, res.SpaceID)
		if err == nil && sp.OperatorID == caller.ID {
			return nil
		}
	}
	return ErrUnauthorized
}

// authorizeManage checks that the caller may confirm or complete the
// reservation: an admin, or the operator running the space.  Requesters
// cannot process their own reservations.
func (s *Service) authorizeManage(ctx context.Context, caller Caller, res *model.Reservation) error {
	if caller.Role == model.RoleAdmin {
		return nil
	}
	if caller.Role == model.RoleOperator {
		sp, err := s.store.GetSpace(ctx, res.SpaceID)
		if err == nil && sp.OperatorID == caller.ID {
			return nil
		}
	}
	return ErrUnauthorized
}

// startsAt resolves the instant the reservation begins in the service
// timezone: the start date at the time-of-day window start, or midnight
// for full-day reservations.
func (s *Service) startsAt(res *model.Reservation) time.Time {
	min := 0
	if res.StartMin != nil {
		min = *res.StartMin
	}
	d := res.StartDate
	return time.Date(d.Year(), d.Month(), d.Day(), min/60, min%60, 0, 0, s.loc)
}

// intervalEnded reports whether the interval lies fully in the past: its
// last occupied moment is before now.  A full-day interval ends at
// midnight after its end date, so a reservation ending today is accepted.
func (s *Service) intervalEnded(iv interval.Interval) bool {
	endMin := 24 * 60
	if iv.EndMin != nil {
		endMin = *iv.EndMin
	}
	d := iv.EndDate
	end := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc).Add(time.Duration(endMin) * time.Minute)
	return end.Before(s.now())
}

// narrow applies the time-of-day overlap rule to the date-level candidates
// returned by the store, preserving their order.
func narrow(iv interval.Interval, cands []model.Conflict) []model.Conflict {
	out := make([]model.Conflict, 0, len(cands))
	for _, c := range cands {
		other := interval.Interval{
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			StartMin:  c.StartMin,
			EndMin:    c.EndMin,
		}
		if interval.Overlaps(iv, other) {
			out = append(out, c)
		}
	}
	return out
}

// mapPricingErr converts pricing package errors into lifecycle kinds.
func mapPricingErr(err error) error {
	switch {
	case errors.Is(err, pricing.ErrCapacityExceeded):
		return newError(KindCapacityExceeded, "%v", err)
	case errors.Is(err, pricing.ErrSpaceUnavailable):
		return ErrSpaceNotFound
	default:
		return newError(KindInvalidInterval, "%v", err)
	}
}

// mapAllocErr remaps a serialization conflict reported by the store into an
// availability conflict: the caller lost the allocation race and may
// resubmit.
func (s *Service) mapAllocErr(err error) error {
	if errors.Is(err, ErrSerializationConflict) {
		s.log.Warn().Err(err).Msg("allocation race lost, reporting conflict")
		return newError(KindAvailabilityConflict, "a concurrent reservation won this interval")
	}
	return err
}

// publish sends a lifecycle event; failures are logged and ignored.
func (s *Service) publish(ctx context.Context, eventType string, res *model.Reservation) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReservationEvent(ctx, eventType, res); err != nil {
		s.log.Warn().Err(err).Str("reservation_id", res.ID).Str("event", eventType).Msg("event publish failed")
	}
}
