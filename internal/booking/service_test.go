package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
	"github.com/avierra/space-reservation/internal/pricing"
)

// Fixed clock for every test: 2025-12-01 12:00 UTC.
var testNow = time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

var (
	client   = booking.Caller{ID: "user-client", Role: model.RoleClient}
	client2  = booking.Caller{ID: "user-other", Role: model.RoleClient}
	operator = booking.Caller{ID: "user-operator", Role: model.RoleOperator}
	admin    = booking.Caller{ID: "user-admin", Role: model.RoleAdmin}
)

func newTestService(t *testing.T) (*booking.Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.addSpace(model.Space{
		ID:              "space-1",
		OperatorID:      operator.ID,
		Name:            "Conference Room A",
		Capacity:        10,
		RatePerDayCents: 10000,
		IsActive:        true,
	})
	store.emails[client.ID] = "client@example.com"
	svc := booking.NewService(store, pricing.NewCalculator(pricing.DefaultFeeRateBps), booking.Options{
		Now: func() time.Time { return testNow },
	})
	return svc, store
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := interval.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dayRange(t *testing.T, start, end string) interval.Interval {
	t.Helper()
	return interval.Interval{StartDate: mustDate(t, start), EndDate: mustDate(t, end)}
}

func timedRange(t *testing.T, start, end string, startMin, endMin int) interval.Interval {
	t.Helper()
	iv := dayRange(t, start, end)
	iv.StartMin = &startMin
	iv.EndMin = &endMin
	return iv
}

func createRes(t *testing.T, svc *booking.Service, caller booking.Caller, iv interval.Interval, headcount int) *model.Reservation {
	t.Helper()
	res, err := svc.Create(context.Background(), caller, booking.CreateInput{
		SpaceID:   "space-1",
		Interval:  iv,
		Headcount: headcount,
	})
	require.NoError(t, err)
	return res
}

func TestCreatePricesAndPersistsPending(t *testing.T) {
	svc, _ := newTestService(t)
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 8)

	require.Equal(t, model.StatusPending, res.Status)
	require.Equal(t, 3, res.Days)
	require.Equal(t, int64(30000), res.BasePriceCents)
	require.Equal(t, int64(3000), res.FeesCents)
	require.Equal(t, int64(33000), res.TotalPriceCents)
	require.Equal(t, client.ID, res.RequesterID)
	require.NotEmpty(t, res.ID)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, client, booking.CreateInput{
		SpaceID:  "space-1",
		Interval: dayRange(t, "2025-12-27", "2025-12-25"), Headcount: 2,
	})
	require.ErrorIs(t, err, booking.ErrInvalidInterval)

	_, err = svc.Create(ctx, client, booking.CreateInput{
		SpaceID:  "space-1",
		Interval: dayRange(t, "2025-11-01", "2025-11-02"), Headcount: 2,
	})
	require.ErrorIs(t, err, booking.ErrPastDateBooking)

	_, err = svc.Create(ctx, client, booking.CreateInput{
		SpaceID:  "space-1",
		Interval: dayRange(t, "2025-12-25", "2025-12-27"), Headcount: 15,
	})
	require.ErrorIs(t, err, booking.ErrCapacityExceeded)

	_, err = svc.Create(ctx, client, booking.CreateInput{
		SpaceID:  "no-such-space",
		Interval: dayRange(t, "2025-12-25", "2025-12-27"), Headcount: 2,
	})
	require.ErrorIs(t, err, booking.ErrSpaceNotFound)
}

func TestCreateConflictCarriesBlockers(t *testing.T) {
	svc, _ := newTestService(t)
	existing := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	_, err := svc.Create(context.Background(), client2, booking.CreateInput{
		SpaceID:  "space-1",
		Interval: dayRange(t, "2025-12-26", "2025-12-28"), Headcount: 2,
	})
	require.ErrorIs(t, err, booking.ErrAvailabilityConflict)

	var bErr *booking.Error
	require.ErrorAs(t, err, &bErr)
	require.Len(t, bErr.Conflicts, 1)
	require.Equal(t, existing.ID, bErr.Conflicts[0].ReservationID)
	require.Equal(t, "client@example.com", bErr.Conflicts[0].RequesterEmail)
}

func TestCreateAdjacentTimeWindows(t *testing.T) {
	svc, _ := newTestService(t)
	createRes(t, svc, client, timedRange(t, "2025-12-25", "2025-12-25", 9*60, 17*60), 4)

	// 17:00-18:00 on the same day does not overlap 09:00-17:00.
	after := createRes(t, svc, client2, timedRange(t, "2025-12-25", "2025-12-25", 17*60, 18*60), 2)
	require.Equal(t, model.StatusPending, after.Status)

	// A full-day booking on that date does conflict.
	_, err := svc.Create(context.Background(), client2, booking.CreateInput{
		SpaceID:  "space-1",
		Interval: dayRange(t, "2025-12-25", "2025-12-25"), Headcount: 2,
	})
	require.ErrorIs(t, err, booking.ErrAvailabilityConflict)
}

func TestCheckConflictsScenario(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	res := createRes(t, svc, client, timedRange(t, "2025-12-25", "2025-12-25", 9*60, 17*60), 4)
	ok, err := store.TransitionStatus(ctx, res.ID, model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	require.True(t, ok)

	conflicts, err := svc.CheckConflicts(ctx, "space-1", timedRange(t, "2025-12-25", "2025-12-25", 10*60, 16*60), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, res.ID, conflicts[0].ReservationID)

	conflicts, err = svc.CheckConflicts(ctx, "space-1", timedRange(t, "2025-12-25", "2025-12-25", 17*60, 18*60), "")
	require.NoError(t, err)
	require.Empty(t, conflicts)
}

func TestConfirmCompleteLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	confirmed, err := svc.Confirm(ctx, operator, res.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, confirmed.Status)

	// Confirming again is a no-op state: not found or already processed.
	_, err = svc.Confirm(ctx, operator, res.ID)
	require.ErrorIs(t, err, booking.ErrNotFoundOrAlreadyProcessed)

	completed, err := svc.Complete(ctx, operator, res.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, completed.Status)

	_, err = svc.Complete(ctx, operator, res.ID)
	require.ErrorIs(t, err, booking.ErrNotFoundOrNotConfirmed)
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	svc, _ := newTestService(t)
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	_, err := svc.Complete(context.Background(), operator, res.ID)
	require.ErrorIs(t, err, booking.ErrNotFoundOrNotConfirmed)
}

func TestConfirmRequiresElevatedRole(t *testing.T) {
	svc, _ := newTestService(t)
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	_, err := svc.Confirm(context.Background(), client, res.ID)
	require.ErrorIs(t, err, booking.ErrUnauthorized)
}

func TestCancelWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Starts 2025-12-02 at midnight: 12 hours after the fixed clock.
	res := createRes(t, svc, client, dayRange(t, "2025-12-02", "2025-12-03"), 4)
	_, err := svc.Confirm(ctx, operator, res.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, client, res.ID, nil)
	require.ErrorIs(t, err, booking.ErrCancellationWindowExpired)

	// The admin bypasses the window.
	reason := "venue closure"
	cancelled, err := svc.Cancel(ctx, admin, res.ID, &reason)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Equal(t, &reason, cancelled.CancelReason)
}

func TestCancelPendingSkipsWindow(t *testing.T) {
	svc, _ := newTestService(t)

	// Pending reservations have no cancellation window.
	res := createRes(t, svc, client, dayRange(t, "2025-12-02", "2025-12-03"), 4)
	cancelled, err := svc.Cancel(context.Background(), client, res.ID, nil)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, cancelled.Status)
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)
	_, err := svc.Cancel(ctx, client, res.ID, nil)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, operator, res.ID)
	require.ErrorIs(t, err, booking.ErrNotFoundOrAlreadyProcessed)

	_, err = svc.Complete(ctx, operator, res.ID)
	require.ErrorIs(t, err, booking.ErrNotFoundOrNotConfirmed)

	_, err = svc.Cancel(ctx, admin, res.ID, nil)
	require.ErrorIs(t, err, booking.ErrNotCancellable)

	newEnd := mustDate(t, "2025-12-28")
	_, err = svc.Update(ctx, client, res.ID, booking.UpdatePatch{EndDate: &newEnd})
	require.ErrorIs(t, err, booking.ErrNotCancellable)
}

func TestUpdateRepricesAndExcludesSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	// Extending the reservation must not conflict with itself.
	newEnd := mustDate(t, "2025-12-29")
	updated, err := svc.Update(ctx, client, res.ID, booking.UpdatePatch{EndDate: &newEnd})
	require.NoError(t, err)
	require.Equal(t, 5, updated.Days)
	require.Equal(t, int64(50000), updated.BasePriceCents)
	require.Equal(t, int64(5000), updated.FeesCents)
	require.Equal(t, int64(55000), updated.TotalPriceCents)
}

func TestUpdateRejectsConflictAndOverCapacity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createRes(t, svc, client, dayRange(t, "2025-12-20", "2025-12-22"), 4)
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	newStart := mustDate(t, "2025-12-22")
	_, err := svc.Update(ctx, client, res.ID, booking.UpdatePatch{StartDate: &newStart})
	require.ErrorIs(t, err, booking.ErrAvailabilityConflict)

	headcount := 15
	_, err = svc.Update(ctx, client, res.ID, booking.UpdatePatch{Headcount: &headcount})
	require.ErrorIs(t, err, booking.ErrCapacityExceeded)
}

func TestUpdateNoteOnly(t *testing.T) {
	svc, _ := newTestService(t)
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)
	before := res.TotalPriceCents

	note := "projector needed"
	updated, err := svc.Update(context.Background(), client, res.ID, booking.UpdatePatch{Note: &note})
	require.NoError(t, err)
	require.Equal(t, note, updated.Note)
	require.Equal(t, before, updated.TotalPriceCents)
}

func TestUpdateEmptyPatch(t *testing.T) {
	svc, _ := newTestService(t)
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	_, err := svc.Update(context.Background(), client, res.ID, booking.UpdatePatch{})
	require.ErrorIs(t, err, booking.ErrNoFieldsToUpdate)
}

func TestUpdateStatusDelegatesToTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	status := model.StatusConfirmed
	updated, err := svc.Update(context.Background(), operator, res.ID, booking.UpdatePatch{Status: &status})
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, updated.Status)

	// Clients cannot confirm through the update path either.
	res2 := createRes(t, svc, client, dayRange(t, "2026-01-05", "2026-01-06"), 4)
	_, err = svc.Update(context.Background(), client, res2.ID, booking.UpdatePatch{Status: &status})
	require.ErrorIs(t, err, booking.ErrUnauthorized)
}

func TestAuthorization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res := createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)

	_, err := svc.Get(ctx, client2, res.ID)
	require.ErrorIs(t, err, booking.ErrUnauthorized)

	got, err := svc.Get(ctx, operator, res.ID)
	require.NoError(t, err)
	require.Equal(t, res.ID, got.ID)

	_, err = svc.Get(ctx, admin, res.ID)
	require.NoError(t, err)
}

func TestListScoping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createRes(t, svc, client, dayRange(t, "2025-12-25", "2025-12-27"), 4)
	createRes(t, svc, client2, dayRange(t, "2026-01-05", "2026-01-06"), 2)

	items, page, err := svc.List(ctx, client, booking.ListQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, client.ID, items[0].RequesterID)
	require.Equal(t, int64(1), page.Total)

	_, page, err = svc.List(ctx, admin, booking.ListQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
}

func TestCalculatePriceDoesNotReserve(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	q, err := svc.CalculatePrice(ctx, "space-1", dayRange(t, "2025-12-25", "2025-12-27"), 8)
	require.NoError(t, err)
	require.Equal(t, int64(33000), q.TotalPriceCents)
	require.Empty(t, store.res)

	_, err = svc.CalculatePrice(ctx, "space-1", dayRange(t, "2025-12-25", "2025-12-27"), 15)
	require.ErrorIs(t, err, booking.ErrCapacityExceeded)
}

func TestNoDoubleAllocation(t *testing.T) {
	svc, store := newTestService(t)
	iv := dayRange(t, "2025-12-25", "2025-12-27")

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), client, booking.CreateInput{
				SpaceID:  "space-1",
				Interval: iv,
				Headcount: 2,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, booking.ErrAvailabilityConflict)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Len(t, store.res, 1)
}
