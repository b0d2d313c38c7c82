package booking_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
)

// fakeStore is an in-memory booking.Store.  Allocate serializes per space
// with a mutex keyed by space id, which is the same contract the MySQL
// store provides with a row lock, so the no-double-allocation property can
// be exercised without a database.
type fakeStore struct {
	mu       sync.Mutex
	spaceMus map[string]*sync.Mutex
	spaces   map[string]*model.Space
	res      map[string]*model.Reservation
	emails   map[string]string // user id -> email, for conflict annotation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		spaceMus: make(map[string]*sync.Mutex),
		spaces:   make(map[string]*model.Space),
		res:      make(map[string]*model.Reservation),
		emails:   make(map[string]string),
	}
}

func (f *fakeStore) addSpace(sp model.Space) { f.spaces[sp.ID] = &sp }

func (f *fakeStore) spaceMu(id string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.spaceMus[id]
	if !ok {
		m = &sync.Mutex{}
		f.spaceMus[id] = m
	}
	return m
}

type fakeTx struct{ f *fakeStore }

func (f *fakeStore) Allocate(ctx context.Context, spaceID string, fn func(tx booking.AllocationTx) error) error {
	m := f.spaceMu(spaceID)
	m.Lock()
	defer m.Unlock()
	return fn(&fakeTx{f: f})
}

func (t *fakeTx) LockSpace(ctx context.Context, id string) (*model.Space, error) {
	return t.f.GetSpace(ctx, id)
}

func (t *fakeTx) Conflicts(ctx context.Context, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error) {
	return t.f.FindConflicts(ctx, spaceID, iv, excludeID)
}

func (t *fakeTx) Insert(ctx context.Context, res *model.Reservation) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	cp := *res
	t.f.res[res.ID] = &cp
	return nil
}

func (t *fakeTx) Update(ctx context.Context, res *model.Reservation) error {
	return t.Insert(ctx, res)
}

func (f *fakeStore) GetSpace(ctx context.Context, id string) (*model.Space, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.spaces[id]
	if !ok {
		return nil, booking.ErrSpaceNotFound
	}
	cp := *sp
	return &cp, nil
}

func (f *fakeStore) ListSpaces(ctx context.Context, activeOnly bool) ([]model.Space, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Space, 0, len(f.spaces))
	for _, sp := range f.spaces {
		if activeOnly && !sp.IsActive {
			continue
		}
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.res[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListReservations(ctx context.Context, q booking.ListQuery) ([]model.Reservation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Reservation
	for _, r := range f.res {
		if q.SpaceID != "" && r.SpaceID != q.SpaceID {
			continue
		}
		if q.RequesterID != "" && r.RequesterID != q.RequesterID {
			continue
		}
		if q.OperatorID != "" {
			sp, ok := f.spaces[r.SpaceID]
			if !ok || sp.OperatorID != q.OperatorID {
				continue
			}
		}
		if len(q.Statuses) > 0 {
			found := false
			for _, s := range q.Statuses {
				if r.Status == s {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool {
		less := all[i].CreatedAt.Before(all[j].CreatedAt)
		if q.SortField == booking.SortStartDate {
			less = all[i].StartDate.Before(all[j].StartDate)
		}
		if q.SortDesc {
			return !less
		}
		return less
	})
	total := int64(len(all))
	start := (q.Page - 1) * q.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + q.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeStore) FindConflicts(ctx context.Context, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conflict
	for _, r := range f.res {
		if r.SpaceID != spaceID || r.ID == excludeID || !model.IsLiveStatus(r.Status) {
			continue
		}
		if r.StartDate.After(iv.EndDate) || r.EndDate.Before(iv.StartDate) {
			continue
		}
		out = append(out, model.Conflict{
			ReservationID:  r.ID,
			RequesterID:    r.RequesterID,
			RequesterEmail: f.emails[r.RequesterID],
			Status:         r.Status,
			StartDate:      r.StartDate,
			EndDate:        r.EndDate,
			StartMin:       r.StartMin,
			EndMin:         r.EndMin,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeStore) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.res[res.ID]; !ok {
		return booking.ErrNotFound
	}
	cp := *res
	f.res[res.ID] = &cp
	return nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.res[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeStore) MarkCancelled(ctx context.Context, id string, from []string, reason *string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.res[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if r.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	r.Status = model.StatusCancelled
	r.CancelReason = reason
	r.CancelledAt = &at
	r.UpdatedAt = at
	return true, nil
}
