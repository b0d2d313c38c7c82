package booking

import (
	"context"
	"time"

	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
)

// Sortable list fields.  ListQuery.SortField must be one of these; the
// storage layer maps each to a pre-declared column and rejects anything
// else, so caller-controlled identifiers never reach a query string.
const (
	SortCreatedAt  = "createdAt"
	SortUpdatedAt  = "updatedAt"
	SortStartDate  = "startDate"
	SortEndDate    = "endDate"
	SortTotalPrice = "totalPrice"
	SortStatus     = "status"
)

// ListQuery carries the filters, pagination and ordering for a reservation
// listing.  Zero-valued filters are ignored.
type ListQuery struct {
	SpaceID     string     // only reservations for this space
	RequesterID string     // only reservations made by this user
	OperatorID  string     // only reservations on spaces run by this operator
	Statuses    []string   // one or many statuses; empty = all
	DateFrom    *time.Time // reservations ending on or after this date
	DateTo      *time.Time // reservations starting on or before this date
	Page        int        // 1-based page number
	PageSize    int        // rows per page
	SortField   string     // one of the Sort* constants; default SortCreatedAt
	SortDesc    bool       // descending when true
}

// Pagination describes the page of results returned by a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// AllocationTx is the transactional view a Store hands to the allocation
// critical section.  LockSpace must serialize concurrent allocations for
// the same space until the surrounding transaction ends; Conflicts and the
// write that follows therefore observe a stable set of reservations.
//
// Conflicts performs only the date-level, live-status narrowing; the
// definitive time-of-day predicate is applied by the service so the overlap
// rule has exactly one implementation.
type AllocationTx interface {
	LockSpace(ctx context.Context, id string) (*model.Space, error)
	Conflicts(ctx context.Context, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error)
	Insert(ctx context.Context, res *model.Reservation) error
	Update(ctx context.Context, res *model.Reservation) error
}

// Store is the persistence contract the lifecycle service depends on.  The
// MySQL implementation lives in internal/repository; tests substitute an
// in-memory store.
//
// Errors returned by a Store use this package's taxonomy: ErrSpaceNotFound
// and ErrNotFound for missing rows, ErrSerializationConflict when the
// storage layer loses an allocation race at commit time, and
// ErrStorageUnavailable for everything infrastructural.
type Store interface {
	// Allocate runs fn atomically with respect to other allocations for
	// the same space.  fn must acquire the space through tx.LockSpace
	// before checking conflicts or writing.
	Allocate(ctx context.Context, spaceID string, fn func(tx AllocationTx) error) error

	GetSpace(ctx context.Context, id string) (*model.Space, error)
	ListSpaces(ctx context.Context, activeOnly bool) ([]model.Space, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context, q ListQuery) ([]model.Reservation, int64, error)

	// FindConflicts is the read-only availability probe: date-level,
	// live-status candidates for the interval, ordered by start date.
	FindConflicts(ctx context.Context, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error)

	// UpdateReservation rewrites a reservation's mutable columns outside
	// the allocation boundary.  Used for patches that touch nothing priced.
	UpdateReservation(ctx context.Context, res *model.Reservation) error

	// TransitionStatus flips status from exactly `from` to `to` and
	// reports whether a row changed.  A false return means the
	// reservation is missing or no longer in `from`.
	TransitionStatus(ctx context.Context, id, from, to string) (bool, error)

	// MarkCancelled moves a reservation in one of the `from` statuses to
	// CANCELLED, recording the reason and timestamp.
	MarkCancelled(ctx context.Context, id string, from []string, reason *string, at time.Time) (bool, error)
}

// EventPublisher receives lifecycle notifications after a state change has
// been committed.  Publishing is best-effort: failures are logged by the
// service and never fail the request.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, eventType string, res *model.Reservation) error
}
