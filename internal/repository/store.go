package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
)

// liveStatuses are the reservation statuses that block an interval.  Kept
// as a SQL fragment because it appears in every conflict query.
const liveStatuses = `('PENDING','CONFIRMED')`

// Store implements booking.Store on MySQL.  Allocation integrity comes
// from locking the space row with SELECT ... FOR UPDATE inside a
// transaction, which serializes all allocations for a space: a concurrent
// allocator blocks on the row lock and then sees the committed insert in
// its own conflict check.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Allocate runs fn inside a transaction that holds the space row lock.
// The lock is taken lazily by the AllocationTx's LockSpace; fn is expected
// to call it before checking conflicts.  Deadlocks and lock wait timeouts
// surface as booking.ErrSerializationConflict so the caller can report the
// lost race as an availability conflict.
func (s *Store) Allocate(ctx context.Context, spaceID string, fn func(tx booking.AllocationTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapMySQLErr(err)
	}
	if err := fn(&allocTx{tx: tx}); err != nil {
		tx.Rollback()
		return mapMySQLErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapMySQLErr(err)
	}
	return nil
}

// allocTx implements booking.AllocationTx over a live transaction.
type allocTx struct {
	tx *sql.Tx
}

// LockSpace reads the space row under an exclusive lock, blocking any
// concurrent allocator for the same space until this transaction ends.
func (a *allocTx) LockSpace(ctx context.Context, id string) (*model.Space, error) {
	const q = `SELECT id, operator_id, name, capacity, rate_per_day_cents, rate_per_hour_cents, is_active, created_at, updated_at
	           FROM spaces WHERE id = ? FOR UPDATE`
	return scanSpace(a.tx.QueryRowContext(ctx, q, id))
}

func (a *allocTx) Conflicts(ctx context.Context, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error) {
	return queryConflicts(ctx, a.tx, spaceID, iv, excludeID)
}

func (a *allocTx) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (id, space_id, requester_id, start_date, end_date, start_min, end_min, headcount, status,
	            base_price_cents, fees_cents, extra_occupant_fee_cents, total_price_cents, days, note)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := a.tx.ExecContext(ctx, q,
		res.ID, res.SpaceID, res.RequesterID,
		res.StartDate.Format(interval.DateLayout), res.EndDate.Format(interval.DateLayout),
		res.StartMin, res.EndMin, res.Headcount, res.Status,
		res.BasePriceCents, res.FeesCents, res.ExtraOccupantFeeCents, res.TotalPriceCents,
		res.Days, res.Note,
	)
	return err
}

func (a *allocTx) Update(ctx context.Context, res *model.Reservation) error {
	return execUpdateReservation(ctx, a.tx, res)
}

// GetSpace returns a space by ID, without locking.
func (s *Store) GetSpace(ctx context.Context, id string) (*model.Space, error) {
	const q = `SELECT id, operator_id, name, capacity, rate_per_day_cents, rate_per_hour_cents, is_active, created_at, updated_at
	           FROM spaces WHERE id = ?`
	return scanSpace(s.db.QueryRowContext(ctx, q, id))
}

// ListSpaces returns the space catalogue ordered by name.
func (s *Store) ListSpaces(ctx context.Context, activeOnly bool) ([]model.Space, error) {
	q := `SELECT id, operator_id, name, capacity, rate_per_day_cents, rate_per_hour_cents, is_active, created_at, updated_at
	      FROM spaces`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapMySQLErr(err)
	}
	defer rows.Close()
	out := make([]model.Space, 0)
	for rows.Next() {
		var sp model.Space
		var hourly sql.NullInt64
		if err := rows.Scan(&sp.ID, &sp.OperatorID, &sp.Name, &sp.Capacity,
			&sp.RatePerDayCents, &hourly, &sp.IsActive, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, err
		}
		if hourly.Valid {
			v := hourly.Int64
			sp.RatePerHourCents = &v
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReservation returns a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, mapMySQLErr(err)
	}
	return res, nil
}

// FindConflicts returns the live reservations whose date ranges overlap the
// candidate interval, outside any transaction.  Time-of-day narrowing is
// the caller's job; the query works at date granularity so the predicate
// lives in exactly one place.
func (s *Store) FindConflicts(ctx context.Context, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error) {
	return queryConflicts(ctx, s.db, spaceID, iv, excludeID)
}

// UpdateReservation rewrites the mutable columns of a reservation.
func (s *Store) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	return mapMySQLErr(execUpdateReservation(ctx, s.db, res))
}

// TransitionStatus atomically moves a reservation from one status to
// another.  It returns false when no row matched, meaning the reservation
// does not exist or is not in the expected status; the two cases are
// deliberately indistinguishable.
func (s *Store) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	const q = `UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
	result, err := s.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, mapMySQLErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkCancelled atomically cancels a reservation that is in one of the
// given statuses, recording the reason and timestamp.
func (s *Store) MarkCancelled(ctx context.Context, id string, from []string, reason *string, at time.Time) (bool, error) {
	q := `UPDATE reservations
	      SET status = 'CANCELLED', cancel_reason = ?, cancelled_at = ?, updated_at = ?
	      WHERE id = ? AND status IN (`
	args := []any{reason, at.UTC(), at.UTC(), id}
	for i, st := range from {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, st)
	}
	q += ")"
	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, mapMySQLErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// querier abstracts *sql.DB and *sql.Tx for the shared query helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queryConflicts selects the live reservations whose date ranges touch the
// candidate interval, joined with users for requester emails.  Rows come
// back ordered by start date so conflict payloads are deterministic.
func queryConflicts(ctx context.Context, q querier, spaceID string, iv interval.Interval, excludeID string) ([]model.Conflict, error) {
	query := `SELECT r.id, r.requester_id, u.email, r.status, r.start_date, r.end_date, r.start_min, r.end_min
	          FROM reservations r
	          JOIN users u ON u.id = r.requester_id
	          WHERE r.space_id = ?
	            AND r.status IN ` + liveStatuses + `
	            AND r.start_date <= ?
	            AND r.end_date >= ?`
	args := []any{spaceID, iv.EndDate.Format(interval.DateLayout), iv.StartDate.Format(interval.DateLayout)}
	if excludeID != "" {
		query += ` AND r.id <> ?`
		args = append(args, excludeID)
	}
	query += ` ORDER BY r.start_date`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Conflict
	for rows.Next() {
		var c model.Conflict
		var startMin, endMin sql.NullInt64
		if err := rows.Scan(&c.ReservationID, &c.RequesterID, &c.RequesterEmail, &c.Status,
			&c.StartDate, &c.EndDate, &startMin, &endMin); err != nil {
			return nil, err
		}
		if startMin.Valid {
			v := int(startMin.Int64)
			c.StartMin = &v
		}
		if endMin.Valid {
			v := int(endMin.Int64)
			c.EndMin = &v
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func execUpdateReservation(ctx context.Context, q querier, res *model.Reservation) error {
	const query = `UPDATE reservations
	               SET start_date = ?, end_date = ?, start_min = ?, end_min = ?, headcount = ?,
	                   base_price_cents = ?, fees_cents = ?, extra_occupant_fee_cents = ?, total_price_cents = ?,
	                   days = ?, note = ?, updated_at = ?
	               WHERE id = ?`
	result, err := q.ExecContext(ctx, query,
		res.StartDate.Format(interval.DateLayout), res.EndDate.Format(interval.DateLayout),
		res.StartMin, res.EndMin, res.Headcount,
		res.BasePriceCents, res.FeesCents, res.ExtraOccupantFeeCents, res.TotalPriceCents,
		res.Days, res.Note, res.UpdatedAt.UTC(),
		res.ID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// reservationCols is the canonical column list scanned by scanReservation.
const reservationCols = `id, space_id, requester_id, start_date, end_date, start_min, end_min, headcount, status,
	base_price_cents, fees_cents, extra_occupant_fee_cents, total_price_cents, days, note,
	cancel_reason, cancelled_at, created_at, updated_at`

func scanReservation(row *sql.Row) (*model.Reservation, error) {
	var res model.Reservation
	var startMin, endMin sql.NullInt64
	var cancelReason sql.NullString
	var cancelledAt sql.NullTime
	err := row.Scan(
		&res.ID, &res.SpaceID, &res.RequesterID, &res.StartDate, &res.EndDate,
		&startMin, &endMin, &res.Headcount, &res.Status,
		&res.BasePriceCents, &res.FeesCents, &res.ExtraOccupantFeeCents, &res.TotalPriceCents,
		&res.Days, &res.Note, &cancelReason, &cancelledAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startMin.Valid {
		v := int(startMin.Int64)
		res.StartMin = &v
	}
	if endMin.Valid {
		v := int(endMin.Int64)
		res.EndMin = &v
	}
	if cancelReason.Valid {
		cr := cancelReason.String
		res.CancelReason = &cr
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		res.CancelledAt = &at
	}
	return &res, nil
}

func scanSpace(row *sql.Row) (*model.Space, error) {
	var sp model.Space
	var hourly sql.NullInt64
	err := row.Scan(&sp.ID, &sp.OperatorID, &sp.Name, &sp.Capacity,
		&sp.RatePerDayCents, &hourly, &sp.IsActive, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrSpaceNotFound
		}
		return nil, mapMySQLErr(err)
	}
	if hourly.Valid {
		v := hourly.Int64
		sp.RatePerHourCents = &v
	}
	return &sp, nil
}

// mapMySQLErr translates driver-level failures into the storage error
// taxonomy.  Deadlocks (1213) and lock wait timeouts (1205) become
// serialization conflicts; connection failures become storage-unavailable.
// Everything else passes through untouched.
func mapMySQLErr(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213, 1205:
			return booking.ErrSerializationConflict
		}
	}
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return booking.ErrStorageUnavailable
	}
	return err
}
