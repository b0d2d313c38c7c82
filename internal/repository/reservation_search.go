package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
)

// sortColumns maps the exported sort field names onto reservation columns.
// Sorting only ever goes through this table, so client-supplied field names
// can never reach the SQL text.
var sortColumns = map[string]string{
	booking.SortCreatedAt:  "r.created_at",
	booking.SortUpdatedAt:  "r.updated_at",
	booking.SortStartDate:  "r.start_date",
	booking.SortEndDate:    "r.end_date",
	booking.SortTotalPrice: "r.total_price_cents",
	booking.SortStatus:     "r.status",
}

// ListReservations returns a page of reservations matching the query plus
// the total match count.  Unknown sort fields fall back to creation time.
func (s *Store) ListReservations(ctx context.Context, q booking.ListQuery) ([]model.Reservation, int64, error) {
	where := []string{}
	args := []any{}

	if q.SpaceID != "" {
		where = append(where, "r.space_id = ?")
		args = append(args, q.SpaceID)
	}
	if q.RequesterID != "" {
		where = append(where, "r.requester_id = ?")
		args = append(args, q.RequesterID)
	}
	if q.OperatorID != "" {
		where = append(where, "sp.operator_id = ?")
		args = append(args, q.OperatorID)
	}
	if len(q.Statuses) > 0 {
		ph := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			ph[i] = "?"
			args = append(args, st)
		}
		where = append(where, "r.status IN ("+strings.Join(ph, ",")+")")
	}
	if q.DateFrom != nil {
		where = append(where, "r.end_date >= ?")
		args = append(args, q.DateFrom.Format(interval.DateLayout))
	}
	if q.DateTo != nil {
		where = append(where, "r.start_date <= ?")
		args = append(args, q.DateTo.Format(interval.DateLayout))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM reservations r
		JOIN spaces sp ON sp.id = r.space_id
		WHERE ` + cond
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, mapMySQLErr(err)
	}

	col, ok := sortColumns[q.SortField]
	if !ok {
		col = "r.created_at"
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT r.id, r.space_id, r.requester_id, r.start_date, r.end_date, r.start_min, r.end_min,
			r.headcount, r.status, r.base_price_cents, r.fees_cents, r.extra_occupant_fee_cents,
			r.total_price_cents, r.days, r.note, r.cancel_reason, r.cancelled_at, r.created_at, r.updated_at
		FROM reservations r
		JOIN spaces sp ON sp.id = r.space_id
		WHERE ` + cond + `
		ORDER BY ` + col + ` ` + dir + `, r.id
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := s.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, mapMySQLErr(err)
	}
	defer rows.Close()

	out := make([]model.Reservation, 0, limit)
	for rows.Next() {
		var res model.Reservation
		var startMin, endMin sql.NullInt64
		var cancelReason sql.NullString
		var cancelledAt sql.NullTime
		if err := rows.Scan(
			&res.ID, &res.SpaceID, &res.RequesterID, &res.StartDate, &res.EndDate,
			&startMin, &endMin, &res.Headcount, &res.Status,
			&res.BasePriceCents, &res.FeesCents, &res.ExtraOccupantFeeCents, &res.TotalPriceCents,
			&res.Days, &res.Note, &cancelReason, &cancelledAt, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, 0, err
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
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
