// Package postgres stores reservations in PostgreSQL. Overlap admission is
// enforced by an exclusion constraint on (resource_id, timespan).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neomorfeo/rsvp/internal/domain"
)

const (
	table              = "rsvp.reservations"
	conflictConstraint = "reservations_conflict"
	timespanConstraint = "reservations_timespan_valid"
)

var columns = []string{"id", "user_id", "resource_id", "status::text", "timespan", "note"}

var returning = "RETURNING id, user_id, resource_id, status::text, timespan, note"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Compile-time check: ReservationRepository implements domain.ReservationRepository.
var _ domain.ReservationRepository = (*ReservationRepository)(nil)

// ReservationRepository implements domain.ReservationRepository on a pgx pool.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

// New wraps pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// Ping checks that the database is reachable.
func (r *ReservationRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func status(s domain.Status) sq.Sqlizer {
	return sq.Expr("?::text::rsvp.reservation_status", s.String())
}

func (r *ReservationRepository) Insert(ctx context.Context, rsvp domain.Reservation) (domain.Reservation, error) {
	query, args, err := psql.Insert(table).
		Columns("user_id", "resource_id", "status", "timespan", "note").
		Values(
			rsvp.UserID, rsvp.ResourceID, status(rsvp.Status),
			sq.Expr("tstzrange(?::timestamptz, ?::timestamptz, '()')", rsvp.Window.Start.UTC(), rsvp.Window.End.UTC()),
			rsvp.Note,
		).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building insert: %w", err)
	}

	created, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Reservation{}, insertError(rsvp, err)
	}
	return created, nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (domain.Reservation, error) {
	query, args, err := psql.Update(table).
		Set("status", status(to)).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("status = ?::text::rsvp.reservation_status", from.String())).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building status update: %w", err)
	}

	return r.one(ctx, "update status", query, args)
}

func (r *ReservationRepository) UpdateNote(ctx context.Context, id uuid.UUID, note string) (domain.Reservation, error) {
	query, args, err := psql.Update(table).
		Set("note", note).
		Where(sq.Eq{"id": id}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building note update: %w", err)
	}

	return r.one(ctx, "update note", query, args)
}

func (r *ReservationRepository) Delete(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	query, args, err := psql.Delete(table).
		Where(sq.Eq{"id": id}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building delete: %w", err)
	}

	return r.one(ctx, "delete", query, args)
}

func (r *ReservationRepository) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	query, args, err := psql.Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building get: %w", err)
	}

	return r.one(ctx, "get", query, args)
}

func (r *ReservationRepository) Query(ctx context.Context, filter domain.QueryFilter) ([]domain.Reservation, error) {
	builder := psql.Select(columns...).From(table)

	if userID, ok := filter.EffectiveUserID(); ok {
		builder = builder.Where(sq.Eq{"user_id": userID})
	}
	if resourceID, ok := filter.EffectiveResourceID(); ok {
		builder = builder.Where(sq.Eq{"resource_id": resourceID})
	}
	if s, ok := filter.EffectiveStatus(); ok {
		builder = builder.Where(sq.Expr("status = ?::text::rsvp.reservation_status", s))
	}

	// A nil bound makes the range unbounded on that side.
	bounds := filter.EffectiveWindow()
	if bounds.Start != nil || bounds.End != nil {
		builder = builder.Where(sq.Expr("timespan && tstzrange(?::timestamptz, ?::timestamptz, '()')",
			utcOrNil(bounds.Start), utcOrNil(bounds.End)))
	}

	if filter.Desc {
		builder = builder.OrderBy("lower(timespan) DESC", "seq DESC")
	} else {
		builder = builder.OrderBy("lower(timespan) ASC", "seq ASC")
	}

	query, args, err := builder.
		Limit(uint64(filter.Limit())).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("query", err)
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0, filter.Limit())
	for rows.Next() {
		rsvp, err := scanReservation(rows)
		if err != nil {
			return nil, storageError("query", err)
		}
		reservations = append(reservations, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query", err)
	}

	return reservations, nil
}

func (r *ReservationRepository) one(ctx context.Context, op, query string, args []any) (domain.Reservation, error) {
	rsvp, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, storageError(op, err)
	}
	return rsvp, nil
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var rsvp domain.Reservation
	var statusName string
	var timespan pgtype.Range[pgtype.Timestamptz]

	if err := row.Scan(&rsvp.ID, &rsvp.UserID, &rsvp.ResourceID, &statusName, &timespan, &rsvp.Note); err != nil {
		return domain.Reservation{}, err
	}

	s, err := domain.ParseStatus(statusName)
	if err != nil {
		return domain.Reservation{}, err
	}
	rsvp.Status = s

	if !timespan.Lower.Valid || !timespan.Upper.Valid {
		return domain.Reservation{}, fmt.Errorf("reservation %s has an unbounded timespan", rsvp.ID)
	}
	rsvp.Window = domain.NewWindow(timespan.Lower.Time.UTC(), timespan.Upper.Time.UTC())

	return rsvp, nil
}

func insertError(rsvp domain.Reservation, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.ExclusionViolation && pgErr.ConstraintName == conflictConstraint:
			return &domain.ConflictError{
				ResourceID: rsvp.ResourceID,
				Window:     rsvp.Window,
				Existing:   parseConflictDetail(pgErr.Detail),
			}
		case pgErr.Code == pgerrcode.CheckViolation && pgErr.ConstraintName == timespanConstraint,
			pgErr.Code == pgerrcode.DataException:
			// DataException: tstzrange rejects a lower bound above the upper.
			return domain.ErrInvalidTimespan
		}
	}
	return storageError("insert", err)
}

func storageError(op string, err error) error {
	return &domain.StorageError{
		Op:      op,
		Timeout: pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// conflictDetail matches the existing key in an exclusion violation detail:
//
//	Key (resource_id, timespan)=(a, ("..","..")) conflicts with existing key (resource_id, timespan)=(a, ("..","..")).
var conflictDetail = regexp.MustCompile(`conflicts with existing key \(resource_id, timespan\)=\(.*, [\[(]"([^"]+)","([^"]+)"[\])]\)`)

var pgTimeLayouts = []string{
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
}

// parseConflictDetail extracts the window of the existing reservation from
// the server's detail message. It returns nil when the detail is absent or
// in an unexpected shape.
func parseConflictDetail(detail string) *domain.Window {
	m := conflictDetail.FindStringSubmatch(detail)
	if m == nil {
		return nil
	}

	start, ok := parsePgTime(m[1])
	if !ok {
		return nil
	}
	end, ok := parsePgTime(m[2])
	if !ok {
		return nil
	}

	w := domain.NewWindow(start, end)
	return &w
}

func parsePgTime(s string) (time.Time, bool) {
	for _, layout := range pgTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
