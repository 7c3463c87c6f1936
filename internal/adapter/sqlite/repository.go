package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/neomorfeo/rsvp/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "reservations"

var columns = []string{"id", "user_id", "resource_id", "status", "start_at", "end_at", "note"}

var returning = "RETURNING " + strings.Join(columns, ", ")

// Compile-time check: ReservationRepository implements domain.ReservationRepository.
var _ domain.ReservationRepository = (*ReservationRepository)(nil)

// ReservationRepository implements domain.ReservationRepository using SQLite.
type ReservationRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*ReservationRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: writes are serialized anyway, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*ReservationRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &ReservationRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *ReservationRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *ReservationRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// timeFormat is fixed-width so that text comparison orders like time.
const timeFormat = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func (r *ReservationRepository) Insert(ctx context.Context, rsvp domain.Reservation) (domain.Reservation, error) {
	query, args, err := sq.Insert(table).
		Columns("id", "user_id", "resource_id", "status", "start_at", "end_at", "note", "created_at").
		Values(
			uuid.New().String(), rsvp.UserID, rsvp.ResourceID, rsvp.Status.String(),
			formatTime(rsvp.Window.Start), formatTime(rsvp.Window.End), rsvp.Note,
			formatTime(time.Now()),
		).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building insert: %w", err)
	}

	created, err := scanReservation(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isConflict(err) {
			return domain.Reservation{}, &domain.ConflictError{
				ResourceID: rsvp.ResourceID,
				Window:     rsvp.Window,
			}
		}
		return domain.Reservation{}, storageError("insert", err)
	}
	return created, nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (domain.Reservation, error) {
	query, args, err := sq.Update(table).
		Set("status", to.String()).
		Where(sq.Eq{"id": id.String(), "status": from.String()}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building status update: %w", err)
	}

	updated, err := scanReservation(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, storageError("update status", err)
	}
	return updated, nil
}

func (r *ReservationRepository) UpdateNote(ctx context.Context, id uuid.UUID, note string) (domain.Reservation, error) {
	query, args, err := sq.Update(table).
		Set("note", note).
		Where(sq.Eq{"id": id.String()}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building note update: %w", err)
	}

	return r.one(ctx, "update note", query, args)
}

func (r *ReservationRepository) Delete(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	query, args, err := sq.Delete(table).
		Where(sq.Eq{"id": id.String()}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building delete: %w", err)
	}

	return r.one(ctx, "delete", query, args)
}

func (r *ReservationRepository) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	query, args, err := sq.Select(columns...).
		From(table).
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("building get: %w", err)
	}

	return r.one(ctx, "get", query, args)
}

func (r *ReservationRepository) Query(ctx context.Context, filter domain.QueryFilter) ([]domain.Reservation, error) {
	builder := sq.Select(columns...).From(table)

	if userID, ok := filter.EffectiveUserID(); ok {
		builder = builder.Where(sq.Eq{"user_id": userID})
	}
	if resourceID, ok := filter.EffectiveResourceID(); ok {
		builder = builder.Where(sq.Eq{"resource_id": resourceID})
	}
	if status, ok := filter.EffectiveStatus(); ok {
		builder = builder.Where(sq.Eq{"status": status})
	}

	// Overlap with the requested range; a missing bound is unbounded.
	bounds := filter.EffectiveWindow()
	if bounds.Start != nil {
		builder = builder.Where(sq.Gt{"end_at": formatTime(*bounds.Start)})
	}
	if bounds.End != nil {
		builder = builder.Where(sq.Lt{"start_at": formatTime(*bounds.End)})
	}

	if filter.Desc {
		builder = builder.OrderBy("start_at DESC", "rowid DESC")
	} else {
		builder = builder.OrderBy("start_at ASC", "rowid ASC")
	}

	query, args, err := builder.
		Limit(uint64(filter.Limit())).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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

// one runs a statement expected to produce exactly one reservation row.
func (r *ReservationRepository) one(ctx context.Context, op, query string, args []any) (domain.Reservation, error) {
	rsvp, err := scanReservation(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, storageError(op, err)
	}
	return rsvp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanReservation scans one row laid out as columns into a domain.Reservation.
func scanReservation(row scanner) (domain.Reservation, error) {
	var rsvp domain.Reservation
	var id, status, startAt, endAt string

	err := row.Scan(&id, &rsvp.UserID, &rsvp.ResourceID, &status, &startAt, &endAt, &rsvp.Note)
	if err != nil {
		return domain.Reservation{}, err
	}

	if rsvp.ID, err = uuid.Parse(id); err != nil {
		return domain.Reservation{}, fmt.Errorf("parsing reservation id %q: %w", id, err)
	}
	if rsvp.Status, err = domain.ParseStatus(status); err != nil {
		return domain.Reservation{}, err
	}
	if rsvp.Window.Start, err = time.Parse(timeFormat, startAt); err != nil {
		return domain.Reservation{}, fmt.Errorf("parsing start_at: %w", err)
	}
	if rsvp.Window.End, err = time.Parse(timeFormat, endAt); err != nil {
		return domain.Reservation{}, fmt.Errorf("parsing end_at: %w", err)
	}

	return rsvp, nil
}

// conflictMessage is the RAISE(ABORT) text of the overlap triggers.
const conflictMessage = "reservation_conflict"

// isConflict reports whether err was raised by the overlap triggers.
func isConflict(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_TRIGGER &&
		strings.Contains(sqliteErr.Error(), conflictMessage)
}

func storageError(op string, err error) error {
	return &domain.StorageError{
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
