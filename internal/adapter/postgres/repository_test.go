package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/neomorfeo/rsvp/internal/adapter/postgres"
	"github.com/neomorfeo/rsvp/internal/domain"
)

var day = time.Date(2022, 11, 18, 4, 0, 0, 0, time.UTC)

// newTestRepo connects to RSVP_TEST_POSTGRES_DSN, migrates, and empties the
// reservations table. Tests skip when the variable is unset.
func newTestRepo(t *testing.T) *postgres.ReservationRepository {
	t.Helper()

	dsn := os.Getenv("RSVP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RSVP_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, postgres.Migrate(ctx, db))

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE rsvp.reservations")
	require.NoError(t, err)

	return postgres.New(pool)
}

func rsvp(user, resource string, start time.Time, d time.Duration) domain.Reservation {
	return domain.NewReservation(user, resource, start, start.Add(d), "")
}

func TestInsert_And_Get(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := domain.NewReservation("M4n5ter", "hotel room 1", day, day.Add(50*time.Hour), "I'll arrive at 3PM. Please hold")
	created, err := repo.Insert(ctx, in)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "M4n5ter", got.UserID)
	assert.Equal(t, "hotel room 1", got.ResourceID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, got.Window.Start.Equal(in.Window.Start), "start = %v", got.Window.Start)
	assert.True(t, got.Window.End.Equal(in.Window.End), "end = %v", got.Window.End)
	assert.Equal(t, in.Note, got.Note)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsert_ConflictReportsExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	local := time.FixedZone("UTC+8", 8*60*60)
	existing := domain.NewReservation("M4n5ter", "room-1",
		time.Date(2022, 11, 18, 12, 0, 0, 0, local),
		time.Date(2022, 11, 20, 14, 0, 0, 0, local), "")
	_, err := repo.Insert(ctx, existing)
	require.NoError(t, err)

	_, err = repo.Insert(ctx, domain.NewReservation("Syuu", "room-1",
		time.Date(2022, 11, 17, 12, 0, 0, 0, local),
		time.Date(2022, 11, 29, 14, 0, 0, 0, local), ""))

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "room-1", conflict.ResourceID)
	require.NotNil(t, conflict.Existing)
	assert.True(t, conflict.Existing.Start.Equal(existing.Window.Start), "existing start = %v", conflict.Existing.Start)
	assert.True(t, conflict.Existing.End.Equal(existing.Window.End), "existing end = %v", conflict.Existing.End)
}

func TestInsert_NonConflicting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	blocked := rsvp("ops", "room-1", day, time.Hour)
	blocked.Status = domain.StatusBlocked

	for _, r := range []domain.Reservation{
		rsvp("a", "room-1", day, time.Hour),
		rsvp("b", "room-1", day.Add(time.Hour), time.Hour), // adjacent
		rsvp("c", "room-2", day, time.Hour),                // other resource
		blocked,
	} {
		_, err := repo.Insert(ctx, r)
		require.NoError(t, err, "inserting %+v", r)
	}
}

func TestInsert_ConcurrentOverlapAdmitsOne(t *testing.T) {
	repo := newTestRepo(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Insert(context.Background(),
				rsvp(fmt.Sprintf("user-%d", i), "room-1", day.Add(time.Duration(i)*time.Minute), time.Hour))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	admitted := 0
	for err := range errs {
		if err == nil {
			admitted++
			continue
		}
		var conflict *domain.ConflictError
		assert.True(t, errors.As(err, &conflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, admitted)
}

func TestUpdateStatus_Guarded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, rsvp("a", "room-1", day, time.Hour))
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, created.ID, domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)

	_, err = repo.UpdateStatus(ctx, created.ID, domain.StatusPending, domain.StatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateNote_And_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, rsvp("a", "room-1", day, time.Hour))
	require.NoError(t, err)

	note := `Robert'); DROP TABLE rsvp.reservations;--`
	updated, err := repo.UpdateNote(ctx, created.ID, note)
	require.NoError(t, err)
	assert.Equal(t, note, updated.Note)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, note, deleted.Note)

	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuery(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, h := range []int{0, 48, 96} {
		r, err := repo.Insert(ctx, rsvp("Syuu", "room-1", day.Add(time.Duration(h)*time.Hour), 24*time.Hour))
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	_, err := repo.UpdateStatus(ctx, ids[0], domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)

	confirmed, err := repo.Query(ctx, domain.QueryFilter{UserID: "Syuu", Status: domain.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, ids[0], confirmed[0].ID)

	start := day.Add(30 * time.Hour)
	open, err := repo.Query(ctx, domain.QueryFilter{ResourceID: "room-1", Start: &start})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, ids[1], open[0].ID)

	desc, err := repo.Query(ctx, domain.QueryFilter{ResourceID: "room-1", Desc: true, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1]}, []uuid.UUID{desc[0].ID, desc[1].ID})

	beyond, err := repo.Query(ctx, domain.QueryFilter{Page: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}
