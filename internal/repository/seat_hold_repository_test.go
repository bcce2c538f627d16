package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-checkout/internal/holds"
	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

var testShow = model.ShowKey{ScreenID: "s1", ShowTime: "10:00 AM"}

func newHoldRepo(t *testing.T) (*SeatHoldRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewSeatHoldRepo(db, 5*time.Minute)
	fixed := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	return repo, mock
}

func TestSeatHoldRepoAcquire(t *testing.T) {
	repo, mock := newHoldRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds")).
		WithArgs("s1", "10:00 AM", "A1", sqlmock.AnyArg(), "alice").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO seat_holds")).
		WithArgs("s1", "10:00 AM", "A1", "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	h, err := repo.Acquire(context.Background(), testShow, "A1", "alice")
	require.NoError(t, err)
	assert.Equal(t, model.HoldHeld, h.Status)
	assert.Equal(t, time.Date(2026, 4, 1, 12, 5, 0, 0, time.UTC), h.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatHoldRepoAcquireTaken(t *testing.T) {
	repo, mock := newHoldRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO seat_holds")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Acquire(context.Background(), testShow, "A1", "bob")
	assert.ErrorIs(t, err, holds.ErrSeatUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatHoldRepoFinalize(t *testing.T) {
	repo, mock := newHoldRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seat_id FROM seat_holds")).
		WithArgs("s1", "10:00 AM", "alice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1").AddRow("A2"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seat_holds SET status = 'BOOKED'")).
		WithArgs("s1", "10:00 AM", "alice", "A1", "A2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Finalize(context.Background(), testShow, []model.SeatID{"A1", "A2", "A1"}, "alice")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatHoldRepoFinalizeLost(t *testing.T) {
	repo, mock := newHoldRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seat_id FROM seat_holds")).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1"))
	mock.ExpectRollback()

	err := repo.Finalize(context.Background(), testShow, []model.SeatID{"A1", "A2"}, "alice")
	assert.ErrorIs(t, err, holds.ErrHoldLost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatHoldRepoSnapshot(t *testing.T) {
	repo, mock := newHoldRepo(t)
	exp := time.Date(2026, 4, 1, 12, 3, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT seat_id, owner, status, expires_at FROM seat_holds")).
		WithArgs("s1", "10:00 AM", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id", "owner", "status", "expires_at"}).
			AddRow("A1", "bob", "HELD", exp).
			AddRow("A2", "carol", "BOOKED", nil))

	snap, err := repo.Snapshot(context.Background(), testShow)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, model.HoldHeld, snap[0].Status)
	assert.Equal(t, exp, snap[0].ExpiresAt)
	assert.Equal(t, model.HoldBooked, snap[1].Status)
	assert.True(t, snap[1].ExpiresAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatHoldRepoReleaseAndSweep(t *testing.T) {
	repo, mock := newHoldRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds")).
		WithArgs("s1", "10:00 AM", "B2", "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds")).
		WithArgs("s1", "10:00 AM", "alice").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds WHERE status = 'HELD' AND expires_at <= ?")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	ctx := context.Background()
	require.NoError(t, repo.Release(ctx, testShow, "B2", "alice"))
	n, err := repo.ReleaseAll(ctx, testShow, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = repo.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatHoldRepoEnsureSchema(t *testing.T) {
	repo, mock := newHoldRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS seat_holds")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
