package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/slot"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB, slot.NewRepository(sqlxDB))

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func TestCreateHold_ReservesEverythingInOneTransaction(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	expires := now.Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings (customer_id, status, total_price, hold_expires_at)")).
		WithArgs(1, int64(300000), expires).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "total_price", "hold_expires_at", "created_at"}).
			AddRow(42, 1, "hold", int64(300000), expires, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, is_available")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_available"}).
			AddRow(5, true).
			AddRow(6, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_available = FALSE, booking_id = $1 WHERE id = ANY($2)")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_details")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_details")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	lines := []HoldLine{
		{SlotID: 5, ResourceType: slot.ResourceCourt, StartTime: now, Price: 120000},
		{SlotID: 6, ResourceType: slot.ResourceCourt, StartTime: now.Add(time.Hour), Price: 180000},
	}

	b, err := repo.CreateHold(context.Background(), 1, expires, lines, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, b.ID)
	assert.Equal(t, StatusHold, b.Status)
	assert.Equal(t, int64(300000), b.TotalPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateHold_ConflictRollsBackWholeCreation(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	expires := now.Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings (customer_id, status, total_price, hold_expires_at)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "total_price", "hold_expires_at", "created_at"}).
			AddRow(42, 1, "hold", int64(300000), expires, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, is_available")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_available"}).
			AddRow(5, true).
			AddRow(6, false))
	mock.ExpectRollback()

	lines := []HoldLine{
		{SlotID: 5, ResourceType: slot.ResourceCourt, StartTime: now, Price: 120000},
		{SlotID: 6, ResourceType: slot.ResourceCourt, StartTime: now.Add(time.Hour), Price: 180000},
	}

	_, err := repo.CreateHold(context.Background(), 1, expires, lines, nil)
	require.ErrorIs(t, err, slot.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirm_TransitionsHold(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'confirmed', total_price = $2, hold_expires_at = NULL")).
		WithArgs(42, int64(255000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Confirm(context.Background(), 42, 255000))
}

func TestConfirm_IdempotentOnConfirmedBooking(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'confirmed', total_price = $2, hold_expires_at = NULL")).
		WithArgs(42, int64(255000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "total_price", "hold_expires_at", "created_at"}).
			AddRow(42, 1, "confirmed", int64(255000), nil, time.Now()))

	require.NoError(t, repo.Confirm(context.Background(), 42, 255000))
}

func TestConfirm_RejectsCancelledBooking(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'confirmed', total_price = $2, hold_expires_at = NULL")).
		WithArgs(42, int64(255000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "total_price", "hold_expires_at", "created_at"}).
			AddRow(42, 1, "cancelled", int64(0), nil, time.Now()))

	err := repo.Confirm(context.Background(), 42, 255000)
	require.ErrorIs(t, err, ErrNotConfirmable)
}

func TestCancel_ReleasesSlotsAndRestoresInventory(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, hold_expires_at FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"status", "hold_expires_at"}).AddRow("confirmed", nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = 'cancelled', hold_expires_at = NULL WHERE id = $1")).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot_id FROM booking_details WHERE booking_id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}).AddRow(5).AddRow(6).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SET is_available = TRUE, booking_id = NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"resource_type"}).
			AddRow("court").AddRow("court").AddRow("court"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_inventories WHERE booking_id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "inventory_id", "quantity", "unit_price"}).
			AddRow(1, 42, 9, 2, int64(25000)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory_items SET quantity = quantity + $1 WHERE id = $2")).
		WithArgs(2, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	released, restored, err := repo.Cancel(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 3, released.CourtSlots)
	assert.Equal(t, 1, restored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_SecondCancelRejected(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, hold_expires_at FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"status", "hold_expires_at"}).AddRow("cancelled", nil))
	mock.ExpectRollback()

	_, _, err := repo.Cancel(context.Background(), 42)
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelExpiredHold_RefusesConfirmedBooking(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// Confirmed between the sweeper's scan and its cancel attempt.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, hold_expires_at FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"status", "hold_expires_at"}).AddRow("confirmed", nil))
	mock.ExpectRollback()

	_, _, err := repo.CancelExpiredHold(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotExpirable)
}

func TestCancelExpiredHold_RefusesLiveHold(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	stillLive := time.Now().Add(5 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, hold_expires_at FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"status", "hold_expires_at"}).AddRow("hold", stillLive))
	mock.ExpectRollback()

	_, _, err := repo.CancelExpiredHold(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotExpirable)
}

func TestListExpiredHolds(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	expired := now.Add(-time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'hold' AND hold_expires_at <= $1")).
		WithArgs(now, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "total_price", "hold_expires_at", "created_at"}).
			AddRow(42, 1, "hold", int64(300000), expired, now.Add(-11*time.Minute)))

	holds, err := repo.ListExpiredHolds(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, 42, holds[0].ID)
}
