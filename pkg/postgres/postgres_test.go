package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
	"github.com/jakechorley/hourbank/pkg/locks"
)

var (
	_ db.Database  = (*DB)(nil)
	_ locks.Locker = (*DB)(nil)
)

// newTestDB connects to the database named by HOURBANK_TEST_DSN and empties it. Tests that need
// a server are skipped when the variable is unset.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("HOURBANK_TEST_DSN")
	if dsn == "" {
		t.Skip("HOURBANK_TEST_DSN not set")
	}

	ctx := context.Background()
	d, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(d.Close)

	require.NoError(t, d.RunMigrations(ctx))
	_, err = d.pool.Exec(ctx, `TRUNCATE reservation, property RESTART IDENTITY`)
	require.NoError(t, err)
	return d
}

func booking(key, slot, id string) db.Reservation {
	return db.Reservation{
		Campaign:      "Ventas",
		Date:          "10/06/2024",
		Hours:         1,
		Slot:          slot,
		Key:           key,
		Email:         "ana@example.com",
		Kind:          "Work",
		ReservationID: id,
	}
}

func TestLoadMigrations(t *testing.T) {
	scripts, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, scripts)

	for i := 1; i < len(scripts); i++ {
		assert.Less(t, scripts[i-1].name, scripts[i].name)
	}
	assert.Contains(t, scripts[0].sql, "CREATE TABLE IF NOT EXISTS reservation")
	assert.Contains(t, scripts[0].sql, "CREATE TABLE IF NOT EXISTS property")
}

func TestReservationsArePerPoolAndOrdered(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	require.NoError(t, d.InsertReservations(ctx, model.PoolWork, []db.Reservation{
		booking("k1", "09:00-10:00", "BH00000001"),
		booking("k2", "10:00-11:00", "BH00000001"),
	}))
	require.NoError(t, d.InsertReservations(ctx, model.PoolRest, []db.Reservation{booking("k1", "08:00-09:00", "BH00000002")}))

	work, err := d.ListReservations(ctx, model.PoolWork)
	require.NoError(t, err)
	require.Len(t, work, 2)
	assert.Equal(t, booking("k1", "09:00-10:00", "BH00000001"), work[0])
	assert.Equal(t, "k2", work[1].Key)

	overtime, err := d.ListReservations(ctx, model.PoolOvertime)
	require.NoError(t, err)
	assert.Empty(t, overtime)
}

func TestDeleteByKey_RemovesOldestMatchOnly(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	require.NoError(t, d.InsertReservations(ctx, model.PoolWork, []db.Reservation{
		booking("dup", "09:00-10:00", "BH00000001"),
		booking("other", "10:00-11:00", "BH00000001"),
		booking("dup", "11:00-12:00", "BH00000002"),
	}))

	deleted, err := d.DeleteByKey(ctx, model.PoolWork, "dup")
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "09:00-10:00", deleted.Slot)

	rows, err := d.ListReservations(ctx, model.PoolWork)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "other", rows[0].Key)
	assert.Equal(t, "11:00-12:00", rows[1].Slot)

	_, err = d.DeleteByKey(ctx, model.PoolWork, "dup")
	require.NoError(t, err)
	missing, err := d.DeleteByKey(ctx, model.PoolWork, "dup")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// the key match is exact and per pool
	gone, err := d.DeleteByKey(ctx, model.PoolRest, "other")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUpdateByKey_RewritesOldestMatchOnly(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	require.NoError(t, d.InsertReservations(ctx, model.PoolRest, []db.Reservation{
		booking("dup", "09:00-10:00", "BH00000001"),
		booking("dup", "10:00-11:00", "BH00000002"),
	}))

	updated := booking("new", "12:00-13:00", "BH00000001")
	updated.Validation = "OK"
	ok, err := d.UpdateByKey(ctx, model.PoolRest, "dup", updated)
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := d.ListReservations(ctx, model.PoolRest)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, updated, rows[0], "row keeps its position")
	assert.Equal(t, "dup", rows[1].Key)

	found, err := d.FindByKey(ctx, model.PoolRest, "dup")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "BH00000002", found.ReservationID)

	ok, err = d.UpdateByKey(ctx, model.PoolRest, "missing", updated)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	_, ok, err := d.GetCounter(ctx, "reservation_id")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.SetCounter(ctx, "reservation_id", 7))
	require.NoError(t, d.SetCounter(ctx, "reservation_id", 8))
	require.NoError(t, d.SetCounter(ctx, "locker_rows", 3))

	v, ok, err := d.GetCounter(ctx, "reservation_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(8), v)

	var rows int
	require.NoError(t, d.pool.QueryRow(ctx, `SELECT count(*) FROM property`).Scan(&rows))
	assert.Equal(t, 2, rows, "a repeated write updates in place")
}

func TestAcquire_ExcludesAndTimesOut(t *testing.T) {
	d := newTestDB(t)

	release, err := d.Acquire(context.Background(), "pool:Work")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = d.Acquire(ctx, "pool:Work")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := d.Acquire(context.Background(), "pool:Rest")
	require.NoError(t, err, "distinct names do not block each other")
	other()

	release()
	release()
	again, err := d.Acquire(context.Background(), "pool:Work")
	require.NoError(t, err)
	again()
}

func TestAcquire_HeldLocksDoNotStarveQueries(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	held := int(d.pool.Config().MaxConns) + 1
	if held > lockConns {
		held = lockConns
	}
	for i := 0; i < held; i++ {
		release, err := d.Acquire(ctx, fmt.Sprintf("reserve:Work:Ventas:%d", i))
		require.NoError(t, err)
		defer release()
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := d.ListReservations(queryCtx, model.PoolWork)
	assert.NoError(t, err)
}

func TestRunMigrations_ConcurrentStartsApplyOnce(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	var g errgroup.Group
	for i := 0; i < 3; i++ {
		g.Go(func() error { return d.RunMigrations(ctx) })
	}
	require.NoError(t, g.Wait())

	scripts, err := loadMigrations()
	require.NoError(t, err)
	var applied int
	require.NoError(t, d.pool.QueryRow(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, len(scripts), applied)
}
