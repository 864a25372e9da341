package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

func TestCancel_RemovesRowFromOwningPool(t *testing.T) {
	env := newTestEnv(t)
	res := env.reserve(t, model.PoolRest, "Ventas", 8, 1, "ana@example.com")

	cancelled, err := env.core.Cancel(context.Background(), res.Rows[0].Key)

	require.NoError(t, err)
	assert.Equal(t, model.PoolRest, cancelled.Pool)
	assert.Equal(t, res.ReservationID, cancelled.Row.ReservationID)
	assert.Empty(t, env.store.rows(model.PoolRest))

	mails := env.notifier.mails()
	require.Len(t, mails, 2)
	assert.Equal(t, cancellationSubject, mails[1].Subject)
	assert.Contains(t, mails[1].Body, "08:00-09:00")
}

func TestCancel_RemovesOnlyOneRowOfARun(t *testing.T) {
	env := newTestEnv(t)
	res := env.reserve(t, model.PoolWork, "Ventas", 9, 2, "ana@example.com")

	_, err := env.core.Cancel(context.Background(), res.Rows[1].Key)
	require.NoError(t, err)

	rows := env.store.rows(model.PoolWork)
	require.Len(t, rows, 1)
	assert.Equal(t, res.Rows[0].Key, rows[0].Key)
}

func TestCancel_KeyMatchIsExact(t *testing.T) {
	env := newTestEnv(t)
	res := env.reserve(t, model.PoolWork, "Ventas", 9, 1, "ana@example.com")
	k := res.Rows[0].Key

	for _, near := range []string{k[:len(k)-1], k + "x", "ventas" + k[len("Ventas"):]} {
		_, err := env.core.Cancel(context.Background(), near)
		assert.True(t, errors.Is(err, model.ErrNotFound), near)
	}
	assert.Len(t, env.store.rows(model.PoolWork), 1)
}

func TestCancel_NotFoundAfterAllPools(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.core.Cancel(context.Background(), "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Empty(t, env.notifier.mails())
}

func TestCancel_EmptyKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.core.Cancel(context.Background(), " ")

	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestCancelBatch_BestEffort(t *testing.T) {
	env := newTestEnv(t)
	work := env.reserve(t, model.PoolWork, "Ventas", 9, 1, "ana@example.com")
	rest := env.reserve(t, model.PoolRest, "Ventas", 8, 1, "ana@example.com")

	res, err := env.core.CancelBatch(context.Background(), []string{
		work.Rows[0].Key, "missing", rest.Rows[0].Key, "",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{work.Rows[0].Key, rest.Rows[0].Key}, res.Cancelled)
	assert.Equal(t, []string{"missing", ""}, res.NotFound)
	assert.Empty(t, res.Failed)
	assert.Empty(t, env.store.rows(model.PoolWork))
	assert.Empty(t, env.store.rows(model.PoolRest))
}

func TestCancelBatch_StorageFailuresAreReported(t *testing.T) {
	env := newTestEnv(t)
	work := env.reserve(t, model.PoolWork, "Ventas", 9, 1, "ana@example.com")
	env.store.deleteErr = errStorage

	res, err := env.core.CancelBatch(context.Background(), []string{work.Rows[0].Key})

	require.NoError(t, err)
	assert.Empty(t, res.Cancelled)
	assert.Contains(t, res.Failed[work.Rows[0].Key], "storage unavailable")
}

func TestCancelBatch_NoKeys(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.core.CancelBatch(context.Background(), nil)

	assert.True(t, errors.Is(err, model.ErrValidation))
}
