package idissuer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
	"github.com/jakechorley/hourbank/pkg/locks"
)

// memStore is an in-memory Store. The sleep widens the read-write window so a missing lock
// would show up as duplicate ids.
type memStore struct {
	mu       sync.Mutex
	counters map[string]int64
	pools    map[model.PoolKind][]db.Reservation
	sleep    time.Duration
	setErr   error
	// block makes GetCounter wait for its context
	block bool
}

func newMemStore() *memStore {
	return &memStore{counters: map[string]int64{}, pools: map[model.PoolKind][]db.Reservation{}}
}

func (m *memStore) GetCounter(ctx context.Context, name string) (int64, bool, error) {
	if m.block {
		<-ctx.Done()
		return 0, false, ctx.Err()
	}
	m.mu.Lock()
	v, ok := m.counters[name]
	m.mu.Unlock()
	time.Sleep(m.sleep)
	return v, ok, nil
}

func (m *memStore) SetCounter(ctx context.Context, name string, value int64) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = value
	return nil
}

func (m *memStore) ListReservations(ctx context.Context, pool model.PoolKind) ([]db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pools[pool], nil
}

func withIDs(ids ...string) []db.Reservation {
	var rows []db.Reservation
	for _, id := range ids {
		rows = append(rows, db.Reservation{ReservationID: id})
	}
	return rows
}

func TestIssue_Sequential(t *testing.T) {
	store := newMemStore()
	store.counters[CounterName] = 41
	issuer := New(store, locks.NewLocal(), time.Second, zap.NewNop())

	id, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BH00000042", id)

	id, err = issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BH00000043", id)
	assert.Equal(t, int64(43), store.counters[CounterName])
}

func TestIssue_RecoversMissingCounter(t *testing.T) {
	store := newMemStore()
	store.pools[model.PoolWork] = withIDs("BH00000003", "broken", "")
	store.pools[model.PoolRest] = withIDs("bh00000011")
	store.pools[model.PoolOvertime] = withIDs("BH00000017", "BH17")
	issuer := New(store, locks.NewLocal(), time.Second, zap.NewNop())

	id, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BH00000018", id, "overtime pool is part of the rescan")
}

func TestIssue_RecoversNegativeCounter(t *testing.T) {
	store := newMemStore()
	store.counters[CounterName] = -1
	store.pools[model.PoolRest] = withIDs("BH00000005")
	issuer := New(store, locks.NewLocal(), time.Second, zap.NewNop())

	id, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BH00000006", id)
}

func TestIssue_EmptyDeploymentStartsAtOne(t *testing.T) {
	issuer := New(newMemStore(), locks.NewLocal(), time.Second, zap.NewNop())

	id, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BH00000001", id)
}

func TestIssue_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	store := newMemStore()
	store.sleep = time.Millisecond
	issuer := New(store, locks.NewLocal(), 10*time.Second, zap.NewNop())

	const callers = 25
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := issuer.Issue(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, callers)
	sort.Strings(ids)
	for i, id := range ids {
		want, err := model.FormatReservationID(int64(i + 1))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestIssue_LockTimeout(t *testing.T) {
	store := newMemStore()
	store.counters[CounterName] = 9
	locker := locks.NewLocal()
	release, err := locker.Acquire(context.Background(), LockName)
	require.NoError(t, err)
	defer release()

	issuer := New(store, locker, 20*time.Millisecond, zap.NewNop())
	_, err = issuer.Issue(context.Background())
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, model.ErrLockTimeout))
	assert.True(t, model.IsRetryable(err))
	assert.Equal(t, int64(9), store.counters[CounterName], "counter is not advanced")
}

func TestIssue_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.counters[CounterName] = 1
	store.setErr = errors.New("quota exceeded")
	issuer := New(store, locks.NewLocal(), time.Second, zap.NewNop())

	_, err := issuer.Issue(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.False(t, model.IsRetryable(err))
}

func TestIssue_PaddedIDsCountTowardRecovery(t *testing.T) {
	store := newMemStore()
	store.pools[model.PoolWork] = withIDs(" BH00000030 ", "BH00000004")
	issuer := New(store, locks.NewLocal(), time.Second, zap.NewNop())

	id, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BH00000031", id)
}

func TestIssue_IDSpaceExhausted(t *testing.T) {
	store := newMemStore()
	store.counters[CounterName] = model.MaxReservationNumber
	issuer := New(store, locks.NewLocal(), time.Second, zap.NewNop())

	id, err := issuer.Issue(context.Background())
	require.Error(t, err)
	assert.Empty(t, id)
	assert.True(t, cerrors.Is(err, model.ErrValidation))
	assert.Equal(t, model.MaxReservationNumber, store.counters[CounterName], "counter is not advanced")
}

func TestIssue_StoreCallsBoundedByWait(t *testing.T) {
	store := newMemStore()
	store.block = true
	issuer := New(store, locks.NewLocal(), 20*time.Millisecond, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := issuer.Issue(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, cerrors.Is(err, context.DeadlineExceeded))
	case <-time.After(2 * time.Second):
		t.Fatal("issue did not return while the store was stalled")
	}
}
