package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/idissuer"
	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
	"github.com/jakechorley/hourbank/pkg/locks"
)

// memStore is an in-memory db.Database
type memStore struct {
	mu        sync.Mutex
	pools     map[model.PoolKind][]db.Reservation
	counters  map[string]int64
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{pools: map[model.PoolKind][]db.Reservation{}, counters: map[string]int64{}}
}

func (m *memStore) ListReservations(ctx context.Context, pool model.PoolKind) ([]db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.Reservation(nil), m.pools[pool]...), nil
}

func (m *memStore) InsertReservations(ctx context.Context, pool model.PoolKind, rows []db.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[pool] = append(m.pools[pool], rows...)
	return nil
}

func (m *memStore) FindByKey(ctx context.Context, pool model.PoolKind, key string) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.pools[pool] {
		if r.Key == key {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) DeleteByKey(ctx context.Context, pool model.PoolKind, key string) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	rows := m.pools[pool]
	for i, r := range rows {
		if r.Key == key {
			m.pools[pool] = append(rows[:i:i], rows[i+1:]...)
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateByKey(ctx context.Context, pool model.PoolKind, key string, row db.Reservation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.pools[pool] {
		if r.Key == key {
			m.pools[pool][i] = row
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetCounter(ctx context.Context, name string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.counters[name]
	return v, ok, nil
}

func (m *memStore) SetCounter(ctx context.Context, name string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = value
	return nil
}

func (m *memStore) rows(pool model.PoolKind) []db.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.Reservation(nil), m.pools[pool]...)
}

// stalledStore never answers a listing until the caller gives up
type stalledStore struct {
	*memStore
}

func (s stalledStore) ListReservations(ctx context.Context, pool model.PoolKind) ([]db.Reservation, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// brokenLocks fails every acquisition
type brokenLocks struct {
	err error
}

func (b brokenLocks) Acquire(ctx context.Context, name string) (func(), error) {
	return nil, b.err
}

// fakeCapacity serves fixed capacity rows per pool
type fakeCapacity struct {
	mu    sync.Mutex
	rows  map[model.PoolKind][]model.CapacityRow
	reads int
}

func (f *fakeCapacity) CapacityRows(pool model.PoolKind) ([]model.CapacityRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.rows[pool], nil
}

type fakeAllowList map[string]struct{}

func (f fakeAllowList) OvertimeCampaigns() (map[string]struct{}, error) {
	return f, nil
}

type fakeRoster map[string]string

func (f fakeRoster) EmployeeNumbers() (map[string]string, error) {
	return f, nil
}

type fakeLocker struct {
	writes int
	header []string
	rows   [][]string
}

func (f *fakeLocker) WriteLocker(header []string, rows [][]string) error {
	f.writes++
	f.header = header
	f.rows = rows
	return nil
}

type sentMail struct {
	To, Subject, Body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) SendEmail(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeNotifier) mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

var testDate = model.NewDate(2024, time.June, 10)

func capacityRow(campaign string, date model.Date, label string, remaining int) model.CapacityRow {
	return model.CapacityRow{Campaign: campaign, Date: date, SlotLabel: label, Remaining: remaining}
}

func at(hour int) time.Time {
	return testDate.At(hour, 0, time.UTC)
}

type testEnv struct {
	core     *Core
	store    *memStore
	capacity *fakeCapacity
	notifier *fakeNotifier
	locker   *fakeLocker
}

// newTestEnv builds a core whose Work capacity for Ventas on 2024-06-10 has 09:00-10:00 and
// 10:00-11:00 free, Rest has 08:00-09:00, and only Soporte may book overtime
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	capacity := &fakeCapacity{rows: map[model.PoolKind][]model.CapacityRow{
		model.PoolWork: {
			capacityRow("Ventas", testDate, "09:00-10:00", 2),
			capacityRow("Ventas", testDate, "10:00 - 11:00", 1),
			capacityRow("Ventas", testDate, "11:00-12:00", 0),
			capacityRow("Soporte", testDate, "09:00-10:00", 1),
		},
		model.PoolRest: {
			capacityRow("Ventas", testDate, "08:00-09:00", 1),
		},
		model.PoolOvertime: {
			capacityRow("Soporte", testDate, "18:00-19:00", 1),
			capacityRow("Ventas", testDate, "18:00-19:00", 1),
		},
	}}
	notifier := &fakeNotifier{}
	locker := &fakeLocker{}
	localLocks := locks.NewLocal()
	logger := zap.NewNop()

	core := &Core{
		Store:     store,
		Capacity:  capacity,
		AllowList: fakeAllowList{"soporte": {}},
		Roster:    fakeRoster{"ana@example.com": "1001"},
		Locker:    locker,
		Notifier:  notifier,
		Issuer:    idissuer.New(store, localLocks, time.Second, logger),
		Locks:     localLocks,
		Location:  time.UTC,
		Logger:    logger,
		LockWait:  time.Second,
		AppURL:    "https://hourbank.example.com",
	}

	return &testEnv{core: core, store: store, capacity: capacity, notifier: notifier, locker: locker}
}

func (e *testEnv) reserve(t *testing.T, pool model.PoolKind, campaign string, hour, hours int, email string) *ReserveResult {
	t.Helper()
	res, err := e.core.Reserve(context.Background(), ReserveRequest{
		Pool: pool, Campaign: campaign, Start: at(hour), Hours: hours, Email: email,
	})
	if err != nil {
		t.Fatalf("reserve %s %s %02d:00 x%d: %v", pool, campaign, hour, hours, err)
	}
	return res
}

func keyFor(campaign, label, email string, pool model.PoolKind) string {
	return model.DeriveKey(campaign, testDate.Serial(), label, email, pool)
}

var errStorage = fmt.Errorf("storage unavailable")
