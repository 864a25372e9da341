package idissuer

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
	"github.com/jakechorley/hourbank/pkg/locks"
)

const (
	// CounterName is the counter holding the last issued reservation number
	CounterName = "reservation_id"
	// LockName guards the counter across every pool
	LockName = "reservation-id"
	// DefaultWait bounds how long Issue waits for the lock
	DefaultWait = 20 * time.Second
)

// Store is the persistence the issuer needs: the counter and the pools to rescan
type Store interface {
	db.CounterStore
	ListReservations(ctx context.Context, pool model.PoolKind) ([]db.Reservation, error)
}

// Issuer hands out reservation ids. One counter is shared by every pool.
type Issuer struct {
	store  Store
	locker locks.Locker
	wait   time.Duration
	logger *zap.Logger
}

func New(store Store, locker locks.Locker, wait time.Duration, logger *zap.Logger) *Issuer {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Issuer{store: store, locker: locker, wait: wait, logger: logger}
}

// Issue returns the next reservation id. The read, recovery, increment and write of the counter
// all happen while the lock is held, and the store calls made under the lock share the same
// bounded wait. A lock timeout is reported as model.ErrLockTimeout and leaves the counter
// untouched.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	lockCtx, cancel := context.WithTimeout(ctx, i.wait)
	defer cancel()

	release, err := i.locker.Acquire(lockCtx, LockName)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			i.logger.Warn("Timed out waiting for id lock", zap.Duration("wait", i.wait))
			return "", model.LockTimeoutError(LockName, i.wait, err)
		}
		return "", errors.Wrap(err, "failed to acquire id lock")
	}
	defer release()

	storeCtx, cancelStore := context.WithTimeout(ctx, i.wait)
	defer cancelStore()

	current, ok, err := i.store.GetCounter(storeCtx, CounterName)
	if err != nil {
		return "", errors.Wrap(err, "failed to read id counter")
	}

	if !ok || current < 0 {
		current, err = i.HighestPersisted(storeCtx)
		if err != nil {
			return "", err
		}
		if err := i.store.SetCounter(storeCtx, CounterName, current); err != nil {
			return "", errors.Wrap(err, "failed to store recovered id counter")
		}
		i.logger.Info("Recovered id counter from persisted reservations", zap.Int64("baseline", current))
	}

	next := current + 1
	id, err := model.FormatReservationID(next)
	if err != nil {
		i.logger.Error("Reservation id space exhausted", zap.Int64("counter", current))
		return "", err
	}
	if err := i.store.SetCounter(storeCtx, CounterName, next); err != nil {
		return "", errors.Wrap(err, "failed to store id counter")
	}

	i.logger.Debug("Issued reservation id", zap.String("reservation_id", id))
	return id, nil
}

// HighestPersisted scans every pool for the largest well-formed reservation id
func (i *Issuer) HighestPersisted(ctx context.Context) (int64, error) {
	var ids []string
	for _, pool := range model.Pools {
		rows, err := i.store.ListReservations(ctx, pool)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to scan %s pool for ids", pool)
		}
		for _, r := range rows {
			ids = append(ids, r.ReservationID)
		}
	}
	return model.HighestReservationID(ids), nil
}
