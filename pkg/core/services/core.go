package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
	"github.com/jakechorley/hourbank/pkg/locks"
)

// CapacitySource reads the capacity table of a pool
type CapacitySource interface {
	CapacityRows(pool model.PoolKind) ([]model.CapacityRow, error)
}

// AllowList returns the campaigns allowed to use the overtime pool, trimmed and lower-cased
type AllowList interface {
	OvertimeCampaigns() (map[string]struct{}, error)
}

// Roster maps lower-cased email to employee number
type Roster interface {
	EmployeeNumbers() (map[string]string, error)
}

// LockerSink receives the unified export of every pool
type LockerSink interface {
	WriteLocker(header []string, rows [][]string) error
}

// Notifier delivers the mails sent to requesters
type Notifier interface {
	SendEmail(to, subject, htmlBody string) error
}

// IDIssuer hands out reservation ids
type IDIssuer interface {
	Issue(ctx context.Context) (string, error)
}

// Core runs the reservation operations over one store. Roster, Locker and Notifier are
// optional.
type Core struct {
	Store     db.Database
	Capacity  CapacitySource
	AllowList AllowList
	Roster    Roster
	Locker    LockerSink
	Notifier  Notifier
	Issuer    IDIssuer
	Locks     locks.Locker
	Location  *time.Location
	Logger    *zap.Logger

	// SubtractBooked removes live reservations from the capacity of their slot
	SubtractBooked bool
	// LockWait bounds the wait for the booking and pool locks, and each store call made while
	// one of them is held
	LockWait time.Duration
	// AppURL is linked from notification mails
	AppURL string
	// LockerExcluded reports campaigns left out of the locker export
	LockerExcluded func(campaign string) bool
}

const defaultLockWait = 20 * time.Second

func (c *Core) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c *Core) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// opLogger returns a logger tagged with a fresh op_id so the lines of one operation can be
// correlated
func (c *Core) opLogger(op string, fields ...zap.Field) *zap.Logger {
	return c.logger().With(append([]zap.Field{
		zap.String("op", op),
		zap.String("op_id", uuid.NewString()),
	}, fields...)...)
}

func (c *Core) lockWait() time.Duration {
	if c.LockWait <= 0 {
		return defaultLockWait
	}
	return c.LockWait
}

// lock takes a named lock with a bounded wait. A timeout becomes model.ErrLockTimeout.
func (c *Core) lock(ctx context.Context, name string) (func(), error) {
	wait := c.lockWait()

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	release, err := c.Locks.Acquire(lockCtx, name)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.LockTimeoutError(name, wait, err)
		}
		return nil, errors.Wrapf(err, "failed to acquire lock %s", name)
	}
	return release, nil
}

// storeCtx bounds a store call made while a lock is held
func (c *Core) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.lockWait())
}

// bucketLockName serialises bookings competing for the same slots
func bucketLockName(pool model.PoolKind, campaign string, date model.Date) string {
	return fmt.Sprintf("reserve:%s:%s:%s", pool, campaign, date.ISO())
}

// poolLockName serialises row mutations of one pool. Row positions shift on delete, so a
// find and the write that follows must not interleave with another mutation.
func poolLockName(pool model.PoolKind) string {
	return "pool:" + string(pool)
}

// notify sends a mail when a notifier is configured. Failures are logged and never fail the
// calling operation.
func (c *Core) notify(logger *zap.Logger, to, subject, body string) {
	if c.Notifier == nil || !isEmail(to) {
		return
	}
	if err := c.Notifier.SendEmail(to, subject, body); err != nil {
		logger.Warn("Failed to send notification", zap.String("to", to), zap.Error(err))
		return
	}
	logger.Debug("Notification sent", zap.String("to", to), zap.String("subject", subject))
}

// employeeNumbers reads the roster. A missing or failing roster yields an empty map.
func (c *Core) employeeNumbers(logger *zap.Logger) map[string]string {
	if c.Roster == nil {
		return nil
	}
	numbers, err := c.Roster.EmployeeNumbers()
	if err != nil {
		logger.Warn("Failed to read roster", zap.Error(err))
		return nil
	}
	return numbers
}
