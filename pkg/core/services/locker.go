package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/idissuer"
	"github.com/jakechorley/hourbank/pkg/core/model"
)

// LockerStateCounter holds the pool row count seen by the last locker export
const LockerStateCounter = "locker_rows"

// LockerHeader is the header row of the locker export
var LockerHeader = []string{
	"Campaign", "Date", "Hours", "Slot", "Key", "Email", "Kind",
	"Validation", "Request status", "Employee number", "Reservation ID",
}

// LockerExportResult reports what an export did
type LockerExportResult struct {
	Skipped bool
	Rows    int
}

// ExportLocker writes every pool into the locker sheet, joined with employee numbers and
// without excluded campaigns. Unless force is set it does nothing when the total number of pool
// rows has not changed since the last export.
func (c *Core) ExportLocker(ctx context.Context, force bool) (*LockerExportResult, error) {
	if c.Locker == nil {
		return nil, model.ValidationError("locker export is not configured")
	}

	logger := c.opLogger("exportLocker", zap.Bool("force", force))

	var rows [][]string
	total := 0
	numbers := c.employeeNumbers(logger)
	for _, pool := range model.Pools {
		reservations, err := c.Store.ListReservations(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s reservations: %w", pool, err)
		}
		total += len(reservations)

		for _, r := range reservations {
			if c.LockerExcluded != nil && c.LockerExcluded(r.Campaign) {
				continue
			}
			if r.EmployeeNumber == "" {
				r.EmployeeNumber = numbers[strings.ToLower(strings.TrimSpace(r.Email))]
			}
			rows = append(rows, r.Values())
		}
	}

	last, ok, err := c.Store.GetCounter(ctx, LockerStateCounter)
	if err != nil {
		return nil, fmt.Errorf("failed to read locker state: %w", err)
	}
	if !force && ok && last == int64(total) {
		logger.Debug("Pools unchanged since last locker export", zap.Int("pool_rows", total))
		return &LockerExportResult{Skipped: true}, nil
	}

	if err := c.Locker.WriteLocker(LockerHeader, rows); err != nil {
		return nil, fmt.Errorf("failed to write locker export: %w", err)
	}
	if err := c.saveLockerState(ctx, int64(total)); err != nil {
		return nil, err
	}

	logger.Info("Locker export written", zap.Int("rows", len(rows)), zap.Int("pool_rows", total))
	return &LockerExportResult{Rows: len(rows)}, nil
}

// saveLockerState writes the counter under the id lock. Counters share the property table and a
// first write appends a row, so it must not interleave with the issuer's.
func (c *Core) saveLockerState(ctx context.Context, total int64) error {
	release, err := c.lock(ctx, idissuer.LockName)
	if err != nil {
		return err
	}
	defer release()

	storeCtx, cancel := c.storeCtx(ctx)
	defer cancel()
	if err := c.Store.SetCounter(storeCtx, LockerStateCounter, total); err != nil {
		return fmt.Errorf("failed to store locker state: %w", err)
	}
	return nil
}

// RunLockerSchedule exports the locker at every occurrence of rule until ctx is done or the
// rule has no further occurrences. Failed runs are logged and the schedule continues.
func (c *Core) RunLockerSchedule(ctx context.Context, rule *rrule.RRule) error {
	logger := c.logger().With(zap.String("rrule", rule.String()))

	for {
		next, ok := nextRun(rule, time.Now())
		if !ok {
			logger.Info("Locker schedule has no further occurrences")
			return nil
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := c.ExportLocker(ctx, false); err != nil {
			logger.Error("Scheduled locker export failed", zap.Error(err))
		}
	}
}

// nextRun returns the first occurrence of rule strictly after now
func nextRun(rule *rrule.RRule, now time.Time) (time.Time, bool) {
	next := rule.After(now, false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}
