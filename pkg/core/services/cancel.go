package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
)

// CancelResult is the row a cancellation removed
type CancelResult struct {
	Pool model.PoolKind
	Row  db.Reservation
}

// BatchCancelResult reports each key of a batch cancellation
type BatchCancelResult struct {
	Cancelled []string
	NotFound  []string
	// Failed holds keys whose removal hit a storage error, with the error text
	Failed map[string]string
}

// Cancel removes the row whose key matches exactly, trying Work, Rest and then Overtime. The
// first pool holding the key wins. A key missing from every pool is model.ErrNotFound.
func (c *Core) Cancel(ctx context.Context, key string) (*CancelResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, model.ValidationError("reservation key is required")
	}

	logger := c.opLogger("cancel", zap.String("key", key))

	for _, pool := range model.Pools {
		row, err := c.deleteFromPool(ctx, pool, key)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}

		logger.Info("Reservation cancelled",
			zap.String("pool", string(pool)),
			zap.String("reservation_id", row.ReservationID))
		c.sendCancellation(logger, *row)
		return &CancelResult{Pool: pool, Row: *row}, nil
	}

	logger.Info("Reservation to cancel not found")
	return nil, model.NotFoundError(fmt.Sprintf("no reservation with key %q", key))
}

// CancelBatch removes every key from every pool it appears in. Missing keys and per-key
// failures are reported, never returned as an error.
func (c *Core) CancelBatch(ctx context.Context, keys []string) (*BatchCancelResult, error) {
	if len(keys) == 0 {
		return nil, model.ValidationError("no reservation keys given")
	}

	logger := c.opLogger("cancelBatch", zap.Int("keys", len(keys)))
	result := &BatchCancelResult{Failed: make(map[string]string)}

	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			result.NotFound = append(result.NotFound, key)
			continue
		}

		found := false
		var failure error
		for _, pool := range model.Pools {
			row, err := c.deleteFromPool(ctx, pool, key)
			if err != nil {
				failure = err
				continue
			}
			if row != nil {
				found = true
				c.sendCancellation(logger, *row)
			}
		}

		switch {
		case failure != nil:
			logger.Warn("Failed to cancel reservation", zap.String("key", key), zap.Error(failure))
			result.Failed[key] = model.UserMessage(failure)
		case found:
			result.Cancelled = append(result.Cancelled, key)
		default:
			result.NotFound = append(result.NotFound, key)
		}
	}

	logger.Info("Batch cancellation finished",
		zap.Int("cancelled", len(result.Cancelled)),
		zap.Int("not_found", len(result.NotFound)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (c *Core) deleteFromPool(ctx context.Context, pool model.PoolKind, key string) (*db.Reservation, error) {
	release, err := c.lock(ctx, poolLockName(pool))
	if err != nil {
		return nil, err
	}
	defer release()

	storeCtx, cancel := c.storeCtx(ctx)
	defer cancel()
	row, err := c.Store.DeleteByKey(storeCtx, pool, key)
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s pool: %w", pool, err)
	}
	return row, nil
}

func (c *Core) sendCancellation(logger *zap.Logger, row db.Reservation) {
	body, err := renderMail("cancellation", mailData{
		ReservationID: row.ReservationID,
		Campaign:      row.Campaign,
		Date:          row.Date,
		Span:          row.Slot,
		Hours:         row.Hours,
		AppURL:        c.AppURL,
	})
	if err != nil {
		logger.Warn("Failed to render cancellation mail", zap.Error(err))
		return
	}
	c.notify(logger, row.Email, cancellationSubject, body)
}
