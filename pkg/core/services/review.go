package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
)

// ReviewResult is the reviewed row and its new state
type ReviewResult struct {
	Pool  model.PoolKind
	State model.ValidationState
	Row   db.Reservation
}

// Review sets the validation column of the row with key. OK approves, KO cancels and notifies
// the requester, any other text leaves the row pending.
func (c *Core) Review(ctx context.Context, key, validation string) (*ReviewResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, model.ValidationError("reservation key is required")
	}
	validation = strings.TrimSpace(validation)

	logger := c.opLogger("review", zap.String("key", key), zap.String("validation", validation))

	for _, pool := range model.Pools {
		row, err := c.reviewInPool(ctx, pool, key, validation)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}

		state := row.State()
		logger.Info("Reservation reviewed", zap.String("pool", string(pool)), zap.String("state", string(state)))
		if state == model.StateCancelled {
			c.sendRejection(logger, pool, *row)
		}
		return &ReviewResult{Pool: pool, State: state, Row: *row}, nil
	}

	return nil, model.NotFoundError(fmt.Sprintf("no reservation with key %q", key))
}

func (c *Core) reviewInPool(ctx context.Context, pool model.PoolKind, key, validation string) (*db.Reservation, error) {
	release, err := c.lock(ctx, poolLockName(pool))
	if err != nil {
		return nil, err
	}
	defer release()

	storeCtx, cancel := c.storeCtx(ctx)
	defer cancel()
	row, err := c.Store.FindByKey(storeCtx, pool, key)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s pool: %w", pool, err)
	}
	if row == nil {
		return nil, nil
	}

	row.Validation = validation
	ok, err := c.Store.UpdateByKey(storeCtx, pool, key, *row)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s pool: %w", pool, err)
	}
	if !ok {
		return nil, nil
	}
	return row, nil
}

func (c *Core) sendRejection(logger *zap.Logger, pool model.PoolKind, row db.Reservation) {
	body, err := renderMail("rejection", mailData{
		Campaign: row.Campaign,
		Date:     row.Date,
		Span:     row.Slot,
		Hours:    row.Hours,
		AppURL:   c.AppURL,
	})
	if err != nil {
		logger.Warn("Failed to render rejection mail", zap.Error(err))
		return
	}
	c.notify(logger, row.Email, fmt.Sprintf(rejectionSubject, pool), body)
}
