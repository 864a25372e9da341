package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/slots"
	"github.com/jakechorley/hourbank/pkg/db"
)

// UpdateFields are the editable fields of a reservation row. Email and RequestStatus keep the
// stored value when empty; Slot is derived from Start and Hours unless it is a well-formed
// label.
type UpdateFields struct {
	Campaign      string
	Start         time.Time
	Hours         int
	Slot          string
	Email         string
	RequestStatus string
}

// UpdateResult carries the recomputed identity key of the edited row
type UpdateResult struct {
	Pool   model.PoolKind
	OldKey string
	NewKey string
	Row    db.Reservation
}

func (f UpdateFields) validate() error {
	if strings.TrimSpace(f.Campaign) == "" {
		return model.ValidationError("campaign is required")
	}
	if f.Hours < 1 {
		return model.ValidationError(fmt.Sprintf("hours must be at least 1, got %d", f.Hours))
	}
	if f.Start.IsZero() {
		return model.ValidationError("start time is required")
	}
	if f.Email != "" && !isEmail(f.Email) {
		return model.ValidationError(fmt.Sprintf("invalid requester email %q", f.Email))
	}
	return nil
}

// Update rewrites the row with key in the first pool (Work, Rest, Overtime) that holds it and
// stores it under a key recomputed from the edited fields. The pool of a row never changes.
func (c *Core) Update(ctx context.Context, key string, fields UpdateFields) (*UpdateResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, model.ValidationError("reservation key is required")
	}
	fields.Campaign = strings.TrimSpace(fields.Campaign)
	fields.Email = strings.TrimSpace(fields.Email)
	if err := fields.validate(); err != nil {
		return nil, err
	}

	logger := c.opLogger("update", zap.String("key", key))

	for _, pool := range model.Pools {
		result, err := c.updateInPool(ctx, pool, key, fields)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		logger.Info("Reservation updated",
			zap.String("pool", string(pool)),
			zap.String("new_key", result.NewKey))
		return result, nil
	}

	logger.Info("Reservation to update not found")
	return nil, model.NotFoundError(fmt.Sprintf("no reservation with key %q", key))
}

func (c *Core) updateInPool(ctx context.Context, pool model.PoolKind, key string, fields UpdateFields) (*UpdateResult, error) {
	release, err := c.lock(ctx, poolLockName(pool))
	if err != nil {
		return nil, err
	}
	defer release()

	storeCtx, cancel := c.storeCtx(ctx)
	defer cancel()
	existing, err := c.Store.FindByKey(storeCtx, pool, key)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s pool: %w", pool, err)
	}
	if existing == nil {
		return nil, nil
	}

	row := applyUpdate(*existing, pool, fields, c.loc())
	ok, err := c.Store.UpdateByKey(storeCtx, pool, key, row)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s pool: %w", pool, err)
	}
	if !ok {
		return nil, nil
	}

	return &UpdateResult{Pool: pool, OldKey: key, NewKey: row.Key, Row: row}, nil
}

// applyUpdate returns row edited with fields and its recomputed key
func applyUpdate(row db.Reservation, pool model.PoolKind, fields UpdateFields, loc *time.Location) db.Reservation {
	date := model.DateOf(fields.Start, loc)

	label, ok := slots.NormalizeLabel(fields.Slot)
	if !ok {
		label = slots.SpanLabel(fields.Start, time.Duration(fields.Hours)*time.Hour, loc)
	}

	row.Campaign = fields.Campaign
	row.Date = date.Display()
	row.Hours = fields.Hours
	row.Slot = label
	if fields.Email != "" {
		row.Email = fields.Email
	}
	if fields.RequestStatus != "" {
		row.RequestStatus = strings.TrimSpace(fields.RequestStatus)
	}
	row.Kind = string(pool)
	row.Key = model.DeriveKey(row.Campaign, date.Serial(), row.Slot, row.Email, pool)
	return row
}
