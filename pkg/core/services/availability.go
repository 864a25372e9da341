package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/slots"
)

// buildIndex loads the capacity of pool. With SubtractBooked the live reservations of the pool
// consume capacity of their slot.
func (c *Core) buildIndex(ctx context.Context, pool model.PoolKind) (*slots.Index, error) {
	rows, err := c.Capacity.CapacityRows(pool)
	if err != nil {
		return nil, fmt.Errorf("failed to read capacity: %w", err)
	}

	var booked slots.Booked
	if c.SubtractBooked {
		reservations, err := c.Store.ListReservations(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s reservations: %w", pool, err)
		}
		booked = make(slots.Booked)
		for _, r := range reservations {
			if r.State() == model.StateCancelled {
				continue
			}
			date, err := r.ParsedDate()
			if err != nil {
				continue
			}
			booked.Add(r.Campaign, date, r.Slot)
		}
	}

	return slots.NewIndex(rows, booked, c.loc()), nil
}

// ListFreeSlots returns the free slots of pool starting in [from, to). An empty campaign lists
// every campaign.
func (c *Core) ListFreeSlots(ctx context.Context, pool model.PoolKind, campaign string, from, to time.Time) ([]slots.FreeSlot, error) {
	if !pool.IsValid() {
		return nil, model.ValidationError(fmt.Sprintf("unknown pool %q", pool))
	}
	if !from.Before(to) {
		return nil, model.ValidationError("range start must be before range end")
	}

	logger := c.opLogger("listFreeSlots",
		zap.String("pool", string(pool)),
		zap.String("campaign", campaign),
		zap.Time("from", from),
		zap.Time("to", to))

	ix, err := c.buildIndex(ctx, pool)
	if err != nil {
		return nil, err
	}

	free := ix.FreeSlots(campaign, from, to)
	logger.Debug("Listed free slots", zap.Int("count", len(free)))
	return free, nil
}

// Campaigns returns the sorted campaigns listed in the capacity table of pool
func (c *Core) Campaigns(ctx context.Context, pool model.PoolKind) ([]string, error) {
	if !pool.IsValid() {
		return nil, model.ValidationError(fmt.Sprintf("unknown pool %q", pool))
	}

	rows, err := c.Capacity.CapacityRows(pool)
	if err != nil {
		return nil, fmt.Errorf("failed to read capacity: %w", err)
	}

	campaigns := slots.NewIndex(rows, nil, c.loc()).Campaigns()
	sort.Slice(campaigns, func(i, j int) bool {
		return strings.ToLower(campaigns[i]) < strings.ToLower(campaigns[j])
	})
	return campaigns, nil
}
