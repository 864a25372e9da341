package services

import (
	"fmt"
	"strings"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

// CanUseOvertimePool reports whether campaign is on the overtime allow-list (trimmed,
// case-insensitive)
func (c *Core) CanUseOvertimePool(campaign string) (bool, error) {
	allowed, err := c.AllowList.OvertimeCampaigns()
	if err != nil {
		return false, fmt.Errorf("failed to read overtime allow-list: %w", err)
	}
	_, ok := allowed[strings.ToLower(strings.TrimSpace(campaign))]
	return ok, nil
}

// checkEligibility gates a pool for campaign. Work and Rest are always open.
func (c *Core) checkEligibility(pool model.PoolKind, campaign string) error {
	if pool != model.PoolOvertime {
		return nil
	}
	ok, err := c.CanUseOvertimePool(campaign)
	if err != nil {
		return err
	}
	if !ok {
		return model.PolicyError(fmt.Sprintf("campaign %q is not allowed to book overtime hours", campaign))
	}
	return nil
}
