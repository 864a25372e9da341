package model

import (
	"fmt"
	"strings"
)

// PoolKind identifies one of the reservation ledgers
type PoolKind string

const (
	PoolWork     PoolKind = "Work"
	PoolRest     PoolKind = "Rest"
	PoolOvertime PoolKind = "Overtime"
)

// Pools lists every pool in lookup order. Cancel and update walk pools in this order.
var Pools = []PoolKind{PoolWork, PoolRest, PoolOvertime}

var poolAliases = map[string]PoolKind{
	"work":     PoolWork,
	"trabajar": PoolWork,
	"rest":     PoolRest,
	"librar":   PoolRest,
	"overtime": PoolOvertime,
	"cobrar":   PoolOvertime,
}

func (p PoolKind) IsValid() bool {
	return p == PoolWork || p == PoolRest || p == PoolOvertime
}

func (p PoolKind) String() string {
	return string(p)
}

// ParsePoolKind accepts the canonical names (any case) and the legacy sheet names
func ParsePoolKind(raw string) (PoolKind, error) {
	if p, ok := poolAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return p, nil
	}
	return "", ValidationError(fmt.Sprintf("unknown pool %q (expected work, rest or overtime)", raw))
}
