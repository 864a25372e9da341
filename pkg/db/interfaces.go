package db

import (
	"context"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

// PoolStore persists the rows of the three reservation pools
type PoolStore interface {
	ListReservations(ctx context.Context, pool model.PoolKind) ([]Reservation, error)
	// InsertReservations writes the rows at the first vacant position of the pool
	InsertReservations(ctx context.Context, pool model.PoolKind, rows []Reservation) error
	// FindByKey returns the first row whose key matches exactly, or nil
	FindByKey(ctx context.Context, pool model.PoolKind, key string) (*Reservation, error)
	// DeleteByKey removes the first row whose key matches exactly and returns it, or nil
	DeleteByKey(ctx context.Context, pool model.PoolKind, key string) (*Reservation, error)
	// UpdateByKey overwrites the first row whose key matches exactly
	UpdateByKey(ctx context.Context, pool model.PoolKind, key string, row Reservation) (bool, error)
}

// CounterStore persists named integer counters
type CounterStore interface {
	// GetCounter returns ok=false when the counter is absent or unreadable
	GetCounter(ctx context.Context, name string) (value int64, ok bool, err error)
	SetCounter(ctx context.Context, name string, value int64) error
}

// Database defines the interface for all database operations.
// The SheetsSQL-backed db.DB, postgres.DB and sqlite.DB implement this interface.
type Database interface {
	PoolStore
	CounterStore
}
