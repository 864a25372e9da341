package db

import (
	"context"
	"fmt"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/sheetssql"
)

// ListReservations retrieves all rows of a pool in sheet order
func (db *DB) ListReservations(ctx context.Context, pool model.PoolKind) ([]Reservation, error) {
	rows, err := sheetssql.GetTableAs[Reservation](db.ssql, PoolTable(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s reservations: %w", pool, err)
	}
	return rows, nil
}

// InsertReservations writes rows into the first vacant rows of the pool sheet
func (db *DB) InsertReservations(ctx context.Context, pool model.PoolKind, rows []Reservation) error {
	if len(rows) == 0 {
		return nil
	}

	if _, err := sheetssql.WriteModelsAtFirstVacant(db.ssql, PoolTable(pool), rows); err != nil {
		return fmt.Errorf("failed to insert %s reservations: %w", pool, err)
	}
	return nil
}

// FindByKey returns the first row of the pool whose key matches exactly
func (db *DB) FindByKey(ctx context.Context, pool model.PoolKind, key string) (*Reservation, error) {
	row, err := db.findByKey(pool, key)
	if err != nil || row == nil {
		return nil, err
	}
	return &row.Value, nil
}

// DeleteByKey deletes the first row of the pool whose key matches exactly
func (db *DB) DeleteByKey(ctx context.Context, pool model.PoolKind, key string) (*Reservation, error) {
	row, err := db.findByKey(pool, key)
	if err != nil || row == nil {
		return nil, err
	}

	if err := db.ssql.DeleteRow(PoolTable(pool), row.Number); err != nil {
		return nil, fmt.Errorf("failed to delete %s reservation at row %d: %w", pool, row.Number, err)
	}
	return &row.Value, nil
}

// UpdateByKey overwrites the first row of the pool whose key matches exactly
func (db *DB) UpdateByKey(ctx context.Context, pool model.PoolKind, key string, updated Reservation) (bool, error) {
	row, err := db.findByKey(pool, key)
	if err != nil || row == nil {
		return false, err
	}

	if err := sheetssql.UpdateModelAt(db.ssql, PoolTable(pool), row.Number, updated); err != nil {
		return false, fmt.Errorf("failed to update %s reservation at row %d: %w", pool, row.Number, err)
	}
	return true, nil
}

func (db *DB) findByKey(pool model.PoolKind, key string) (*sheetssql.Row[Reservation], error) {
	if key == "" {
		return nil, nil
	}

	rows, err := sheetssql.FindRowsAs[Reservation](db.ssql, PoolTable(pool), "key", key)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s reservation: %w", pool, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
