package postgres

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// GetCounter reads a named counter
func (d *DB) GetCounter(ctx context.Context, name string) (int64, bool, error) {
	var value int64
	err := d.pool.QueryRow(ctx, `SELECT value FROM property WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get counter %s: %w", name, err)
	}
	return value, true, nil
}

// SetCounter writes a named counter
func (d *DB) SetCounter(ctx context.Context, name string, value int64) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO property (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, name, value)
	if err != nil {
		return fmt.Errorf("failed to set counter %s: %w", name, err)
	}
	return nil
}
