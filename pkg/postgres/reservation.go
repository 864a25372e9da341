package postgres

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
)

const reservationColumns = `campaign, date, hours, slot, key, email, kind, validation, request_status, employee_number, reservation_id`

func scanReservation(row pgx.Row) (db.Reservation, error) {
	var r db.Reservation
	err := row.Scan(&r.Campaign, &r.Date, &r.Hours, &r.Slot, &r.Key, &r.Email, &r.Kind,
		&r.Validation, &r.RequestStatus, &r.EmployeeNumber, &r.ReservationID)
	return r, err
}

// ListReservations retrieves all rows of a pool in insertion order
func (d *DB) ListReservations(ctx context.Context, pool model.PoolKind) ([]db.Reservation, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservation
		WHERE pool = $1
		ORDER BY row_id
	`, string(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s reservations: %w", pool, err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return reservations, nil
}

// InsertReservations inserts all rows of one booking in a single transaction
func (d *DB) InsertReservations(ctx context.Context, pool model.PoolKind, reservations []db.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range reservations {
		_, err := tx.Exec(ctx, `
			INSERT INTO reservation (pool, `+reservationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, string(pool), r.Campaign, r.Date, r.Hours, r.Slot, r.Key, r.Email, r.Kind,
			r.Validation, r.RequestStatus, r.EmployeeNumber, r.ReservationID)
		if err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByKey returns the oldest row of the pool with the exact key
func (d *DB) FindByKey(ctx context.Context, pool model.PoolKind, key string) (*db.Reservation, error) {
	r, err := scanReservation(d.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservation
		WHERE pool = $1 AND key = $2
		ORDER BY row_id
		LIMIT 1
	`, string(pool), key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s reservation: %w", pool, err)
	}
	return &r, nil
}

// DeleteByKey deletes the oldest row of the pool with the exact key
func (d *DB) DeleteByKey(ctx context.Context, pool model.PoolKind, key string) (*db.Reservation, error) {
	r, err := scanReservation(d.pool.QueryRow(ctx, `
		DELETE FROM reservation
		WHERE row_id = (
			SELECT row_id FROM reservation
			WHERE pool = $1 AND key = $2
			ORDER BY row_id
			LIMIT 1
		)
		RETURNING `+reservationColumns, string(pool), key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s reservation: %w", pool, err)
	}
	return &r, nil
}

// UpdateByKey overwrites the oldest row of the pool with the exact key
func (d *DB) UpdateByKey(ctx context.Context, pool model.PoolKind, key string, r db.Reservation) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE reservation
		SET campaign = $3, date = $4, hours = $5, slot = $6, key = $7, email = $8, kind = $9,
			validation = $10, request_status = $11, employee_number = $12, reservation_id = $13
		WHERE row_id = (
			SELECT row_id FROM reservation
			WHERE pool = $1 AND key = $2
			ORDER BY row_id
			LIMIT 1
		)
	`, string(pool), key, r.Campaign, r.Date, r.Hours, r.Slot, r.Key, r.Email, r.Kind,
		r.Validation, r.RequestStatus, r.EmployeeNumber, r.ReservationID)
	if err != nil {
		return false, fmt.Errorf("failed to update %s reservation: %w", pool, err)
	}
	return tag.RowsAffected() > 0, nil
}
