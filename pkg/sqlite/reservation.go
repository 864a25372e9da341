package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
)

const reservationColumns = `campaign, date, hours, slot, key, email, kind, validation, request_status, employee_number, reservation_id`

// firstRowByKey selects the oldest row of a pool with an exact, case-sensitive key
const firstRowByKey = `SELECT row_id FROM reservation WHERE pool = ? AND key = ? ORDER BY row_id LIMIT 1`

type scanner interface {
	Scan(dest ...any) error
}

func scanReservation(row scanner) (db.Reservation, error) {
	var r db.Reservation
	err := row.Scan(&r.Campaign, &r.Date, &r.Hours, &r.Slot, &r.Key, &r.Email, &r.Kind,
		&r.Validation, &r.RequestStatus, &r.EmployeeNumber, &r.ReservationID)
	return r, err
}

// ListReservations retrieves all rows of a pool in insertion order
func (d *DB) ListReservations(ctx context.Context, pool model.PoolKind) ([]db.Reservation, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservation WHERE pool = ? ORDER BY row_id`, string(pool))
	if err != nil {
		return nil, fmt.Errorf("querying %s reservations: %w", pool, err)
	}
	defer rows.Close()

	var out []db.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertReservations inserts all rows of one booking in a single transaction
func (d *DB) InsertReservations(ctx context.Context, pool model.PoolKind, reservations []db.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range reservations {
		_, err := tx.ExecContext(ctx, `INSERT INTO reservation (pool, `+reservationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(pool), r.Campaign, r.Date, r.Hours, r.Slot, r.Key, r.Email, r.Kind,
			r.Validation, r.RequestStatus, r.EmployeeNumber, r.ReservationID)
		if err != nil {
			return fmt.Errorf("inserting reservation: %w", err)
		}
	}

	return tx.Commit()
}

// FindByKey returns the oldest row of the pool with the exact key
func (d *DB) FindByKey(ctx context.Context, pool model.PoolKind, key string) (*db.Reservation, error) {
	r, err := scanReservation(d.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservation WHERE row_id = (`+firstRowByKey+`)`, string(pool), key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s reservation: %w", pool, err)
	}
	return &r, nil
}

// DeleteByKey deletes the oldest row of the pool with the exact key
func (d *DB) DeleteByKey(ctx context.Context, pool model.PoolKind, key string) (*db.Reservation, error) {
	r, err := scanReservation(d.db.QueryRowContext(ctx,
		`DELETE FROM reservation WHERE row_id = (`+firstRowByKey+`) RETURNING `+reservationColumns, string(pool), key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("deleting %s reservation: %w", pool, err)
	}
	return &r, nil
}

// UpdateByKey overwrites the oldest row of the pool with the exact key
func (d *DB) UpdateByKey(ctx context.Context, pool model.PoolKind, key string, r db.Reservation) (bool, error) {
	res, err := d.db.ExecContext(ctx, `UPDATE reservation
		SET campaign = ?, date = ?, hours = ?, slot = ?, key = ?, email = ?, kind = ?,
			validation = ?, request_status = ?, employee_number = ?, reservation_id = ?
		WHERE row_id = (`+firstRowByKey+`)`,
		r.Campaign, r.Date, r.Hours, r.Slot, r.Key, r.Email, r.Kind,
		r.Validation, r.RequestStatus, r.EmployeeNumber, r.ReservationID, string(pool), key)
	if err != nil {
		return false, fmt.Errorf("updating %s reservation: %w", pool, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating %s reservation: %w", pool, err)
	}
	return n > 0, nil
}
