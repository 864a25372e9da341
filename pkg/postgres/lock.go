package postgres

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// Acquire takes a session-level advisory lock so processes sharing the database also share the
// critical section. The lock pins a connection of the lock pool until released. The wait is
// bounded by ctx.
func (d *DB) Acquire(ctx context.Context, name string) (func(), error) {
	conn, err := d.lockPool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(err, "failed to acquire connection for lock %s", name)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, name); err != nil {
		// a cancelled wait can leave the connection in an unknown state
		conn.Conn().Close(context.Background())
		conn.Release()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(err, "failed to take lock %s", name)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, name); err != nil {
				// closing the session drops the lock
				conn.Conn().Close(context.Background())
			}
			conn.Release()
		})
	}, nil
}
