package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// lockConns sizes the pool that holds advisory locks. Each held lock pins one session.
const lockConns = 16

// migrationLock serialises schema changes between processes starting against one database
const migrationLock = "hourbank:migrations"

// DB is the Postgres backend of the pools, the counters and the named locks. Locks run on their
// own pool, so a lock holder never competes with other holders for the connection its queries
// need.
type DB struct {
	pool     *pgxpool.Pool
	lockPool *pgxpool.Pool
}

// NewDB opens the query pool and the lock pool against dsn and checks the server answers
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid postgres dsn")
	}
	lockCfg := cfg.Copy()
	lockCfg.MaxConns = lockConns
	lockCfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres pool")
	}
	lockPool, err := pgxpool.NewWithConfig(ctx, lockCfg)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to open postgres lock pool")
	}

	d := &DB{pool: pool, lockPool: lockPool}
	if err := pool.Ping(ctx); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "postgres did not answer")
	}
	return d, nil
}

// Close releases both pools. Locks still held are dropped with their sessions.
func (d *DB) Close() {
	d.lockPool.Close()
	d.pool.Close()
}

type migration struct {
	name string
	sql  string
}

// loadMigrations returns the embedded scripts ordered by file name
func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list embedded migrations")
	}

	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read migration %s", e.Name())
		}
		out = append(out, migration{name: e.Name(), sql: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// RunMigrations brings the schema up to date. The whole run holds an advisory lock, so
// processes started together apply each script once; the others wait and find nothing left.
func (d *DB) RunMigrations(ctx context.Context) error {
	scripts, err := loadMigrations()
	if err != nil {
		return err
	}

	release, err := d.Acquire(ctx, migrationLock)
	if err != nil {
		return errors.Wrap(err, "failed to take migration lock")
	}
	defer release()

	if _, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return errors.Wrap(err, "failed to prepare schema_migrations")
	}

	applied, err := d.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range scripts {
		if applied[m.name] {
			continue
		}
		if err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, m.name)
			return err
		}); err != nil {
			return errors.Wrapf(err, "migration %s failed", m.name)
		}
	}
	return nil
}

func (d *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := d.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schema_migrations")
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schema_migrations")
	}

	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}
