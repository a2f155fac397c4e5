package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/RevenueCat/purchases-android-sub005/cache"

	_ "github.com/jackc/pgx/v4/stdlib"
)

// Schema is the table backing the key-value store. Callers apply it once
// per database before constructing the store.
const Schema = `
CREATE TABLE IF NOT EXISTS device_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type store struct {
	db *sqlx.DB
}

func NewInPostgres(db *sqlx.DB) cache.Store {
	return &store{
		db: db,
	}
}

func (s *store) reset() {
	if _, err := s.db.Exec(`DELETE FROM device_cache`); err != nil {
		panic(err)
	}
}

func (s *store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM device_cache WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", cache.ErrNotFound
	} else if err != nil {
		return "", errors.Wrap(err, "failed to get cache value")
	}
	return value, nil
}

func (s *store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_cache (key, value) VALUES ($1, $2)`, key, value)
	if err == nil {
		return nil
	}

	// Insert-first keeps the common (fresh key) path a single statement;
	// a duplicate key falls back to an update.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		_, err = s.db.ExecContext(ctx,
			`UPDATE device_cache SET value = $2, updated_at = now() WHERE key = $1`, key, value)
	}
	return errors.Wrap(err, "failed to set cache value")
}

func (s *store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM device_cache WHERE key = $1`, key)
	return errors.Wrap(err, "failed to delete cache value")
}

func (s *store) Close() error {
	return s.db.Close()
}
