package kv

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// sqlStore keeps values in the kv_records table (see storage/database/migrations).
type sqlStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sql.DB) Store {
	return &sqlStore{db: sqlx.NewDb(db, "postgres")}
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_records WHERE key = $1`, key)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", key)
	}
	return []byte(value), nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv_records (key, value, updated_at) VALUES (:key, :value, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	args := map[string]interface{}{"key": key, "value": string(value)}
	if _, err := s.db.NamedExecContext(ctx, q, args); err != nil {
		return errors.Wrapf(err, "setting %s", key)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_records WHERE key = ANY($1)`, pq.Array(keys)); err != nil {
		return errors.Wrap(err, "deleting keys")
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
