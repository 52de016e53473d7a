package kv

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/storage/database"
)

// ErrNotFound is returned by Get when a key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a string-keyed blob store holding whole persisted collections.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open returns the backend selected by conf.Store.Engine.
func Open(conf *core.Config) (Store, error) {
	switch conf.Store.Engine {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(conf.Store.Dir)
	case "redis":
		return NewRedisStore(conf.Store.RedisURL, conf.Store.Prefix)
	case "postgres":
		db, err := database.Open(conf)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "opening database")
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewSQLStore(db), nil
	}
	return nil, pkgerrors.Errorf("unknown store engine %q", conf.Store.Engine)
}
