// Package records persists the users & modules collections as whole JSON documents in a kv.Store.
// Missing or corrupt collections are replaced by their seed.
package records

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/kv"
)

const (
	UsersKey   = "edu_users"
	ModulesKey = "edu_modules"
)

type DB struct {
	mutex     sync.Mutex
	store     kv.Store
	bootstrap user.BootstrapAdmin
	validate  *validator.Validate
	logger    core.Logger
}

// Open wraps store. validate must have the user & course validators registered.
func Open(store kv.Store, bootstrap user.BootstrapAdmin, validate *validator.Validate, logger core.Logger) *DB {
	return &DB{
		store:     store,
		bootstrap: bootstrap,
		validate:  validate,
		logger:    logger,
	}
}

func (db *DB) Close() error {
	return db.store.Close()
}

// Init makes sure both collections are persisted, seeding whatever is missing or corrupt.
func (db *DB) Init(ctx context.Context) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, err := db.loadUsers(ctx); err != nil {
		return err
	}
	if _, err := db.loadModules(ctx); err != nil {
		return err
	}
	return nil
}

// Reset wipes both collections; the next load reseeds them.
func (db *DB) Reset(ctx context.Context) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.store.Delete(ctx, UsersKey, ModulesKey); err != nil {
		return errors.Wrap(err, "resetting records")
	}
	db.logger.Warn("records reset", map[string]interface{}{"keys": []string{UsersKey, ModulesKey}})
	return nil
}

func (db *DB) LoadUsers(ctx context.Context) ([]user.User, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.loadUsers(ctx)
}

func (db *DB) SaveUsers(ctx context.Context, users []user.User) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.save(ctx, UsersKey, users)
}

func (db *DB) LoadModules(ctx context.Context) ([]course.Module, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.loadModules(ctx)
}

func (db *DB) SaveModules(ctx context.Context, modules []course.Module) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.save(ctx, ModulesKey, modules)
}

func (db *DB) loadUsers(ctx context.Context) ([]user.User, error) {
	var users []user.User
	ok, err := db.load(ctx, UsersKey, &users)
	if err != nil {
		return nil, err
	}
	if ok {
		for i := range users {
			users[i].Clean()
			if err = db.validate.Struct(users[i]); err != nil {
				ok = false
				db.corrupt(UsersKey, err)
				break
			}
		}
	}
	if !ok {
		users = SeedUsers(db.bootstrap)
		if err = db.save(ctx, UsersKey, users); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (db *DB) loadModules(ctx context.Context) ([]course.Module, error) {
	var modules []course.Module
	ok, err := db.load(ctx, ModulesKey, &modules)
	if err != nil {
		return nil, err
	}
	if ok {
		for i := range modules {
			modules[i].Clean()
			if err = db.validate.Struct(modules[i]); err != nil {
				ok = false
				db.corrupt(ModulesKey, err)
				break
			}
		}
	}
	if !ok {
		modules = SeedModules()
		if err = db.save(ctx, ModulesKey, modules); err != nil {
			return nil, err
		}
	}
	return modules, nil
}

// load decodes the JSON array stored at key into dest.
// It reports false when the value is missing, unparsable or empty; only store errors are returned.
func (db *DB) load(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := db.store.Get(ctx, key)
	if err == kv.ErrNotFound {
		db.logger.Info("seeding " + key)
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "loading %s", key)
	}

	var raw []json.RawMessage
	if err = json.Unmarshal(data, &raw); err != nil {
		db.corrupt(key, err)
		return false, nil
	}
	if len(raw) == 0 {
		db.corrupt(key, errors.New("empty collection"))
		return false, nil
	}
	if err = json.Unmarshal(data, dest); err != nil {
		db.corrupt(key, err)
		return false, nil
	}
	return true, nil
}

func (db *DB) save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	if err = db.store.Set(ctx, key, data); err != nil {
		return errors.Wrapf(err, "saving %s", key)
	}
	return nil
}

func (db *DB) corrupt(key string, err error) {
	db.logger.Warn("corrupt persisted state, falling back to seed", err, map[string]interface{}{"key": key})
}
