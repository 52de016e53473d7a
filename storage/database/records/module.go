package records

import (
	"context"

	"github.com/trezcool/elimu/core/course"
)

type moduleRepository struct {
	db *DB
}

func NewModuleRepository(db *DB) course.Repository {
	return &moduleRepository{db: db}
}

func (repo *moduleRepository) QueryAllModules(ctx context.Context) ([]course.Module, error) {
	return repo.db.LoadModules(ctx)
}

func (repo *moduleRepository) GetModuleByID(ctx context.Context, id int) (course.Module, error) {
	modules, err := repo.db.LoadModules(ctx)
	if err != nil {
		return course.Module{}, err
	}
	for _, mod := range modules {
		if mod.ID == id {
			return mod, nil
		}
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *moduleRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	modules, err := repo.db.loadModules(ctx)
	if err != nil {
		return course.Module{}, err
	}
	maxID := 0
	for _, m := range modules {
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	mod.ID = maxID + 1
	mod.Clean()

	if err = repo.db.save(ctx, ModulesKey, append(modules, mod)); err != nil {
		return course.Module{}, err
	}
	return mod, nil
}

func (repo *moduleRepository) UpdateModule(ctx context.Context, id int, fn course.Mutation) (course.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	modules, err := repo.db.loadModules(ctx)
	if err != nil {
		return course.Module{}, err
	}
	for i := range modules {
		if modules[i].ID != id {
			continue
		}
		if err = fn(&modules[i], course.NewSequence(modules)); err != nil {
			return course.Module{}, err
		}
		if err = repo.db.save(ctx, ModulesKey, modules); err != nil {
			return course.Module{}, err
		}
		return modules[i], nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *moduleRepository) DeleteModule(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	modules, err := repo.db.loadModules(ctx)
	if err != nil {
		return err
	}
	for i := range modules {
		if modules[i].ID == id {
			return repo.db.save(ctx, ModulesKey, append(modules[:i], modules[i+1:]...))
		}
	}
	return course.ErrModuleNotFound
}
