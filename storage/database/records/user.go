package records

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	return repo.db.LoadUsers(ctx)
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	users, err := repo.db.LoadUsers(ctx)
	if err != nil {
		return user.User{}, err
	}
	for _, usr := range users {
		if usr.ID == id {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	users, err := repo.db.LoadUsers(ctx)
	if err != nil {
		return user.User{}, err
	}
	email = core.CleanString(email, true /* lower */)
	for _, usr := range users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	users, err := repo.db.loadUsers(ctx)
	if err != nil {
		return user.User{}, err
	}

	usr.Clean()
	maxID, idTaken := 0, false
	for _, u := range users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
		if u.ID == usr.ID {
			idTaken = true
		}
		if u.ID > maxID {
			maxID = u.ID
		}
	}
	if usr.ID <= 0 || idTaken {
		usr.ID = maxID + 1
	}

	if err = repo.db.save(ctx, UsersKey, append(users, usr)); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, id int, fn func(usr *user.User) bool) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	users, err := repo.db.loadUsers(ctx)
	if err != nil {
		return user.User{}, err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		if fn(&users[i]) {
			if err = repo.db.save(ctx, UsersKey, users); err != nil {
				return user.User{}, err
			}
		}
		return users[i], nil
	}
	return user.User{}, user.ErrNotFound
}
