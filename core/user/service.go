package user

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// CreateUser keeps usr.ID when it is set & free, otherwise assigns the next one.
		// Returns ErrEmailExists if the (lowered) email is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		// UpdateUser atomically applies fn to the stored user; it is only persisted if fn reports a change.
		UpdateUser(ctx context.Context, id int, fn func(usr *User) bool) (User, error)
	}

	// BootstrapAdmin is the distinguished admin identity.
	BootstrapAdmin struct {
		Name     string
		Email    string
		Password string
	}

	Service struct {
		repo      Repository
		bootstrap BootstrapAdmin
		validate  *validator.Validate
		logger    core.Logger
	}
)

func NewService(repo Repository, bootstrap BootstrapAdmin, validate *validator.Validate, logger core.Logger) *Service {
	bootstrap.Email = core.CleanString(bootstrap.Email, true /* lower */)
	return &Service{
		repo:      repo,
		bootstrap: bootstrap,
		validate:  validate,
		logger:    logger,
	}
}

// Register creates a new student account.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, User{
		Name:            nu.Name,
		Email:           nu.Email,
		Password:        nu.Password,
		Role:            RoleStudent,
		Progress:        make(map[int]bool),
		UnlockedModules: []int{},
	})
	if err != nil {
		if err == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return User{}, pkgerrors.Wrap(err, "creating user")
	}
	svc.logger.Info("user registered", map[string]interface{}{"id": usr.ID}, usr)
	return usr, nil
}

// Authenticate finds the user matching the given credentials.
// Emails are compared case-insensitively, passwords exactly.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	pwd = core.CleanString(pwd)

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err == nil && email != "" && usr.Password == pwd {
		return usr, nil
	}
	if err != nil && err != ErrNotFound {
		return User{}, pkgerrors.Wrap(err, "finding user by email")
	}

	// there must always be an admin to log in with
	hasAdmin, err := svc.hasAdmin(ctx)
	if err != nil {
		return User{}, err
	}
	if !hasAdmin {
		svc.logger.Warn("no admin found, restoring bootstrap admin")
		if _, err := svc.EnsureBootstrapAdmin(ctx); err != nil {
			return User{}, err
		}
	}
	return User{}, ErrInvalidCredentials
}

func (svc *Service) hasAdmin(ctx context.Context) (bool, error) {
	users, err := svc.repo.QueryAllUsers(ctx)
	if err != nil {
		return false, pkgerrors.Wrap(err, "querying users")
	}
	for _, usr := range users {
		if usr.IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

// EnsureBootstrapAdmin adds the bootstrap admin if missing, or forces its password & role back if they drifted.
func (svc *Service) EnsureBootstrapAdmin(ctx context.Context) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, svc.bootstrap.Email)
	switch {
	case err == ErrNotFound:
		usr, err = svc.repo.CreateUser(ctx, User{
			ID:              1,
			Name:            svc.bootstrap.Name,
			Email:           svc.bootstrap.Email,
			Password:        svc.bootstrap.Password,
			Role:            RoleAdmin,
			Progress:        make(map[int]bool),
			UnlockedModules: []int{},
		})
		if err != nil {
			return User{}, pkgerrors.Wrap(err, "creating bootstrap admin")
		}
		svc.logger.Info("bootstrap admin created", usr)
		return usr, nil
	case err != nil:
		return User{}, pkgerrors.Wrap(err, "finding bootstrap admin")
	}

	return svc.repo.UpdateUser(ctx, usr.ID, func(u *User) bool {
		changed := false
		if u.Password != svc.bootstrap.Password {
			u.Password = svc.bootstrap.Password
			changed = true
		}
		if u.Role != RoleAdmin {
			u.Role = RoleAdmin
			changed = true
		}
		if changed {
			svc.logger.Warn("bootstrap admin credentials corrected", *u)
		}
		return changed
	})
}

// AddUser updates or creates a user by email.
func (svc *Service) AddUser(ctx context.Context, name, email, pwd string, isAdmin bool) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.validate.Var(email, "required,email"); err != nil {
		return User{}, core.NewValidationError(errors.New("invalid email"), core.FieldError{Field: "email", Error: "invalid email"})
	}
	role := RoleStudent
	if isAdmin {
		role = RoleAdmin
	}

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err == ErrNotFound {
		return svc.repo.CreateUser(ctx, User{
			Name:            core.CleanString(name),
			Email:           email,
			Password:        pwd,
			Role:            role,
			Progress:        make(map[int]bool),
			UnlockedModules: []int{},
		})
	} else if err != nil {
		return User{}, pkgerrors.Wrap(err, "finding user by email")
	}

	return svc.repo.UpdateUser(ctx, usr.ID, func(u *User) bool {
		if n := core.CleanString(name); n != "" {
			u.Name = n
		}
		u.Password = pwd
		if isAdmin {
			u.Role = RoleAdmin
		}
		return true
	})
}

func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	return svc.repo.UpdateUser(ctx, usr.ID, func(u *User) bool {
		u.Password = pwd
		return true
	})
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// UnlockModule adds moduleID to the user's unlocked modules. Idempotent.
func (svc *Service) UnlockModule(ctx context.Context, userID, moduleID int) (User, error) {
	return svc.repo.UpdateUser(ctx, userID, func(u *User) bool {
		return u.unlock(moduleID)
	})
}

// MarkPassed records lectureID's quiz as passed by the user. Idempotent.
func (svc *Service) MarkPassed(ctx context.Context, userID, lectureID int) (User, error) {
	return svc.repo.UpdateUser(ctx, userID, func(u *User) bool {
		return u.pass(lectureID)
	})
}
