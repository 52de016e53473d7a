package user_test

import (
	"context"
	"testing"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/records"
	"github.com/trezcool/elimu/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	repo := records.NewUserRepository(testutil.OpenDB(t))
	svc := user.NewService(repo, testutil.Bootstrap, testutil.NewValidator(), logsvc.NewNopLogger())
	return svc, repo
}

func TestService_Register(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		nu        user.NewUser
		wantEmail string
		wantValid bool // expect a validation error
	}{
		{name: "ok", nu: user.NewUser{Name: " Jane ", Email: " Jane@Test.CD ", Password: "pwd"}, wantEmail: "jane@test.cd"},
		{name: "duplicate email", nu: user.NewUser{Name: "J", Email: "JANE@test.cd", Password: "pwd"}, wantValid: true},
		{name: "bootstrap email", nu: user.NewUser{Name: "J", Email: "admin@elite.com", Password: "pwd"}, wantValid: true},
		{name: "blank name", nu: user.NewUser{Name: "  ", Email: "x@test.cd", Password: "pwd"}, wantValid: true},
		{name: "bad email", nu: user.NewUser{Name: "X", Email: "nope", Password: "pwd"}, wantValid: true},
		{name: "no password", nu: user.NewUser{Name: "X", Email: "x@test.cd"}, wantValid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Register(ctx, tt.nu)
			if tt.wantValid {
				if err == nil {
					t.Fatalf("Register() expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if usr.Email != tt.wantEmail || usr.Role != user.RoleStudent || usr.Name != "Jane" {
				t.Errorf("Register() = %+v", usr)
			}
			if usr.Progress == nil || usr.UnlockedModules == nil {
				t.Errorf("Register() left nil collections: %+v", usr)
			}
		})
	}

	_, err := svc.Register(ctx, user.NewUser{Name: "J", Email: "jane@test.cd", Password: "pwd"})
	if !core.IsValidationError(err) {
		t.Errorf("duplicate Register() error = %v, want a validation error", err)
	}
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, user.NewUser{Name: "Jane", Email: "jane@test.cd", Password: "Secret"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "ok", email: "jane@test.cd", pwd: "Secret"},
		{name: "email case-insensitive", email: " JANE@Test.cd", pwd: "Secret"},
		{name: "password case-sensitive", email: "jane@test.cd", pwd: "secret", wantErr: user.ErrInvalidCredentials},
		{name: "unknown", email: "who@test.cd", pwd: "Secret", wantErr: user.ErrInvalidCredentials},
		{name: "empty", wantErr: user.ErrInvalidCredentials},
		{name: "bootstrap admin", email: "admin@elite.com", pwd: "admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Authenticate(ctx, tt.email, tt.pwd); err != tt.wantErr {
				t.Errorf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Authenticate_restoresAdmin(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	// demote the only admin
	if _, err := repo.UpdateUser(ctx, 1, func(u *user.User) bool {
		u.Role = user.RoleStudent
		u.Password = "changed"
		return true
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Authenticate(ctx, "admin@elite.com", "admin"); err != user.ErrInvalidCredentials {
		t.Fatalf("Authenticate() error = %v, want %v", err, user.ErrInvalidCredentials)
	}
	usr, err := svc.Authenticate(ctx, "admin@elite.com", "admin")
	if err != nil {
		t.Fatalf("Authenticate() after restore error = %v", err)
	}
	if !usr.IsAdmin() {
		t.Errorf("restored admin role = %s", usr.Role)
	}
}

func TestService_EnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(t *testing.T, repo user.Repository)
		wantID int
	}{
		{name: "untouched", wantID: 1},
		{
			name: "drifted",
			mutate: func(t *testing.T, repo user.Repository) {
				_, _ = repo.UpdateUser(ctx, 1, func(u *user.User) bool {
					u.Password, u.Role = "pwned", user.RoleStudent
					return true
				})
			},
			wantID: 1,
		},
		{
			name: "email changed, id 1 taken",
			mutate: func(t *testing.T, repo user.Repository) {
				_, _ = repo.UpdateUser(ctx, 1, func(u *user.User) bool { u.Email = "old@elite.com"; return true })
			},
			wantID: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := setup(t)
			if tt.mutate != nil {
				tt.mutate(t, repo)
			}
			usr, err := svc.EnsureBootstrapAdmin(ctx)
			if err != nil {
				t.Fatalf("EnsureBootstrapAdmin() error = %v", err)
			}
			if usr.ID != tt.wantID || usr.Password != "admin" || !usr.IsAdmin() || usr.Email != "admin@elite.com" {
				t.Errorf("EnsureBootstrapAdmin() = %+v", usr)
			}
		})
	}
}

func TestService_AddUserAndResetPassword(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.AddUser(ctx, "Teacher", "Teach@test.cd", "pwd", true)
	if err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if !usr.IsAdmin() || usr.Email != "teach@test.cd" {
		t.Errorf("AddUser() = %+v", usr)
	}

	// updates by email
	again, err := svc.AddUser(ctx, "", "teach@test.cd", "new", false)
	if err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if again.ID != usr.ID || again.Name != "Teacher" || again.Password != "new" || !again.IsAdmin() {
		t.Errorf("AddUser() update = %+v", again)
	}

	if _, err = svc.AddUser(ctx, "X", "nope", "pwd", false); !core.IsValidationError(err) {
		t.Errorf("AddUser() bad email error = %v", err)
	}

	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{name: "ok", email: "TEACH@test.cd"},
		{name: "unknown", email: "who@test.cd", wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ResetPassword(ctx, tt.email, "reset"); err != tt.wantErr {
				t.Errorf("ResetPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if _, err = svc.Authenticate(ctx, "teach@test.cd", "reset"); err != nil {
		t.Errorf("Authenticate() after reset error = %v", err)
	}
}

func TestService_UnlockModuleAndMarkPassed(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, repo, "S", "s@test.cd", "pwd", user.RoleStudent)

	for i := 0; i < 2; i++ { // idempotent
		if _, err := svc.UnlockModule(ctx, student.ID, 3); err != nil {
			t.Fatalf("UnlockModule() error = %v", err)
		}
		if _, err := svc.MarkPassed(ctx, student.ID, 301); err != nil {
			t.Fatalf("MarkPassed() error = %v", err)
		}
	}

	usr, err := svc.GetByID(ctx, student.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(usr.UnlockedModules) != 1 || !usr.HasUnlocked(3) {
		t.Errorf("UnlockedModules = %v, want [3]", usr.UnlockedModules)
	}
	if len(usr.Progress) != 1 || !usr.HasPassed(301) {
		t.Errorf("Progress = %v, want {301: true}", usr.Progress)
	}

	if _, err = svc.UnlockModule(ctx, 99, 3); err != user.ErrNotFound {
		t.Errorf("UnlockModule(unknown) error = %v, want %v", err, user.ErrNotFound)
	}
}
