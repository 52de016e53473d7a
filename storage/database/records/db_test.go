package records_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/records"
	"github.com/trezcool/elimu/storage/kv"
	"github.com/trezcool/elimu/tests"
)

func openDB(store kv.Store) *records.DB {
	return records.Open(store, testutil.Bootstrap, testutil.NewValidator(), logsvc.NewNopLogger())
}

func TestDB_loadFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	seedUsers := records.SeedUsers(testutil.Bootstrap)
	seedModules := records.SeedModules()

	tests := []struct {
		name    string
		users   string // "" leaves the key unset
		modules string
	}{
		{name: "missing"},
		{name: "unparsable", users: `[{"id":1,`, modules: `not json`},
		{name: "not an array", users: `{"id":1}`, modules: `42`},
		{name: "empty arrays", users: `[]`, modules: `[]`},
		{name: "null", users: `null`, modules: `null`},
		{
			name:    "schema invalid",
			users:   `[{"id":1,"email":"a@b.c","password":"x","role":"lol"}]`,
			modules: `[{"id":1,"title":"M","lectures":[{"id":2,"title":"L","videos":[]}]}]`,
		},
		{
			name:    "bad answer key",
			users:   `[{"id":0,"email":"a@b.c","role":"student"}]`,
			modules: `[{"id":1,"title":"M","lectures":[{"id":2,"title":"L","videos":[{"id":3,"url":"u"}],"quiz":{"passScore":50,"questions":[{"q":"?","a":["x"],"correct":3}]}}]}]`,
		},
		{
			name:    "bad codes",
			users:   `[{"id":1,"email":"","role":"admin"}]`,
			modules: `[{"id":1,"title":"M","lectures":[],"bulkCodes":[{"code":"short","used":false}]}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := kv.NewMemoryStore()
			if tt.users != "" {
				_ = store.Set(ctx, records.UsersKey, []byte(tt.users))
				_ = store.Set(ctx, records.ModulesKey, []byte(tt.modules))
			}
			db := openDB(store)

			users, err := db.LoadUsers(ctx)
			if err != nil {
				t.Fatalf("LoadUsers() error = %v", err)
			}
			if !reflect.DeepEqual(users, seedUsers) {
				t.Errorf("LoadUsers() = %+v, want %+v", users, seedUsers)
			}
			modules, err := db.LoadModules(ctx)
			if err != nil {
				t.Fatalf("LoadModules() error = %v", err)
			}
			if !reflect.DeepEqual(modules, seedModules) {
				t.Errorf("LoadModules() = %+v, want %+v", modules, seedModules)
			}

			// the seed is persisted
			for _, key := range []string{records.UsersKey, records.ModulesKey} {
				if _, err := store.Get(ctx, key); err != nil {
					t.Errorf("store.Get(%s) error = %v", key, err)
				}
			}
		})
	}
}

func TestDB_loadMigratesRecords(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	_ = store.Set(ctx, records.UsersKey, []byte(`[
		{"id":1,"name":" Owner ","email":" ADMIN@Elite.com ","password":"admin","role":"Admin"},
		{"id":2,"name":"S","email":"s@test.cd","password":"pwd","role":"student","progress":{"101":true},"unlockedModules":[1]}
	]`))
	_ = store.Set(ctx, records.ModulesKey, []byte(`[
		{"id":1,"title":"M","lectures":[{"id":101,"title":"L","videos":[{"id":1,"url":"u"}]}]}
	]`))
	db := openDB(store)

	users, err := db.LoadUsers(ctx)
	if err != nil {
		t.Fatalf("LoadUsers() error = %v", err)
	}
	want := []user.User{
		{ID: 1, Name: "Owner", Email: "admin@elite.com", Password: "admin", Role: user.RoleAdmin, Progress: map[int]bool{}, UnlockedModules: []int{}},
		{ID: 2, Name: "S", Email: "s@test.cd", Password: "pwd", Role: user.RoleStudent, Progress: map[int]bool{101: true}, UnlockedModules: []int{1}},
	}
	if !reflect.DeepEqual(users, want) {
		t.Errorf("LoadUsers() = %+v, want %+v", users, want)
	}

	modules, err := db.LoadModules(ctx)
	if err != nil {
		t.Fatalf("LoadModules() error = %v", err)
	}
	mod := modules[0]
	if mod.BulkCodes == nil || len(mod.BulkCodes) != 0 {
		t.Errorf("BulkCodes = %#v, want empty", mod.BulkCodes)
	}
	if mod.Lectures[0].StudentCodes == nil {
		t.Errorf("StudentCodes = nil, want empty map")
	}
	if mod.Lectures[0].Quiz != nil {
		t.Errorf("Quiz = %+v, want nil", mod.Lectures[0].Quiz)
	}
}

func TestDB_InitAndReset(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	db := openDB(store)

	if err := db.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	for _, key := range []string{records.UsersKey, records.ModulesKey} {
		if _, err := store.Get(ctx, key); err != nil {
			t.Errorf("store.Get(%s) after Init error = %v", key, err)
		}
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	for _, key := range []string{records.UsersKey, records.ModulesKey} {
		if _, err := store.Get(ctx, key); err != kv.ErrNotFound {
			t.Errorf("store.Get(%s) after Reset error = %v, want %v", key, err, kv.ErrNotFound)
		}
	}
	if modules, _ := db.LoadModules(ctx); len(modules) != 1 || modules[0].ID != 1 {
		t.Errorf("LoadModules() after Reset = %+v, want seed", modules)
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := records.NewUserRepository(db)

	tests := []struct {
		name    string
		usr     user.User
		wantID  int
		wantErr error
	}{
		{name: "next id", usr: user.User{Email: "a@test.cd", Role: user.RoleStudent}, wantID: 2},
		{name: "keeps free id", usr: user.User{ID: 10, Email: "b@test.cd", Role: user.RoleStudent}, wantID: 10},
		{name: "taken id", usr: user.User{ID: 1, Email: "c@test.cd", Role: user.RoleStudent}, wantID: 11},
		{name: "duplicate email", usr: user.User{Email: " A@Test.cd", Role: user.RoleStudent}, wantErr: user.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := repo.CreateUser(ctx, tt.usr)
			if err != tt.wantErr {
				t.Fatalf("CreateUser() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && usr.ID != tt.wantID {
				t.Errorf("CreateUser() id = %d, want %d", usr.ID, tt.wantID)
			}
		})
	}

	usr, err := repo.GetUserByEmail(ctx, "B@TEST.CD")
	if err != nil || usr.ID != 10 {
		t.Fatalf("GetUserByEmail() = %+v, %v", usr, err)
	}

	// unchanged updates are not persisted
	calls := 0
	if _, err = repo.UpdateUser(ctx, 10, func(u *user.User) bool { calls++; return false }); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if _, err = repo.UpdateUser(ctx, 99, func(u *user.User) bool { calls++; return true }); err != user.ErrNotFound {
		t.Errorf("UpdateUser(99) error = %v, want %v", err, user.ErrNotFound)
	}
	if calls != 1 {
		t.Errorf("update fn called %d times, want 1", calls)
	}

	if _, err = repo.UpdateUser(ctx, 10, func(u *user.User) bool { u.Name = "B"; return true }); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if usr, _ = repo.GetUserByID(ctx, 10); usr.Name != "B" {
		t.Errorf("GetUserByID().Name = %q, want %q", usr.Name, "B")
	}
}

func TestModuleRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := records.NewModuleRepository(db)

	mod, err := repo.CreateModule(ctx, course.Module{Title: "Month 2"})
	if err != nil {
		t.Fatalf("CreateModule() error = %v", err)
	}
	if mod.ID != 2 || mod.Lectures == nil || mod.BulkCodes == nil {
		t.Errorf("CreateModule() = %+v", mod)
	}

	// aborted mutations are not persisted
	errAbort := errors.New("abort")
	_, err = repo.UpdateModule(ctx, mod.ID, func(m *course.Module, _ *course.Sequence) error {
		m.Title = "changed"
		return errAbort
	})
	if err != errAbort {
		t.Errorf("UpdateModule() error = %v, want %v", err, errAbort)
	}
	if got, _ := repo.GetModuleByID(ctx, mod.ID); got.Title != "Month 2" {
		t.Errorf("aborted mutation persisted: %q", got.Title)
	}

	// the sequence continues after the seed's lecture & video
	var lectureID, videoID int
	_, err = repo.UpdateModule(ctx, mod.ID, func(m *course.Module, seq *course.Sequence) error {
		lectureID, videoID = seq.NextLectureID(), seq.NextVideoID()
		return nil
	})
	if err != nil || lectureID != 102 || videoID != 1002 {
		t.Errorf("sequence = %d, %d (err %v), want 102, 1002", lectureID, videoID, err)
	}

	tests := []struct {
		name    string
		id      int
		wantErr error
	}{
		{name: "delete", id: mod.ID},
		{name: "already deleted", id: mod.ID, wantErr: course.ErrModuleNotFound},
		{name: "unknown", id: 42, wantErr: course.ErrModuleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.DeleteModule(ctx, tt.id); err != tt.wantErr {
				t.Errorf("DeleteModule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if _, err = repo.UpdateModule(ctx, 42, func(*course.Module, *course.Sequence) error { return nil }); err != course.ErrModuleNotFound {
		t.Errorf("UpdateModule(42) error = %v, want %v", err, course.ErrModuleNotFound)
	}
}
