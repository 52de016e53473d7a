package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/elimu/core/user"
)

func TestManager(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	mgr := NewManager()
	usr := user.User{ID: 2, Email: "s@test.cd", Role: user.RoleStudent}

	sess := mgr.Create(usr)
	if sess.ID == uuid.Nil || sess.User.ID != 2 || !sess.CreatedAt.Equal(now) || sess.Pending != nil || sess.Attempt != nil {
		t.Fatalf("Create() = %+v", sess)
	}
	other := mgr.Create(usr)
	if other.ID == sess.ID {
		t.Errorf("Create() reused a session id")
	}

	usr.UnlockedModules = []int{1}
	if err := mgr.Refresh(sess.ID, usr); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	got, err := mgr.Get(sess.ID)
	if err != nil || got != sess || !got.User.HasUnlocked(1) {
		t.Errorf("Get() = %+v, %v", got, err)
	}

	tests := []struct {
		name    string
		id      uuid.UUID
		wantErr error
	}{
		{name: "destroy", id: sess.ID},
		{name: "destroy twice", id: sess.ID, wantErr: ErrNotFound},
		{name: "unknown", id: uuid.New(), wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mgr.Destroy(tt.id); err != tt.wantErr {
				t.Errorf("Destroy() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err = mgr.Get(sess.ID); err != ErrNotFound {
		t.Errorf("Get() destroyed session error = %v", err)
	}
	if err = mgr.Refresh(sess.ID, usr); err != ErrNotFound {
		t.Errorf("Refresh() destroyed session error = %v", err)
	}
	if mgr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", mgr.Len())
	}
}

func TestManager_concurrent(t *testing.T) {
	mgr := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sess := mgr.Create(user.User{ID: id})
			_ = mgr.Refresh(sess.ID, user.User{ID: id})
			_ = mgr.Destroy(sess.ID)
		}(i + 1)
	}
	wg.Wait()
	if mgr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", mgr.Len())
	}
}
