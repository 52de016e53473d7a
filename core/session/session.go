// Package session keeps the per-login context: the acting user, the lecture awaiting a gate,
// student-code grants and the quiz attempt in progress. It lives from login to logout and is never persisted.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

var ErrNotFound = errors.New("session not found")

type (
	// LectureRef points at a lecture inside its module.
	LectureRef struct {
		ModuleID  int `json:"moduleId"`
		LectureID int `json:"lectureId"`
	}

	// Session must be locked while its user, pending lecture, grants or attempt are used.
	Session struct {
		sync.Mutex
		ID        uuid.UUID
		User      user.User
		CreatedAt time.Time
		Pending   *LectureRef
		// Granted holds the lectures opened with a legacy student code for this login only.
		Granted map[LectureRef]bool
		Attempt *quiz.Attempt
	}

	Manager struct {
		mutex    sync.RWMutex
		sessions map[uuid.UUID]*Session
	}
)

var nowFunc = time.Now // mockable

func NewManager() *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*Session)}
}

// Create starts a session for a freshly logged in user.
func (mgr *Manager) Create(usr user.User) *Session {
	sess := &Session{
		ID:        uuid.New(),
		User:      usr,
		CreatedAt: nowFunc(),
		Granted:   make(map[LectureRef]bool),
	}
	mgr.mutex.Lock()
	mgr.sessions[sess.ID] = sess
	mgr.mutex.Unlock()
	return sess
}

func (mgr *Manager) Get(id uuid.UUID) (*Session, error) {
	mgr.mutex.RLock()
	defer mgr.mutex.RUnlock()

	sess, ok := mgr.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Refresh replaces the session's user with a freshly loaded copy.
func (mgr *Manager) Refresh(id uuid.UUID, usr user.User) error {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	sess, ok := mgr.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Lock()
	sess.User = usr
	sess.Unlock()
	return nil
}

// Destroy ends the session, dropping any unfinished attempt.
func (mgr *Manager) Destroy(id uuid.UUID) error {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	if _, ok := mgr.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(mgr.sessions, id)
	return nil
}

// Len counts live sessions.
func (mgr *Manager) Len() int {
	mgr.mutex.RLock()
	defer mgr.mutex.RUnlock()
	return len(mgr.sessions)
}
