package user

import "github.com/trezcool/elimu/core"

// Role
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

var AllRoles = []Role{RoleAdmin, RoleStudent}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a portal account. Passwords are stored & compared in plaintext.
type User struct {
	ID              int          `json:"id" validate:"gt=0"`
	Name            string       `json:"name"`
	Email           string       `json:"email" validate:"required"`
	Password        string       `json:"password"`
	Role            Role         `json:"role" validate:"roles"`
	Progress        map[int]bool `json:"progress"`        // lectureID -> passed
	UnlockedModules []int        `json:"unlockedModules"` // module IDs
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) HasUnlocked(moduleID int) bool {
	for _, mid := range u.UnlockedModules {
		if mid == moduleID {
			return true
		}
	}
	return false
}

func (u *User) HasPassed(lectureID int) bool {
	return u.Progress[lectureID]
}

// unlock adds moduleID to the unlocked modules; returns false if it was already there.
func (u *User) unlock(moduleID int) bool {
	if u.HasUnlocked(moduleID) {
		return false
	}
	u.UnlockedModules = append(u.UnlockedModules, moduleID)
	return true
}

// pass records lectureID as passed; returns false if it already was.
func (u *User) pass(lectureID int) bool {
	if u.HasPassed(lectureID) {
		return false
	}
	if u.Progress == nil {
		u.Progress = make(map[int]bool)
	}
	u.Progress[lectureID] = true
	return true
}

// Clean normalizes a loaded record in place.
func (u *User) Clean() {
	u.Name = core.CleanString(u.Name)
	u.Email = core.CleanString(u.Email, true)
	u.Role = Role(core.CleanString(string(u.Role), true))
	if u.Progress == nil {
		u.Progress = make(map[int]bool)
	}
	if u.UnlockedModules == nil {
		u.UnlockedModules = []int{}
	}
}

// NewUser contains information needed to register a new student.
type NewUser struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Credentials are what a user logs in with.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
