// Package unlock derives what a user may access from their unlocked modules & quiz progress.
package unlock

import (
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

// IsModuleUnlocked reports whether usr redeemed a code for moduleID. Admins have everything unlocked.
func IsModuleUnlocked(usr user.User, moduleID int) bool {
	return usr.IsAdmin() || usr.HasUnlocked(moduleID)
}

func IsLecturePassed(usr user.User, lectureID int) bool {
	return usr.HasPassed(lectureID)
}

// HasQuiz reports whether the lecture carries a quiz with at least one question.
func HasQuiz(lec course.Lecture) bool {
	return lec.Quiz.HasQuestions()
}

// RequiresQuiz reports whether usr must pass the lecture's quiz before watching it.
func RequiresQuiz(lec course.Lecture, usr user.User) bool {
	return HasQuiz(lec) && !IsLecturePassed(usr, lec.ID) && !usr.IsAdmin()
}
