// Package progression decides which gate stands between a user and a lecture and walks the user
// through them: module code first, then the lecture's quiz, then playback.
package progression

import (
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/unlock"
	"github.com/trezcool/elimu/core/user"
)

type Gate string

const (
	// Locked is reported alongside errors, when no lecture could be evaluated.
	Locked       Gate = "LOCKED"
	CodeRequired Gate = "CODE_REQUIRED"
	QuizRequired Gate = "QUIZ_REQUIRED"
	Playable     Gate = "PLAYABLE"
)

// Resolve evaluates the gates in order: admin, module unlock, quiz.
func Resolve(usr user.User, moduleID int, lec course.Lecture) Gate {
	switch {
	case usr.IsAdmin():
		return Playable
	case !unlock.IsModuleUnlocked(usr, moduleID):
		return CodeRequired
	case unlock.RequiresQuiz(lec, usr):
		return QuizRequired
	}
	return Playable
}
