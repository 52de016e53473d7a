package testutil

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/records"
	"github.com/trezcool/elimu/storage/kv"
)

var Bootstrap = user.BootstrapAdmin{Name: "Owner Admin", Email: "admin@elite.com", Password: "admin"}

// NewValidator returns a validator with every custom tag registered.
func NewValidator() *validator.Validate {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate
}

// OpenDB returns seeded records over a fresh in-memory store.
func OpenDB(t *testing.T) *records.DB {
	db := records.Open(kv.NewMemoryStore(), Bootstrap, NewValidator(), logsvc.NewNopLogger())
	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

// ResetDB wipes db; the next read reseeds it.
func ResetDB(t *testing.T, db *records.DB) {
	if err := db.Reset(context.Background()); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, role user.Role, unlocked ...int) user.User {
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:            name,
		Email:           email,
		Password:        pwd,
		Role:            role,
		Progress:        make(map[int]bool),
		UnlockedModules: append([]int{}, unlocked...),
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateLecture adds a module holding one lecture with the given quiz questions.
func CreateLecture(t *testing.T, svc *course.Service, title string, passScore int, questions ...course.QuestionInput) (course.Module, course.Lecture) {
	ctx := context.Background()
	mod, err := svc.CreateModule(ctx, course.NewModule{Title: title})
	if err != nil {
		t.Fatalf("CreateLecture() failed: %v", err)
	}
	lec, err := svc.SaveLecture(ctx, mod.ID, course.LectureInput{
		Title:  title + " lecture",
		Videos: []course.VideoInput{{Title: "Part 1", URL: "https://video.test/1"}},
	})
	if err != nil {
		t.Fatalf("CreateLecture() failed: %v", err)
	}
	if len(questions) > 0 {
		if _, err = svc.SaveQuiz(ctx, mod.ID, lec.ID, course.QuizInput{PassScore: passScore, Questions: questions}); err != nil {
			t.Fatalf("CreateLecture() failed: %v", err)
		}
	}
	mod, lec, err = svc.FindLecture(ctx, mod.ID, lec.ID)
	if err != nil {
		t.Fatalf("CreateLecture() failed: %v", err)
	}
	return mod, lec
}
