// Package quiz scores attempts at a lecture's quiz and records passes.
package quiz

import (
	"context"
	"errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

// Unanswered marks a question without a selected option.
const Unanswered = -1

var (
	// errors
	ErrNoQuiz            = errors.New("lecture has no quiz")
	ErrIncompleteAttempt = errors.New("all questions must be answered")
	ErrInvalidQuestion   = errors.New("no such question")
	ErrInvalidOption     = errors.New("no such option")
)

type (
	// Result is the outcome of a scored attempt. Failing is a normal outcome, not an error.
	Result struct {
		Correct    int  `json:"correct"`
		Total      int  `json:"total"`
		Percentage int  `json:"percentage"`
		PassScore  int  `json:"passScore"`
		Passed     bool `json:"passed"`
	}

	// Attempt holds the answers of an ongoing attempt. Answers may be changed until submission.
	Attempt struct {
		ModuleID  int         `json:"moduleId"`
		LectureID int         `json:"lectureId"`
		Quiz      course.Quiz `json:"-"`
		Answers   []int       `json:"answers"`
	}
)

func NewAttempt(moduleID int, lec course.Lecture) (*Attempt, error) {
	if !lec.Quiz.HasQuestions() {
		return nil, ErrNoQuiz
	}
	att := &Attempt{ModuleID: moduleID, LectureID: lec.ID, Quiz: *lec.Quiz}
	att.Reset()
	return att, nil
}

// Select answers question i with option opt.
func (att *Attempt) Select(i, opt int) error {
	if i < 0 || i >= len(att.Answers) {
		return core.NewValidationError(ErrInvalidQuestion, core.FieldError{Field: "question", Error: ErrInvalidQuestion.Error()})
	}
	if opt < 0 || opt >= len(att.Quiz.Questions[i].A) {
		return core.NewValidationError(ErrInvalidOption, core.FieldError{Field: "option", Error: ErrInvalidOption.Error()})
	}
	att.Answers[i] = opt
	return nil
}

// Answered counts the questions with a selected option.
func (att *Attempt) Answered() int {
	n := 0
	for _, a := range att.Answers {
		if a != Unanswered {
			n++
		}
	}
	return n
}

// Reset discards every answer, for a retake.
func (att *Attempt) Reset() {
	att.Answers = make([]int, len(att.Quiz.Questions))
	for i := range att.Answers {
		att.Answers[i] = Unanswered
	}
}

func (att *Attempt) Score() (Result, error) {
	return Score(att.Quiz, att.Answers)
}

// Score grades answers against the quiz's answer key.
// The percentage is rounded half up; the attempt passes at or above the pass score.
func Score(qz course.Quiz, answers []int) (Result, error) {
	n := len(qz.Questions)
	if n == 0 {
		return Result{}, ErrNoQuiz
	}
	if len(answers) != n {
		return Result{}, ErrIncompleteAttempt
	}

	res := Result{Total: n, PassScore: qz.PassScore}
	for i, a := range answers {
		if a == Unanswered {
			return Result{}, ErrIncompleteAttempt
		}
		if a == qz.Questions[i].Correct {
			res.Correct++
		}
	}
	res.Percentage = (200*res.Correct + n) / (2 * n)
	res.Passed = res.Percentage >= qz.PassScore
	return res, nil
}

type Engine struct {
	users *user.Service
}

func NewEngine(users *user.Service) *Engine {
	return &Engine{users: users}
}

// RecordPass marks the lecture's quiz as passed by the user. Idempotent.
func (eng *Engine) RecordPass(ctx context.Context, userID, lectureID int) error {
	_, err := eng.users.MarkPassed(ctx, userID, lectureID)
	return err
}
