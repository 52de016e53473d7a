package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/elimu/core/access"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progression"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

type (
	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	CodeRequest struct {
		Code string `json:"code" validate:"notblank"`
	}

	// StudentCodeRequest sets a lecture's legacy per-student code; an empty code removes it.
	StudentCodeRequest struct {
		Code string `json:"code"`
	}

	CountRequest struct {
		Count int `json:"count" validate:"min=1"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	OptionRequest struct {
		Option *int `json:"option" validate:"required"`
	}

	ScoreRequest struct {
		ModuleID  int   `json:"moduleId" validate:"gt=0"`
		LectureID int   `json:"lectureId" validate:"gt=0"`
		Answers   []int `json:"answers" validate:"required"`
	}

	CodesResponse struct {
		Codes []course.AccessCode `json:"codes"`
		Stats access.Stats        `json:"stats"`
	}

	GateResponse struct {
		Gate progression.Gate `json:"gate"`
	}

	SubmitResponse struct {
		Result quiz.Result      `json:"result"`
		Gate   progression.Gate `json:"gate"`
	}

	ScoreResponse struct {
		Percentage int  `json:"percentage"`
		Passed     bool `json:"passed"`
	}

	// UserResponse never carries the password.
	UserResponse struct {
		ID              int          `json:"id"`
		Name            string       `json:"name"`
		Email           string       `json:"email"`
		Role            user.Role    `json:"role"`
		Progress        map[int]bool `json:"progress"`
		UnlockedModules []int        `json:"unlockedModules"`
	}

	ModuleResponse struct {
		course.Module
		Codes access.Stats `json:"codes"`
	}

	QuestionResponse struct {
		Q       string   `json:"q"`
		A       []string `json:"a"`
		Image   string   `json:"image,omitempty"`
		Passage string   `json:"passage,omitempty"`
	}

	// AttemptResponse leaves the answer key out.
	AttemptResponse struct {
		ModuleID  int                `json:"moduleId"`
		LectureID int                `json:"lectureId"`
		PassScore int                `json:"passScore"`
		Questions []QuestionResponse `json:"questions"`
		Answers   []int              `json:"answers"`
		Answered  int                `json:"answered"`
	}
)

func newUserResponse(usr user.User) UserResponse {
	return UserResponse{
		ID:              usr.ID,
		Name:            usr.Name,
		Email:           usr.Email,
		Role:            usr.Role,
		Progress:        usr.Progress,
		UnlockedModules: usr.UnlockedModules,
	}
}

func newModuleResponse(mod course.Module) ModuleResponse {
	return ModuleResponse{Module: mod, Codes: access.CodeStats(mod)}
}

func newAttemptResponse(att *quiz.Attempt) AttemptResponse {
	res := AttemptResponse{
		ModuleID:  att.ModuleID,
		LectureID: att.LectureID,
		PassScore: att.Quiz.PassScore,
		Questions: make([]QuestionResponse, len(att.Quiz.Questions)),
		Answers:   append([]int(nil), att.Answers...),
		Answered:  att.Answered(),
	}
	for i, q := range att.Quiz.Questions {
		res.Questions[i] = QuestionResponse{Q: q.Q, A: q.A, Image: q.Image, Passage: q.Passage}
	}
	return res
}

// intParam reads a numeric path parameter; anything else is a 404.
func intParam(ctx echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errHttpNotFound
	}
	return n, nil
}
