package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/progression"
)

type learnApi struct {
	orch     *progression.Orchestrator
	validate *validator.Validate
}

func registerLearnAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, api *learnApi) {
	lg := g.Group("/learn", jwt, sess)

	lg.GET("/modules", api.overview)
	lg.GET("/modules/:mid/lectures/:lid", api.openLecture)
	lg.GET("/modules/:mid/lectures/:lid/gate", api.gate)
	lg.POST("/modules/:mid/lectures/:lid/code", api.submitCode)
	lg.POST("/modules/:mid/lectures/:lid/student-code", api.submitStudentCode)
	lg.POST("/modules/:mid/lectures/:lid/quiz", api.startQuiz)

	lg.PUT("/quiz/answers/:idx", api.answer)
	lg.POST("/quiz/submit", api.submitQuiz)
	lg.POST("/quiz/score", api.score)
}

// lectureParams reads the :mid & :lid path parameters.
func lectureParams(ctx echo.Context) (int, int, error) {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return 0, 0, err
	}
	lid, err := intParam(ctx, "lid")
	if err != nil {
		return 0, 0, err
	}
	return mid, lid, nil
}

// Handlers

func (api *learnApi) overview(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	views, err := api.orch.Overview(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *learnApi) gate(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	mid, lid, err := lectureParams(ctx)
	if err != nil {
		return err
	}

	gate, err := api.orch.ResolveGate(ctx.Request().Context(), sess, mid, lid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, GateResponse{Gate: gate})
}

func (api *learnApi) openLecture(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	mid, lid, err := lectureParams(ctx)
	if err != nil {
		return err
	}

	content, err := api.orch.OpenLecture(ctx.Request().Context(), sess, mid, lid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, content)
}

func (api *learnApi) bindCode(ctx echo.Context) (string, error) {
	var data CodeRequest
	if err := ctx.Bind(&data); err != nil {
		return "", errors.Wrap(err, "binding to CodeRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return "", err
	}
	return data.Code, nil
}

func (api *learnApi) submitCode(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	mid, lid, err := lectureParams(ctx)
	if err != nil {
		return err
	}
	code, err := api.bindCode(ctx)
	if err != nil {
		return err
	}

	gate, err := api.orch.SubmitCode(ctx.Request().Context(), sess, mid, lid, code)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, GateResponse{Gate: gate})
}

func (api *learnApi) submitStudentCode(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	mid, lid, err := lectureParams(ctx)
	if err != nil {
		return err
	}
	code, err := api.bindCode(ctx)
	if err != nil {
		return err
	}

	gate, err := api.orch.SubmitStudentCode(ctx.Request().Context(), sess, mid, lid, code)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, GateResponse{Gate: gate})
}

func (api *learnApi) startQuiz(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	mid, lid, err := lectureParams(ctx)
	if err != nil {
		return err
	}

	att, err := api.orch.StartQuiz(ctx.Request().Context(), sess, mid, lid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newAttemptResponse(att))
}

func (api *learnApi) answer(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	idx, err := intParam(ctx, "idx")
	if err != nil {
		return err
	}
	var data OptionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OptionRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	att, err := api.orch.AnswerQuestion(sess, idx, *data.Option)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newAttemptResponse(att))
}

func (api *learnApi) submitQuiz(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	res, gate, err := api.orch.SubmitQuiz(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SubmitResponse{Result: res, Gate: gate})
}

// score grades answers without touching the session or the store.
func (api *learnApi) score(ctx echo.Context) error {
	var data ScoreRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.orch.Score(ctx.Request().Context(), data.ModuleID, data.LectureID, data.Answers)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ScoreResponse{Percentage: res.Percentage, Passed: res.Passed})
}
