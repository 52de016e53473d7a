package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/access"
	"github.com/trezcool/elimu/core/course"
)

type moduleApi struct {
	svc      *course.Service
	codes    *access.Engine
	mailSvc  core.EmailService
	validate *validator.Validate
	logger   core.Logger
}

func registerModuleAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, api *moduleApi) {
	mg := g.Group("/modules", jwt, sess, adminMiddleware())

	mg.GET("", api.query)
	mg.POST("", api.create)
	mg.GET("/:mid", api.retrieve)
	mg.PUT("/:mid", api.rename)
	mg.DELETE("/:mid", api.destroy)

	mg.POST("/:mid/lectures", api.saveLecture)
	mg.PUT("/:mid/lectures/:lid", api.saveLecture)
	mg.DELETE("/:mid/lectures/:lid", api.deleteLecture)
	mg.PUT("/:mid/lectures/:lid/quiz", api.saveQuiz)
	mg.PUT("/:mid/lectures/:lid/student-codes/:uid", api.setStudentCode)

	mg.POST("/:mid/codes", api.generateCodes)
	mg.GET("/:mid/codes/export", api.exportCodes)
	mg.POST("/:mid/codes/export-email", api.emailCodes)
}

// Handlers

func (api *moduleApi) query(ctx echo.Context) error {
	modules, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	res := make([]ModuleResponse, len(modules))
	for i, mod := range modules {
		res[i] = newModuleResponse(mod)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *moduleApi) create(ctx echo.Context) error {
	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	mod, err := api.svc.CreateModule(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newModuleResponse(mod))
}

func (api *moduleApi) retrieve(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	mod, err := api.svc.GetModule(ctx.Request().Context(), mid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newModuleResponse(mod))
}

func (api *moduleApi) rename(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	var data course.NewModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	mod, err := api.svc.RenameModule(ctx.Request().Context(), mid, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newModuleResponse(mod))
}

func (api *moduleApi) destroy(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteModule(ctx.Request().Context(), mid); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// saveLecture creates a lecture (POST) or edits one (PUT :lid).
func (api *moduleApi) saveLecture(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	var data course.LectureInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LectureInput")
	}

	code := http.StatusCreated
	if ctx.Param("lid") != "" {
		if data.ID, err = intParam(ctx, "lid"); err != nil {
			return err
		}
		code = http.StatusOK
	}

	lec, err := api.svc.SaveLecture(ctx.Request().Context(), mid, data)
	if err != nil {
		return err
	}
	return ctx.JSON(code, lec)
}

func (api *moduleApi) deleteLecture(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	lid, err := intParam(ctx, "lid")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteLecture(ctx.Request().Context(), mid, lid); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moduleApi) saveQuiz(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	lid, err := intParam(ctx, "lid")
	if err != nil {
		return err
	}
	var data course.QuizInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizInput")
	}

	qz, err := api.svc.SaveQuiz(ctx.Request().Context(), mid, lid, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *moduleApi) setStudentCode(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	lid, err := intParam(ctx, "lid")
	if err != nil {
		return err
	}
	uid, err := intParam(ctx, "uid")
	if err != nil {
		return err
	}
	var data StudentCodeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentCodeRequest")
	}

	if err = api.svc.SetStudentCode(ctx.Request().Context(), mid, lid, uid, data.Code); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moduleApi) generateCodes(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	var data CountRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CountRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	codes, err := api.codes.Generate(ctx.Request().Context(), mid, data.Count)
	if err != nil {
		return err
	}
	mod, err := api.svc.GetModule(ctx.Request().Context(), mid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, CodesResponse{Codes: codes, Stats: access.CodeStats(mod)})
}

// exportCodes downloads the module's codes as a text file.
func (api *moduleApi) exportCodes(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	exp, err := api.codes.Export(ctx.Request().Context(), mid)
	if err != nil {
		return err
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exp.Filename))
	return ctx.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(exp.Text))
}

// emailCodes sends the export file to the given address.
func (api *moduleApi) emailCodes(ctx echo.Context) error {
	mid, err := intParam(ctx, "mid")
	if err != nil {
		return err
	}
	var data EmailRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	exp, err := api.codes.Export(ctx.Request().Context(), mid)
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: core.CleanString(data.Email, true /* lower */)}},
		Subject: "Access codes: " + exp.Filename,
		BodyStr: "Please find the module's access codes attached.",
	}
	msg.Attach([]byte(exp.Text), exp.Filename, echo.MIMETextPlainCharsetUTF8)
	api.mailSvc.SendMessages(msg)

	api.logger.Info("access codes emailed", map[string]interface{}{"module": mid}, getContextUser(ctx))
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "codes sent"})
}
