package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/session"
	"github.com/trezcool/elimu/core/user"
)

type userApi struct {
	svc      *user.Service
	quizzes  *quiz.Engine
	sessions *session.Manager
	auth     *authenticator
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, api *userApi) {
	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/register", api.register)

	// authed endpoints
	ag := ug.Group("", jwt, sess)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.GET("", api.query, adminMiddleware())
	ag.POST("/:uid/progress/:lid", api.recordPass, adminMiddleware())
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	sess := api.sessions.Create(usr)
	token, err := api.auth.generateToken(api.auth.userClaims(usr, sess.ID))
	if err != nil {
		_ = api.sessions.Destroy(sess.ID)
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newUserResponse(usr))
}

func (api *userApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = api.sessions.Destroy(sess.ID); err != nil {
		return errSessionExpired
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newUserResponse(getContextUser(ctx)))
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	res := make([]UserResponse, len(users))
	for i, usr := range users {
		res[i] = newUserResponse(usr)
	}
	return ctx.JSON(http.StatusOK, res)
}

// recordPass marks a lecture's quiz as passed on behalf of a user.
func (api *userApi) recordPass(ctx echo.Context) error {
	uid, err := intParam(ctx, "uid")
	if err != nil {
		return err
	}
	lid, err := intParam(ctx, "lid")
	if err != nil {
		return err
	}

	if err = api.quizzes.RecordPass(ctx.Request().Context(), uid, lid); err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newUserResponse(usr))
}
