package echoapi

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/session"
	"github.com/trezcool/elimu/core/user"
)

// sessionMiddleware binds the request to the live session named by the token,
// and reloads the session's user from the store.
func sessionMiddleware(sessions *session.Manager, usrSvc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			sessID, err := uuid.Parse(claims.Id)
			if err != nil {
				return errSessionExpired
			}
			sess, err := sessions.Get(sessID)
			if err != nil {
				return errSessionExpired
			}

			usr, err := usrSvc.GetByID(ctx.Request().Context(), sess.User.ID)
			if err != nil {
				if err == user.ErrNotFound {
					_ = sessions.Destroy(sessID)
					return errSessionExpired
				}
				return errors.Wrap(err, "finding session user")
			}
			if strconv.Itoa(usr.ID) != claims.Subject {
				return errSessionExpired
			}
			if err = sessions.Refresh(sessID, usr); err != nil {
				return errSessionExpired
			}

			ctx.Set(contextSessionKey, sess)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// adminMiddleware only lets users currently holding the admin role through.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if usr := getContextUser(ctx); usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
