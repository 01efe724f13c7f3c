package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

// MsgForbidden is returned for every role denial.
const MsgForbidden = "You do not have permission to access this resource."

// RoleLookup loads a user's role; repository.ErrNotFound when the user is gone.
type RoleLookup interface {
	GetRole(ctx context.Context, id string) (model.Role, error)
}

// Authorize admits callers whose current role is one of roles.  The role is
// read from the database on every request, so a role change applies to
// tokens already issued.  A deleted user is treated like a wrong role.
func Authorize(users RoleLookup, log logrus.FieldLogger, roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := UserID(c)
			if id == "" {
				return httperror.Unauthorized(MsgNoToken)
			}
			action := c.Request().Method + " " + c.Path()
			resource := c.Request().URL.Path

			role, err := users.GetRole(c.Request().Context(), id)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				logging.Denied(log, id, action, resource, "user not found")
				return httperror.Forbidden(MsgForbidden)
			case err != nil:
				log.WithError(err).WithField(logging.FieldActor, id).Error("load user role")
				return httperror.Internal(err)
			}
			if !allowed[role] {
				logging.Denied(log, id, action, resource, "role "+string(role)+" not permitted")
				return httperror.Forbidden(MsgForbidden)
			}
			return next(c)
		}
	}
}
