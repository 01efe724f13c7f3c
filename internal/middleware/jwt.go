package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/auth"
	"github.com/iliyamo/blog-api/internal/httperror"
)

// Authentication failure messages.
const (
	MsgNoToken      = "Access denied. No token provided."
	MsgTokenExpired = "Access token expired, please log in again."
	MsgTokenInvalid = "Invalid access token."
)

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// attaches the token's user id to the context.  It never touches the
// database and is safe as the first stage of any route.
func Authenticate(tokens TokenVerifier, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return httperror.Unauthorized(MsgNoToken)
			}

			id, err := tokens.Verify(raw)
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return httperror.Unauthorized(MsgTokenExpired)
			case errors.Is(err, auth.ErrTokenInvalid):
				return httperror.Unauthorized(MsgTokenInvalid)
			case err != nil:
				log.WithError(err).Error("verify access token")
				return httperror.Internal(err)
			}

			setUserID(c, id)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Identify attaches the user id of a valid bearer token and lets every
// request through.  It runs ahead of the rate limiter so buckets can be keyed
// per user; Authenticate still decides access.
func Identify(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); ok {
				if id, err := tokens.Verify(raw); err == nil {
					setUserID(c, id)
				}
			}
			return next(c)
		}
	}
}
