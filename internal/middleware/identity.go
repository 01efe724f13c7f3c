package middleware

// Request-scoped values set by the stages of a route and read by handlers.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/model"
)

const (
	userIDKey  = "user_id"
	requestKey = "request"
	bannerKey  = "banner"
)

// UserID returns the identity attached by Authenticate, or "" when the
// request is anonymous.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

func setUserID(c echo.Context, id string) { c.Set(userIDKey, id) }

// Request returns the payload bound and validated by ValidateRequest[T].
func Request[T any](c echo.Context) *T {
	req, _ := c.Get(requestKey).(*T)
	return req
}

// UploadedBanner returns the banner stored by UploadBanner, or nil when the
// request carried no image.
func UploadedBanner(c echo.Context) *model.Banner {
	b, _ := c.Get(bannerKey).(*model.Banner)
	return b
}

// actor names the caller in audit entries.
func actor(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anonymous"
}
