package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/middleware"
)

// authRoutes are mounted under /auth.  Only logout needs a session.
func authRoutes(h *handler.AuthHandler, s stages) []Route {
	return []Route{
		{http.MethodPost, "/register", []echo.MiddlewareFunc{middleware.ValidateRequest[handler.RegisterRequest]()}, h.Register},
		{http.MethodPost, "/login", []echo.MiddlewareFunc{middleware.ValidateRequest[handler.LoginRequest]()}, h.Login},
		{http.MethodPost, "/refresh-token", nil, h.Refresh},
		{http.MethodPost, "/logout", []echo.MiddlewareFunc{s.authn}, h.Logout},
	}
}
