package middleware

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/httperror"
)

// ValidateParams rejects requests whose named path parameters are not UUIDs.
func ValidateParams(names ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, name := range names {
				if _, err := uuid.Parse(c.Param(name)); err != nil {
					msg := fmt.Sprintf("Invalid %s.", name)
					return httperror.Validation(msg, map[string]string{name: msg})
				}
			}
			return next(c)
		}
	}
}

// ValidateRequest binds the path, query and body of the request into a new T,
// runs the registered validator over it and stores it for Request[T].
func ValidateRequest[T any]() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := new(T)
			if err := c.Bind(req); err != nil {
				return err
			}
			if err := c.Validate(req); err != nil {
				return err
			}
			c.Set(requestKey, req)
			return next(c)
		}
	}
}
