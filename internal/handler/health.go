package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Version is reported by the API root.
var Version = "1.0.0"

// Health answers "ok" while the database is reachable.
func Health(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "unavailable")
		}
		return c.String(http.StatusOK, "ok")
	}
}

// Root describes the API.
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "API is Live",
		"status":    "ok",
		"version":   Version,
		"timeStamp": time.Now().UTC().Format(time.RFC3339),
	})
}
