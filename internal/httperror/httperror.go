// Package httperror defines the typed failure every pipeline stage returns and
// the Echo error handler that renders it as {code, message[, errors]}.
package httperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Error kinds surfaced in the "code" field.
const (
	CodeAuthentication = "AuthenticationError"
	CodeForbidden      = "ForbiddenError"
	CodeNotFound       = "NotFoundError"
	CodeValidation     = "ValidationError"
	CodeBadRequest     = "BadRequest"
	CodeConflict       = "ConflictError"
	CodeTooManyReqs    = "TooManyRequests"
	CodeServer         = "ServerError"
)

// MsgInternal is the only message a caller ever sees for a server failure.
const MsgInternal = "Internal server error."

// Error terminates a request with a status, a kind and a human message.
// Err carries the underlying cause for the server log and is never rendered.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Body is the JSON rendering of an Error.
type Body struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

// Validation reports malformed input; fields maps input names to messages.
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg, Fields: fields}
}

func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Message: msg}
}

// TooLarge is a validation failure reported with 413.
func TooLarge(msg string) *Error {
	return &Error{Status: http.StatusRequestEntityTooLarge, Code: CodeValidation, Message: msg}
}

// Internal wraps an unexpected failure; err is logged, never returned to the client.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeServer, Message: MsgInternal, Err: err}
}

// Handler returns an echo.HTTPErrorHandler rendering every error in the
// {code, message} shape.  Server failures are logged with their cause.
func Handler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		e := From(err)
		if e.Status >= http.StatusInternalServerError {
			log.WithError(err).
				WithField("method", c.Request().Method).
				WithField("uri", c.Request().RequestURI).
				Error("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(e.Status)
		} else {
			werr = c.JSON(e.Status, Body{Code: e.Code, Message: e.Message, Errors: e.Fields})
		}
		if werr != nil {
			log.WithError(werr).Error("write error response")
		}
	}
}

// From converts any error into an *Error.  Echo's own errors (unknown route,
// wrong method, body limit, bind failures) keep their status.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fromEcho(he)
	}
	return Internal(err)
}

func fromEcho(he *echo.HTTPError) *Error {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	switch he.Code {
	case http.StatusNotFound:
		return NotFound("Route not found.")
	case http.StatusMethodNotAllowed:
		return &Error{Status: he.Code, Code: CodeBadRequest, Message: "Method not allowed."}
	case http.StatusRequestEntityTooLarge:
		return TooLarge("Request body is too large.")
	case http.StatusUnsupportedMediaType:
		return &Error{Status: he.Code, Code: CodeValidation, Message: "Unsupported content type."}
	case http.StatusTooManyRequests:
		return &Error{Status: he.Code, Code: CodeTooManyReqs, Message: "Too many requests, please try again later."}
	case http.StatusUnauthorized:
		return Unauthorized(msg)
	case http.StatusForbidden:
		return Forbidden(msg)
	}
	if he.Code >= http.StatusInternalServerError {
		return Internal(he)
	}
	return Validation(msg, nil)
}
