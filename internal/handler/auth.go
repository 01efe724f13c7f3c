package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/auth"
	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/utils"
)

// RefreshCookie names the http-only cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

const refreshCookiePath = "/api/v1/auth"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Access   *auth.TokenService
	Activity *service.Activity
	Log      logrus.FieldLogger
}

// NewAuthHandler wires the auth endpoints to the user and refresh token stores.
func NewAuthHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo,
	access *auth.TokenService, activity *service.Activity, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Access: access, Activity: activity, Log: log}
}

// RegisterRequest is the body of POST /auth/register; role defaults to user.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"accessToken"`
}

// Register creates a user and signs them in.  The admin role is reserved for
// whitelisted emails.
func (h *AuthHandler) Register(c echo.Context) error {
	req := middleware.Request[RegisterRequest](c)
	role := model.RoleUser
	if req.Role == string(model.RoleAdmin) {
		if !h.Cfg.IsAdminEmail(req.Email) {
			logging.Denied(h.Log, req.Email, "register", "role:admin", "email not whitelisted")
			return httperror.Forbidden("You cannot register as an admin.")
		}
		role = model.RoleAdmin
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return httperror.Conflict("Email already exists.")
	case errors.Is(err, utils.ErrPasswordTooLong):
		return passwordTooLong()
	case err != nil:
		return httperror.Internal(err)
	}

	access, err := h.startSession(c, u.ID)
	if err != nil {
		// drop the account so the same email can register again
		if derr := h.Users.Delete(context.WithoutCancel(ctx), u.ID); derr != nil {
			h.Log.WithError(derr).WithField("user", u.ID).Error("roll back registration")
		}
		return err
	}
	h.Activity.Record(ctx, queue.EventUserRegistered, u.ID, "user", u.ID, map[string]string{"role": string(u.Role)})
	return c.JSON(http.StatusCreated, authResponse{User: u, AccessToken: access})
}

// Login checks the credentials and starts a new session.
func (h *AuthHandler) Login(c echo.Context) error {
	req := middleware.Request[LoginRequest](c)

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return httperror.Internal(err)
	}
	if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return httperror.Unauthorized("Invalid email or password.")
	}

	access, err := h.startSession(c, u.ID)
	if err != nil {
		return err
	}
	h.Activity.Record(ctx, queue.EventUserLoggedIn, u.ID, "user", u.ID, nil)
	return c.JSON(http.StatusOK, authResponse{User: u, AccessToken: access})
}

// Refresh exchanges the refresh cookie for a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		return httperror.Unauthorized("Refresh token required.")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(cookie.Value))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.Unauthorized("Invalid or expired refresh token.")
	case err != nil:
		return httperror.Internal(err)
	}

	access, err := h.Access.Issue(userID)
	if err != nil {
		return httperror.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access.Token})
}

// Logout revokes the cookie's refresh token, or every refresh token of the
// caller when the cookie is absent, and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	userID := middleware.UserID(c)
	var err error
	if cookie, cerr := c.Cookie(RefreshCookie); cerr == nil && cookie.Value != "" {
		err = h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(cookie.Value))
	} else {
		err = h.Tokens.RevokeAllForUser(ctx, userID)
	}
	if err != nil {
		return httperror.Internal(err)
	}

	h.clearRefreshCookie(c)
	h.Activity.Record(ctx, queue.EventUserLoggedOut, userID, "user", userID, nil)
	return c.NoContent(http.StatusNoContent)
}

// startSession issues an access token and a stored refresh token set as cookie.
func (h *AuthHandler) startSession(c echo.Context, userID string) (string, error) {
	access, err := h.Access.Issue(userID)
	if err != nil {
		return "", httperror.Internal(err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return "", httperror.Internal(err)
	}
	if err := h.Tokens.StoreRefresh(c.Request().Context(), userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return "", httperror.Internal(err)
	}
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    refresh.Raw,
		Path:     refreshCookiePath,
		Expires:  refresh.Exp,
		MaxAge:   int(time.Until(refresh.Exp) / time.Second),
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
	return access.Token, nil
}

func passwordTooLong() error {
	msg := "Password must be at most 72 bytes."
	return httperror.Validation(msg, map[string]string{"password": msg})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	clearRefreshCookie(c, h.Cfg.IsProduction())
}

func clearRefreshCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
