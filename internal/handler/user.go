package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/storage"
	"github.com/iliyamo/blog-api/internal/utils"
)

// UserHandler serves the caller's profile and admin user management.
type UserHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Blogs    *repository.BlogRepo
	Store    storage.BannerStore
	Activity *service.Activity
	Log      logrus.FieldLogger
}

// NewUserHandler wires the profile and user management endpoints.
func NewUserHandler(cfg config.Config, users *repository.UserRepo, blogs *repository.BlogRepo,
	store storage.BannerStore, activity *service.Activity, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Blogs: blogs, Store: store, Activity: activity, Log: log}
}

// UpdateUserRequest changes profile fields; absent fields are kept and an
// empty social link clears it.
type UpdateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=30"`
	Email     *string `json:"email" validate:"omitempty,email,max=50"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	FirstName *string `json:"firstName" validate:"omitempty,max=20"`
	LastName  *string `json:"lastName" validate:"omitempty,max=20"`
	Website   *string `json:"website" validate:"omitempty,url,max=100"`
	Facebook  *string `json:"facebook" validate:"omitempty,url,max=100"`
	Instagram *string `json:"instagram" validate:"omitempty,url,max=100"`
	X         *string `json:"x" validate:"omitempty,url,max=100"`
	YouTube   *string `json:"youtube" validate:"omitempty,url,max=100"`
}

// RoleRequest is the body of PUT /users/:userId/role.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

// Current returns the caller's profile.
func (h *UserHandler) Current(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	return h.respondUser(c, ctx, middleware.UserID(c))
}

// UpdateCurrent applies a partial profile update to the caller.
func (h *UserHandler) UpdateCurrent(c echo.Context) error {
	req := middleware.Request[UpdateUserRequest](c)
	id := middleware.UserID(c)

	upd := repository.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Website:   req.Website,
		Facebook:  req.Facebook,
		Instagram: req.Instagram,
		X:         req.X,
		YouTube:   req.YouTube,
	}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		upd.Username = &name
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		switch {
		case errors.Is(err, utils.ErrPasswordTooLong):
			return passwordTooLong()
		case err != nil:
			return httperror.Internal(err)
		}
		upd.PasswordHash = &hash
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Update(ctx, id, upd)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return httperror.Conflict("Email already in use.")
	case errors.Is(err, repository.ErrUsernameExists):
		return httperror.Conflict("Username already in use.")
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("User not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	h.Activity.Record(ctx, queue.EventUserUpdated, id, "user", id, nil)
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// DeleteCurrent removes the caller, their banners and everything they own.
func (h *UserHandler) DeleteCurrent(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	id := middleware.UserID(c)
	if err := h.deleteUser(ctx, id); err != nil {
		return err
	}
	clearRefreshCookie(c, h.Cfg.IsProduction())
	h.Activity.Record(ctx, queue.EventUserDeleted, id, "user", id, nil)
	return c.NoContent(http.StatusNoContent)
}

// List pages through all users.
func (h *UserHandler) List(c echo.Context) error {
	p := middleware.Request[PageQuery](c).page()

	ctx, cancel := dbContext(c)
	defer cancel()

	users, total, err := h.Users.List(ctx, p)
	if err != nil {
		return httperror.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"limit": p.Limit, "offset": p.Offset, "total": total, "users": users})
}

// Get returns one user.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	return h.respondUser(c, ctx, c.Param("userId"))
}

// UpdateRole sets a user's role.  It applies to the user's next request.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	req := middleware.Request[RoleRequest](c)
	id := c.Param("userId")

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.UpdateRole(ctx, id, model.Role(req.Role))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("User not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	h.Activity.Record(ctx, queue.EventUserRoleChange, middleware.UserID(c), "user", id, map[string]string{"role": req.Role})
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// Delete removes any user.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	id := c.Param("userId")
	if err := h.deleteUser(ctx, id); err != nil {
		return err
	}
	h.Activity.Record(ctx, queue.EventUserDeleted, middleware.UserID(c), "user", id, nil)
	return c.NoContent(http.StatusNoContent)
}

// deleteUser removes the user's banner objects, then the user row; blogs,
// comments, likes and tokens cascade.
func (h *UserHandler) deleteUser(ctx context.Context, id string) error {
	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperror.NotFound("User not found.")
		}
		return httperror.Internal(err)
	}
	keys, err := h.Blogs.BannerKeysByAuthor(ctx, id)
	if err != nil {
		return httperror.Internal(err)
	}
	if err := h.Store.DeleteMany(ctx, keys); err != nil {
		h.Log.WithError(err).WithField("user", id).Error("delete user banners")
		return httperror.Internal(err)
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperror.NotFound("User not found.")
		}
		return httperror.Internal(err)
	}
	return nil
}

func (h *UserHandler) respondUser(c echo.Context, ctx context.Context, id string) error {
	u, err := h.Users.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("User not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}
