// Package handler holds the controllers behind /api/v1.  Each controller
// reads its preconditions, performs one mutation and responds; failures are
// returned as *httperror.Error for the router's error handler.
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

const (
	dbTimeout    = 5 * time.Second
	defaultLimit = 20
)

// MsgNotOwner is returned when an actor mutates a resource it does not own.
const MsgNotOwner = "You are not allowed to modify this resource."

// PageQuery is the ?limit&offset pair of list routes.
type PageQuery struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=50"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

func (q *PageQuery) page() repository.Page {
	p := repository.Page{Limit: defaultLimit}
	if q != nil {
		if q.Limit > 0 {
			p.Limit = q.Limit
		}
		p.Offset = q.Offset
	}
	return p
}

// dbContext bounds the database work of one request.
func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// roleOf loads the caller's current role.  A missing user has no role.
func roleOf(ctx context.Context, users *repository.UserRepo, id string) (model.Role, error) {
	role, err := users.GetRole(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	return role, err
}

// ownerOrAdmin permits actor to mutate a resource owned by ownerID when it is
// the owner or an admin.  Denials are audited.
func ownerOrAdmin(ctx context.Context, c echo.Context, users *repository.UserRepo, log logrus.FieldLogger, resource, ownerID string) error {
	actor := middleware.UserID(c)
	if actor == ownerID {
		return nil
	}
	role, err := roleOf(ctx, users, actor)
	if err != nil {
		return httperror.Internal(err)
	}
	if role == model.RoleAdmin {
		return nil
	}
	logging.Denied(log, actor, c.Request().Method+" "+c.Path(), resource, "not the owner")
	return httperror.Forbidden(MsgNotOwner)
}

// MsgDraft is returned when a non-admin asks for an unpublished blog.
const MsgDraft = "This blog is not published."

// draftGuard lets everyone read published blogs and only admins read drafts.
func draftGuard(ctx context.Context, c echo.Context, users *repository.UserRepo, log logrus.FieldLogger, blog model.Blog) error {
	if blog.Status == model.BlogPublished {
		return nil
	}
	actor := middleware.UserID(c)
	role, err := roleOf(ctx, users, actor)
	if err != nil {
		return httperror.Internal(err)
	}
	if role == model.RoleAdmin {
		return nil
	}
	logging.Denied(log, actor, c.Request().Method+" "+c.Path(), "blog:"+blog.ID, "blog is a draft")
	return httperror.Forbidden(MsgDraft)
}

// readableBlog checks that blogID exists and that the caller may see it.
func readableBlog(ctx context.Context, c echo.Context, blogs *repository.BlogRepo, users *repository.UserRepo,
	log logrus.FieldLogger, blogID string) error {
	blog, err := blogs.GetByID(ctx, blogID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Blog not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	return draftGuard(ctx, c, users, log, blog)
}
