package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
)

// LikeHandler serves blog likes.  One like per user and blog.
type LikeHandler struct {
	Likes    *repository.LikeRepo
	Blogs    *repository.BlogRepo
	Users    *repository.UserRepo
	Activity *service.Activity
	Log      logrus.FieldLogger
}

// NewLikeHandler wires the like endpoints.
func NewLikeHandler(likes *repository.LikeRepo, blogs *repository.BlogRepo, users *repository.UserRepo,
	activity *service.Activity, log logrus.FieldLogger) *LikeHandler {
	return &LikeHandler{Likes: likes, Blogs: blogs, Users: users, Activity: activity, Log: log}
}

// Like records the caller's like and returns the new count.
func (h *LikeHandler) Like(c echo.Context) error {
	blogID := c.Param("blogId")
	userID := middleware.UserID(c)

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := readableBlog(ctx, c, h.Blogs, h.Users, h.Log, blogID); err != nil {
		return err
	}
	count, err := h.Likes.Like(ctx, blogID, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Blog not found.")
	case errors.Is(err, repository.ErrAlreadyLiked):
		return httperror.BadRequest("You have already liked this blog.")
	case err != nil:
		return httperror.Internal(err)
	}
	h.Activity.Record(ctx, queue.EventBlogLiked, userID, "blog", blogID, map[string]string{"likesCount": strconv.Itoa(count)})
	return c.JSON(http.StatusCreated, echo.Map{"likesCount": count})
}

// Unlike removes the caller's like.
func (h *LikeHandler) Unlike(c echo.Context) error {
	blogID := c.Param("blogId")
	userID := middleware.UserID(c)

	ctx, cancel := dbContext(c)
	defer cancel()

	count, err := h.Likes.Unlike(ctx, blogID, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Blog not found.")
	case errors.Is(err, repository.ErrNotLiked):
		return httperror.BadRequest("You have not liked this blog.")
	case err != nil:
		return httperror.Internal(err)
	}
	h.Activity.Record(ctx, queue.EventBlogUnliked, userID, "blog", blogID, map[string]string{"likesCount": strconv.Itoa(count)})
	return c.NoContent(http.StatusNoContent)
}
