package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
)

// CommentHandler serves blog comments.
type CommentHandler struct {
	Comments *repository.CommentRepo
	Blogs    *repository.BlogRepo
	Users    *repository.UserRepo
	Policy   *bluemonday.Policy
	Activity *service.Activity
	Log      logrus.FieldLogger
}

// NewCommentHandler sanitizes comments with the bluemonday UGC policy.
func NewCommentHandler(comments *repository.CommentRepo, blogs *repository.BlogRepo, users *repository.UserRepo,
	activity *service.Activity, log logrus.FieldLogger) *CommentHandler {
	return &CommentHandler{
		Comments: comments,
		Blogs:    blogs,
		Users:    users,
		Policy:   bluemonday.UGCPolicy(),
		Activity: activity,
		Log:      log,
	}
}

// CommentRequest is the body of POST /comments/blog/:blogId.
type CommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// Create adds the caller's comment to a blog.
func (h *CommentHandler) Create(c echo.Context) error {
	req := middleware.Request[CommentRequest](c)
	blogID := c.Param("blogId")

	content := strings.TrimSpace(h.Policy.Sanitize(req.Content))
	if content == "" {
		return httperror.Validation("Content is required.", map[string]string{"content": "Content is required."})
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := readableBlog(ctx, c, h.Blogs, h.Users, h.Log, blogID); err != nil {
		return err
	}
	comment, count, err := h.Comments.Create(ctx, blogID, middleware.UserID(c), content)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Blog not found.")
	case err != nil:
		return httperror.Internal(err)
	}

	h.Activity.Record(ctx, queue.EventCommentCreated, comment.UserID, "comment", comment.ID,
		map[string]string{"blogId": blogID, "commentsCount": strconv.Itoa(count)})
	return c.JSON(http.StatusCreated, echo.Map{
		"comment": comment,
		"blog":    echo.Map{"id": blogID, "commentsCount": count},
	})
}

// ListByBlog returns a blog's comments, newest first.
func (h *CommentHandler) ListByBlog(c echo.Context) error {
	blogID := c.Param("blogId")

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := readableBlog(ctx, c, h.Blogs, h.Users, h.Log, blogID); err != nil {
		return err
	}
	comments, err := h.Comments.ListByBlog(ctx, blogID)
	if err != nil {
		return httperror.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": comments})
}

// Delete removes a comment written by the caller, or any comment for admins.
func (h *CommentHandler) Delete(c echo.Context) error {
	id := c.Param("commentId")

	ctx, cancel := dbContext(c)
	defer cancel()

	comment, err := h.Comments.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Comment not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	if err := ownerOrAdmin(ctx, c, h.Users, h.Log, "comment:"+id, comment.UserID); err != nil {
		return err
	}

	blogID, count, err := h.Comments.Delete(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Comment not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	h.Activity.Record(ctx, queue.EventCommentDeleted, middleware.UserID(c), "comment", id,
		map[string]string{"blogId": blogID, "commentsCount": strconv.Itoa(count)})
	return c.NoContent(http.StatusNoContent)
}
