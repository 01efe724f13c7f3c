package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/storage"
	"github.com/iliyamo/blog-api/internal/utils"
)

const slugAttempts = 3

// BlogHandler serves blog CRUD.  Content is stored as sanitized HTML.
type BlogHandler struct {
	Blogs    *repository.BlogRepo
	Users    *repository.UserRepo
	Store    storage.BannerStore
	Policy   *bluemonday.Policy
	Activity *service.Activity
	Log      logrus.FieldLogger
}

// NewBlogHandler sanitizes content with the bluemonday UGC policy.
func NewBlogHandler(blogs *repository.BlogRepo, users *repository.UserRepo, store storage.BannerStore,
	activity *service.Activity, log logrus.FieldLogger) *BlogHandler {
	return &BlogHandler{
		Blogs:    blogs,
		Users:    users,
		Store:    store,
		Policy:   bluemonday.UGCPolicy(),
		Activity: activity,
		Log:      log,
	}
}

// CreateBlogRequest is the multipart form of POST /blogs; the banner comes
// from the banner_image part.
type CreateBlogRequest struct {
	Title   string `form:"title" json:"title" validate:"required,max=180"`
	Content string `form:"content" json:"content" validate:"required"`
	Status  string `form:"status" json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateBlogRequest changes the non-empty fields.
type UpdateBlogRequest struct {
	Title   string `form:"title" json:"title" validate:"omitempty,max=180"`
	Content string `form:"content" json:"content"`
	Status  string `form:"status" json:"status" validate:"omitempty,oneof=draft published"`
}

// Create stores a new blog authored by the caller.
func (h *BlogHandler) Create(c echo.Context) error {
	req := middleware.Request[CreateBlogRequest](c)
	banner := middleware.UploadedBanner(c)
	if banner == nil {
		return httperror.Validation("Banner image is required.", nil)
	}

	content := h.Policy.Sanitize(req.Content)
	if strings.TrimSpace(content) == "" {
		h.discardBanner(c.Request().Context(), banner.Key)
		return httperror.Validation("Content is required.", map[string]string{"content": "Content is required."})
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	blog := model.Blog{
		Title:    strings.TrimSpace(req.Title),
		Content:  content,
		Banner:   *banner,
		AuthorID: middleware.UserID(c),
		Status:   model.BlogStatus(req.Status),
	}
	var err error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		blog.Slug = utils.GenSlug(blog.Title)
		if err = h.Blogs.Create(ctx, &blog); !errors.Is(err, repository.ErrConflict) {
			break
		}
	}
	if err != nil {
		h.discardBanner(ctx, banner.Key)
		return httperror.Internal(err)
	}

	h.Activity.Record(ctx, queue.EventBlogCreated, blog.AuthorID, "blog", blog.ID, map[string]string{"slug": blog.Slug})
	return c.JSON(http.StatusCreated, echo.Map{"blog": blog})
}

// List pages through blogs; callers without the admin role see published
// blogs only.
func (h *BlogHandler) List(c echo.Context) error {
	return h.list(c, "")
}

// ListByUser is List narrowed to one author.
func (h *BlogHandler) ListByUser(c echo.Context) error {
	return h.list(c, c.Param("userId"))
}

func (h *BlogHandler) list(c echo.Context, authorID string) error {
	p := middleware.Request[PageQuery](c).page()

	ctx, cancel := dbContext(c)
	defer cancel()

	role, err := roleOf(ctx, h.Users, middleware.UserID(c))
	if err != nil {
		return httperror.Internal(err)
	}
	f := repository.BlogFilter{AuthorID: authorID, Page: p}
	if role != model.RoleAdmin {
		f.Status = model.BlogPublished
	}
	blogs, total, err := h.Blogs.List(ctx, f)
	if err != nil {
		return httperror.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"limit": p.Limit, "offset": p.Offset, "total": total, "blogs": blogs})
}

// GetBySlug returns one blog with its author and counts the view.  Drafts
// are visible to admins only.
func (h *BlogHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	blog, err := h.Blogs.GetBySlug(ctx, c.Param("slug"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Blog not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	if err := draftGuard(ctx, c, h.Users, h.Log, blog); err != nil {
		return err
	}

	if err := h.Blogs.IncrementViews(ctx, blog.ID); err != nil {
		h.Log.WithError(err).WithField("blog", blog.ID).Warn("increment views")
	} else {
		blog.ViewsCount++
	}
	return c.JSON(http.StatusOK, echo.Map{"blog": blog})
}

// Update changes a blog owned by the caller, or any blog for admins.  A new
// banner was uploaded under a fresh key; it replaces the old object only once
// the row is updated and is discarded when the update fails.
func (h *BlogHandler) Update(c echo.Context) (err error) {
	req := middleware.Request[UpdateBlogRequest](c)
	id := c.Param("blogId")
	banner := middleware.UploadedBanner(c)
	if banner != nil {
		defer func() {
			if err != nil {
				h.discardBanner(c.Request().Context(), banner.Key)
			}
		}()
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	blog, err := h.Blogs.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Blog not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	if err := ownerOrAdmin(ctx, c, h.Users, h.Log, "blog:"+id, blog.AuthorID); err != nil {
		return err
	}

	var upd repository.BlogUpdate
	if title := strings.TrimSpace(req.Title); title != "" {
		upd.Title = &title
	}
	if req.Content != "" {
		content := h.Policy.Sanitize(req.Content)
		if strings.TrimSpace(content) == "" {
			return httperror.Validation("Content is required.", map[string]string{"content": "Content is required."})
		}
		upd.Content = &content
	}
	if req.Status != "" {
		status := model.BlogStatus(req.Status)
		upd.Status = &status
	}
	upd.Banner = banner

	oldKey := blog.Banner.Key
	blog, err = h.Blogs.Update(ctx, id, upd)
	if err != nil {
		return httperror.Internal(err)
	}
	if banner != nil && oldKey != "" && oldKey != banner.Key {
		h.discardBanner(ctx, oldKey)
	}
	h.Activity.Record(ctx, queue.EventBlogUpdated, middleware.UserID(c), "blog", id, nil)
	return c.JSON(http.StatusOK, echo.Map{"blog": blog})
}

// Delete removes the banner object and then the blog; comments and likes
// cascade.
func (h *BlogHandler) Delete(c echo.Context) error {
	id := c.Param("blogId")

	ctx, cancel := dbContext(c)
	defer cancel()

	blog, err := h.Blogs.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperror.NotFound("Blog not found.")
	case err != nil:
		return httperror.Internal(err)
	}
	if err := ownerOrAdmin(ctx, c, h.Users, h.Log, "blog:"+id, blog.AuthorID); err != nil {
		return err
	}

	if err := h.Store.Delete(ctx, blog.Banner.Key); err != nil {
		h.Log.WithError(err).WithField("key", blog.Banner.Key).Error("delete banner")
		return httperror.Internal(err)
	}
	if err := h.Blogs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperror.NotFound("Blog not found.")
		}
		return httperror.Internal(err)
	}
	h.Activity.Record(ctx, queue.EventBlogDeleted, middleware.UserID(c), "blog", id,
		map[string]string{"comments": strconv.Itoa(blog.CommentsCount), "likes": strconv.Itoa(blog.LikesCount)})
	return c.NoContent(http.StatusNoContent)
}

func (h *BlogHandler) discardBanner(ctx context.Context, key string) {
	if err := h.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		h.Log.WithError(err).WithField("key", key).Warn("discard banner")
	}
}
