package router

import (
	"net/http"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/storage"
)

// blogRoutes are mounted under /blogs.  Writing is reserved to admins.
func blogRoutes(h *handler.BlogHandler, blogs *repository.BlogRepo, store storage.BannerStore, s stages) []Route {
	blogID := middleware.ValidateParams("blogId")
	page := middleware.ValidateRequest[handler.PageQuery]()
	return []Route{
		{http.MethodPost, "", s.roles(adminOnly,
			middleware.ValidateRequest[handler.CreateBlogRequest](),
			middleware.UploadBanner(store, blogs, s.log, true)), h.Create},
		{http.MethodGet, "", s.roles(anyRole, page, s.cache), h.List},
		{http.MethodGet, "/user/:userId", s.roles(anyRole, middleware.ValidateParams("userId"), page, s.cache), h.ListByUser},
		{http.MethodGet, "/:slug", s.roles(anyRole), h.GetBySlug},
		{http.MethodPut, "/:blogId", s.roles(adminOnly, blogID,
			middleware.ValidateRequest[handler.UpdateBlogRequest](),
			middleware.UploadBanner(store, blogs, s.log, false)), h.Update},
		{http.MethodDelete, "/:blogId", s.roles(adminOnly, blogID), h.Delete},
	}
}
