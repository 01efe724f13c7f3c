package router

import (
	"net/http"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/middleware"
)

// likeRoutes are mounted under /likes.
func likeRoutes(h *handler.LikeHandler, s stages) []Route {
	blogID := middleware.ValidateParams("blogId")
	return []Route{
		{http.MethodPost, "/blog/:blogId", s.roles(anyRole, blogID), h.Like},
		{http.MethodDelete, "/blog/:blogId", s.roles(anyRole, blogID), h.Unlike},
	}
}

// commentRoutes are mounted under /comments.
func commentRoutes(h *handler.CommentHandler, s stages) []Route {
	blogID := middleware.ValidateParams("blogId")
	return []Route{
		{http.MethodPost, "/blog/:blogId", s.roles(anyRole, blogID, middleware.ValidateRequest[handler.CommentRequest]()), h.Create},
		{http.MethodGet, "/blog/:blogId", s.roles(anyRole, blogID), h.ListByBlog},
		{http.MethodDelete, "/:commentId", s.roles(anyRole, middleware.ValidateParams("commentId")), h.Delete},
	}
}
