package router

import (
	"net/http"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/middleware"
)

// userRoutes are mounted under /users.
func userRoutes(h *handler.UserHandler, s stages) []Route {
	userID := middleware.ValidateParams("userId")
	return []Route{
		{http.MethodGet, "/current", s.roles(anyRole), h.Current},
		{http.MethodPut, "/current", s.roles(anyRole, middleware.ValidateRequest[handler.UpdateUserRequest]()), h.UpdateCurrent},
		{http.MethodDelete, "/current", s.roles(anyRole), h.DeleteCurrent},

		{http.MethodGet, "", s.roles(adminOnly, middleware.ValidateRequest[handler.PageQuery](), s.cache), h.List},
		{http.MethodGet, "/:userId", s.roles(adminOnly, userID), h.Get},
		{http.MethodPut, "/:userId/role", s.roles(adminOnly, userID, middleware.ValidateRequest[handler.RoleRequest]()), h.UpdateRole},
		{http.MethodDelete, "/:userId", s.roles(adminOnly, userID), h.Delete},
	}
}
