// Package router wires handlers and their ordered stages onto Echo.  Every
// protected route runs authenticate, then authorize, then validation, then
// an optional upload, then its controller; the first stage to return an
// error ends the request.
package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/auth"
	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/storage"
	"github.com/iliyamo/blog-api/internal/validation"
)

// APIPrefix is the mount point of every resource route.
const APIPrefix = "/api/v1"

// Deps are the collaborators built by main.  Redis may be nil.
type Deps struct {
	Cfg       config.Config
	Log       logrus.FieldLogger
	DB        *sql.DB
	Redis     *redis.Client
	Store     storage.BannerStore
	Publisher service.Publisher
}

// Route is one entry of a resource's route table.
type Route struct {
	Method  string
	Path    string
	Stages  []echo.MiddlewareFunc
	Handler echo.HandlerFunc
}

// stages builds the common prefixes of route chains.
type stages struct {
	authn echo.MiddlewareFunc
	users *repository.UserRepo
	log   logrus.FieldLogger
	cache echo.MiddlewareFunc
}

// roles returns authenticate followed by authorize for roles, then extra.
func (s stages) roles(roles []model.Role, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	chain := []echo.MiddlewareFunc{s.authn, middleware.Authorize(s.users, s.log, roles...)}
	return append(chain, extra...)
}

var (
	adminOnly = []model.Role{model.RoleAdmin}
	anyRole   = []model.Role{model.RoleAdmin, model.RoleUser}
)

// New builds the Echo instance serving the whole API.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httperror.Handler(d.Log)
	e.Validator = validation.New()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(corsFor(d.Cfg))
	e.Use(echomw.Secure())
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{MinLength: 1024}))
	e.Use(echomw.BodyLimit("8M"))

	tokens := auth.NewTokenService(d.Cfg.JWTSecret, time.Duration(d.Cfg.AccessTTLMin)*time.Minute)
	e.Use(middleware.Identify(tokens))
	e.Use(middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log))

	users := repository.NewUserRepo(d.DB)
	blogs := repository.NewBlogRepo(d.DB)
	activity := service.NewActivity(d.Publisher, d.Log)

	s := stages{
		authn: middleware.Authenticate(tokens, d.Log),
		users: users,
		log:   d.Log,
		cache: middleware.NewRedisCache(d.Cfg.Cache, d.Redis, d.Log),
	}

	e.GET("/healthz", handler.Health(d.DB))
	api := e.Group(APIPrefix)
	api.GET("", handler.Root)

	authH := handler.NewAuthHandler(d.Cfg, users, repository.NewTokenRepo(d.DB), tokens, activity, d.Log)
	userH := handler.NewUserHandler(d.Cfg, users, blogs, d.Store, activity, d.Log)
	blogH := handler.NewBlogHandler(blogs, users, d.Store, activity, d.Log)
	commentH := handler.NewCommentHandler(repository.NewCommentRepo(d.DB), blogs, users, activity, d.Log)
	likeH := handler.NewLikeHandler(repository.NewLikeRepo(d.DB), blogs, users, activity, d.Log)

	mount(api.Group("/auth"), authRoutes(authH, s))
	mount(api.Group("/users"), userRoutes(userH, s))
	mount(api.Group("/blogs"), blogRoutes(blogH, blogs, d.Store, s))
	mount(api.Group("/likes"), likeRoutes(likeH, s))
	mount(api.Group("/comments"), commentRoutes(commentH, s))
	return e
}

func mount(g *echo.Group, routes []Route) {
	for _, r := range routes {
		g.Add(r.Method, r.Path, r.Handler, r.Stages...)
	}
}

// corsFor allows every origin in development and the whitelist otherwise.
// Credentials are allowed for the refresh cookie.
func corsFor(cfg config.Config) echo.MiddlewareFunc {
	origins := cfg.WhitelistOrigins
	if cfg.IsDevelopment() || len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: !cfg.IsDevelopment() && len(cfg.WhitelistOrigins) > 0,
	})
}
