package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/database"
	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/queue"
)

const adminEmail = "admin@blog.io"

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	n       int
}

func (s *memStore) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) DeleteMany(ctx context.Context, keys []string) error {
	for _, k := range keys {
		_ = s.Delete(ctx, k)
	}
	return nil
}

func (s *memStore) NewKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("blog-api/banner-%d", s.n)
}

// bannerKey recovers the object key from the URL memStore hands out.
func bannerKey(b model.Blog) string {
	return strings.TrimPrefix(b.Banner.URL, "https://cdn.test/")
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type testAPI struct {
	t     *testing.T
	e     *echo.Echo
	db    *sql.DB
	store *memStore
	pub   *recordingPublisher
	hook  *test.Hook
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	cfg := config.Config{
		Env:                 config.EnvTest,
		JWTSecret:           "test-secret",
		AccessTTLMin:        15,
		RefreshTTLDays:      7,
		BcryptCost:          bcrypt.MinCost,
		WhitelistAdminsMail: []string{adminEmail, "second@blog.io"},
	}
	store := &memStore{objects: map[string]string{}}
	pub := &recordingPublisher{}
	e := New(Deps{Cfg: cfg, Log: log, DB: db, Store: store, Publisher: pub})
	return &testAPI{t: t, e: e, db: db, store: store, pub: pub, hook: hook}
}

// do sends a request with an optional bearer token and cookies.
func (a *testAPI) do(method, path, token string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) json(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return a.do(method, path, token, r, echo.MIMEApplicationJSON)
}

type session struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"accessToken"`
	cookie      *http.Cookie
}

func (a *testAPI) register(email, role string) session {
	a.t.Helper()
	body := `{"email":"` + email + `","password":"password123"`
	if role != "" {
		body += `,"role":"` + role + `"`
	}
	rec := a.json(http.MethodPost, "/api/v1/auth/register", "", body+"}")
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var s session
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &s))
	s.cookie = refreshCookie(rec)
	return s
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == handler.RefreshCookie {
			return c
		}
	}
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 9))))
	return buf.Bytes()
}

// blogForm builds a multipart body; a nil banner leaves the file part out.
func blogForm(t *testing.T, fields map[string]string, banner []byte) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if banner != nil {
		fw, err := mw.CreateFormFile("banner_image", "banner.png")
		require.NoError(t, err)
		_, err = fw.Write(banner)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func (a *testAPI) createBlog(token, title string, status model.BlogStatus) model.Blog {
	a.t.Helper()
	body, ct := blogForm(a.t, map[string]string{
		"title":   title,
		"content": "<p>Hello <b>world</b></p><script>alert(1)</script>",
		"status":  string(status),
	}, pngBytes(a.t))
	rec := a.do(http.MethodPost, "/api/v1/blogs", token, body, ct)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Blog model.Blog `json:"blog"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Blog
}

func (a *testAPI) getBlog(token, slug string) model.Blog {
	a.t.Helper()
	rec := a.json(http.MethodGet, "/api/v1/blogs/"+slug, token, "")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Blog model.Blog `json:"blog"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Blog
}

func (a *testAPI) count(table string) int {
	a.t.Helper()
	var n int
	require.NoError(a.t, a.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// denials returns the audit entries of refused operations.
func (a *testAPI) denials() []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range a.hook.AllEntries() {
		if e.Data[logging.FieldOutcome] == "denied" {
			out = append(out, e)
		}
	}
	return out
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) httperror.Body {
	t.Helper()
	var b httperror.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	return b
}

func TestRootAndHealth(t *testing.T) {
	a := newTestAPI(t)

	rec := a.json(http.MethodGet, "/api/v1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var root map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))
	assert.Equal(t, "API is Live", root["message"])
	assert.Equal(t, "ok", root["status"])
	assert.NotEmpty(t, root["timeStamp"])

	rec = a.json(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = a.json(http.MethodGet, "/api/v1/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httperror.CodeNotFound, errorBody(t, rec).Code)
}

func TestUnauthenticatedCreateBlogIsRejected(t *testing.T) {
	a := newTestAPI(t)
	body, ct := blogForm(t, map[string]string{"title": "T", "content": "C"}, pngBytes(t))

	rec := a.do(http.MethodPost, "/api/v1/blogs", "", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	b := errorBody(t, rec)
	assert.Equal(t, httperror.CodeAuthentication, b.Code)
	assert.Equal(t, "Access denied. No token provided.", b.Message)
	assert.Zero(t, a.count("blogs"))
	assert.Empty(t, a.store.objects)

	rec = a.do(http.MethodPost, "/api/v1/blogs", "garbage", strings.NewReader("{}"), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid access token.", errorBody(t, rec).Message)
}

func TestUserRoleOnAdminRouteIsForbidden(t *testing.T) {
	a := newTestAPI(t)
	user := a.register("reader@blog.io", "")
	assert.Equal(t, model.RoleUser, user.User.Role)

	body, ct := blogForm(t, map[string]string{"title": "T", "content": "C"}, pngBytes(t))
	rec := a.do(http.MethodPost, "/api/v1/blogs", user.AccessToken, body, ct)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, httperror.CodeForbidden, errorBody(t, rec).Code)
	assert.Zero(t, a.count("blogs"))
	assert.Empty(t, a.store.objects)

	denials := a.denials()
	require.Len(t, denials, 1)
	assert.Equal(t, logrus.WarnLevel, denials[0].Level)
	assert.Equal(t, user.User.ID, denials[0].Data[logging.FieldActor])
	assert.Equal(t, "/api/v1/blogs", denials[0].Data[logging.FieldResource])

	rec = a.json(http.MethodGet, "/api/v1/users", user.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, a.denials(), 2)
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	a := newTestAPI(t)

	rec := a.json(http.MethodPost, "/api/v1/auth/register", "", `{"email":"mallory@blog.io","password":"password123","role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, a.denials(), 1)

	rec = a.json(http.MethodPost, "/api/v1/auth/register", "", `{"email":"bad","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b := errorBody(t, rec)
	assert.Equal(t, httperror.CodeValidation, b.Code)
	assert.Contains(t, b.Errors, "email")
	assert.Contains(t, b.Errors, "password")

	admin := a.register(adminEmail, "admin")
	assert.Equal(t, model.RoleAdmin, admin.User.Role)
	assert.True(t, strings.HasPrefix(admin.User.Username, "user-"))
	require.NotNil(t, admin.cookie)
	assert.True(t, admin.cookie.HttpOnly)

	rec = a.json(http.MethodPost, "/api/v1/auth/register", "", `{"email":"ADMIN@blog.io","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.json(http.MethodPost, "/api/v1/auth/login", "", `{"email":"admin@blog.io","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.json(http.MethodPost, "/api/v1/auth/login", "", `{"email":"nobody@blog.io","password":"password123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.json(http.MethodPost, "/api/v1/auth/login", "", `{"email":"admin@blog.io","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var login session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, admin.User.ID, login.User.ID)
	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)

	rec = a.do(http.MethodPost, "/api/v1/auth/refresh-token", "", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	rec = a.json(http.MethodGet, "/api/v1/users/current", refreshed.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/auth/refresh-token", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/auth/logout", login.AccessToken, nil, "", cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := refreshCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	rec = a.do(http.MethodPost, "/api/v1/auth/refresh-token", "", nil, "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the registration session is still valid
	rec = a.do(http.MethodPost, "/api/v1/auth/refresh-token", "", nil, "", admin.cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, a.pub.types(), queue.EventUserRegistered)
	assert.Contains(t, a.pub.types(), queue.EventUserLoggedOut)
}

func TestLikeTwiceThenUnlike(t *testing.T) {
	a := newTestAPI(t)
	admin := a.register(adminEmail, "admin")
	blog := a.createBlog(admin.AccessToken, "Likeable", model.BlogPublished)
	assert.Zero(t, blog.LikesCount)

	path := "/api/v1/likes/blog/" + blog.ID
	rec := a.json(http.MethodPost, path, admin.AccessToken, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"likesCount":1}`, rec.Body.String())

	rec = a.json(http.MethodPost, path, admin.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b := errorBody(t, rec)
	assert.Equal(t, httperror.CodeBadRequest, b.Code)
	assert.Equal(t, "You have already liked this blog.", b.Message)
	assert.Equal(t, 1, a.getBlog(admin.AccessToken, blog.Slug).LikesCount)

	rec = a.json(http.MethodDelete, path, admin.AccessToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, a.getBlog(admin.AccessToken, blog.Slug).LikesCount)

	rec = a.json(http.MethodDelete, path, admin.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, a.getBlog(admin.AccessToken, blog.Slug).LikesCount)

	rec = a.json(http.MethodPost, "/api/v1/likes/blog/6f1b8a7e-3c2d-4e5f-9a0b-1c2d3e4f5a6b", admin.AccessToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.json(http.MethodPost, "/api/v1/likes/blog/not-a-uuid", admin.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperror.CodeValidation, errorBody(t, rec).Code)
}

func TestBlogOwnerDeletesOwnCommentAsUser(t *testing.T) {
	a := newTestAPI(t)
	owner := a.register(adminEmail, "admin")
	boss := a.register("second@blog.io", "admin")
	blog := a.createBlog(owner.AccessToken, "Owned", model.BlogPublished)

	// demoting applies to the token the owner already holds
	rec := a.json(http.MethodPut, "/api/v1/users/"+owner.User.ID+"/role", boss.AccessToken, `{"role":"user"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.json(http.MethodPost, "/api/v1/comments/blog/"+blog.ID, owner.AccessToken, `{"content":"first!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Comment model.Comment `json:"comment"`
		Blog    struct {
			ID            string `json:"id"`
			CommentsCount int    `json:"commentsCount"`
		} `json:"blog"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Blog.CommentsCount)
	assert.Equal(t, owner.User.ID, created.Comment.UserID)

	rec = a.json(http.MethodDelete, "/api/v1/comments/"+created.Comment.ID, owner.AccessToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Zero(t, a.getBlog(owner.AccessToken, blog.Slug).CommentsCount)
	assert.Empty(t, a.denials())

	// the owner is no longer allowed to write blogs
	rec = a.json(http.MethodDelete, "/api/v1/blogs/"+blog.ID, owner.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, a.count("blogs"))
}

func TestCommentOwnership(t *testing.T) {
	a := newTestAPI(t)
	admin := a.register(adminEmail, "admin")
	alice := a.register("alice@blog.io", "")
	bob := a.register("bob@blog.io", "")
	blog := a.createBlog(admin.AccessToken, "Discuss", model.BlogPublished)

	rec := a.json(http.MethodPost, "/api/v1/comments/blog/"+blog.ID, alice.AccessToken, `{"content":"<em>nice</em><script>x()</script>"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Comment model.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "<em>nice</em>", created.Comment.Content)

	rec = a.json(http.MethodDelete, "/api/v1/comments/"+created.Comment.ID, bob.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, a.denials(), 1)
	assert.Equal(t, bob.User.ID, a.denials()[0].Data[logging.FieldActor])
	assert.Equal(t, 1, a.getBlog(bob.AccessToken, blog.Slug).CommentsCount)

	rec = a.json(http.MethodGet, "/api/v1/comments/blog/"+blog.ID, bob.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Comment.ID)

	rec = a.json(http.MethodDelete, "/api/v1/comments/"+created.Comment.ID, admin.AccessToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, a.getBlog(bob.AccessToken, blog.Slug).CommentsCount)

	rec = a.json(http.MethodPost, "/api/v1/comments/blog/"+blog.ID, alice.AccessToken, `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlogLifecycle(t *testing.T) {
	a := newTestAPI(t)
	admin := a.register(adminEmail, "admin")
	reader := a.register("reader@blog.io", "")

	published := a.createBlog(admin.AccessToken, "Hello World!", model.BlogPublished)
	assert.True(t, strings.HasPrefix(published.Slug, "hello-world-"))
	assert.Equal(t, "<p>Hello <b>world</b></p>", published.Content)
	assert.Equal(t, 16, published.Banner.Width)
	assert.Equal(t, 9, published.Banner.Height)
	assert.NotNil(t, published.PublishedAt)
	require.Len(t, a.store.objects, 1)

	draft := a.createBlog(admin.AccessToken, "Secret", model.BlogDraft)
	assert.Equal(t, model.BlogDraft, draft.Status)

	// readers see published blogs only
	rec := a.json(http.MethodGet, "/api/v1/blogs", reader.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Limit int          `json:"limit"`
		Total int          `json:"total"`
		Blogs []model.Blog `json:"blogs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 20, list.Limit)
	assert.Equal(t, 1, list.Total)

	rec = a.json(http.MethodGet, "/api/v1/blogs/user/"+admin.User.ID+"?limit=1", admin.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Blogs, 1)

	rec = a.json(http.MethodGet, "/api/v1/blogs?limit=500", admin.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// drafts are forbidden to readers
	rec = a.json(http.MethodGet, "/api/v1/blogs/"+draft.Slug, reader.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, handler.MsgDraft, errorBody(t, rec).Message)
	assert.Len(t, a.denials(), 1)
	got := a.getBlog(admin.AccessToken, draft.Slug)
	assert.Equal(t, 1, got.ViewsCount)
	require.NotNil(t, got.Author)
	assert.Equal(t, admin.User.Email, got.Author.Email)

	rec = a.json(http.MethodGet, "/api/v1/blogs/missing-slug", reader.AccessToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// a rejected update keeps the stored banner
	body, ct := blogForm(t, map[string]string{"content": "<script>x()</script>"}, pngBytes(t))
	rec = a.do(http.MethodPut, "/api/v1/blogs/"+draft.ID, admin.AccessToken, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, a.store.objects, 2)
	assert.True(t, a.store.has(bannerKey(draft)))
	assert.Equal(t, draft.Banner.URL, a.getBlog(admin.AccessToken, draft.Slug).Banner.URL)

	// update: new banner replaces the old object, status publishes
	body, ct = blogForm(t, map[string]string{"title": "Secret no more", "status": "published"}, pngBytes(t))
	rec = a.do(http.MethodPut, "/api/v1/blogs/"+draft.ID, admin.AccessToken, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Blog model.Blog `json:"blog"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Secret no more", updated.Blog.Title)
	assert.Equal(t, model.BlogPublished, updated.Blog.Status)
	assert.NotEqual(t, draft.Banner.URL, updated.Blog.Banner.URL)
	assert.Equal(t, draft.Content, updated.Blog.Content)
	assert.Len(t, a.store.objects, 2)
	assert.False(t, a.store.has(bannerKey(draft)))

	rec = a.json(http.MethodPut, "/api/v1/blogs/"+draft.ID, admin.AccessToken, `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// missing banner on create
	body, ct = blogForm(t, map[string]string{"title": "No banner", "content": "x"}, nil)
	rec = a.do(http.MethodPost, "/api/v1/blogs", admin.AccessToken, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2, a.count("blogs"))

	// delete removes the banner and cascades comments
	rec = a.json(http.MethodPost, "/api/v1/comments/blog/"+published.ID, reader.AccessToken, `{"content":"bye"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.json(http.MethodDelete, "/api/v1/blogs/"+published.ID, admin.AccessToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, a.count("blogs"))
	assert.Zero(t, a.count("comments"))
	assert.Len(t, a.store.objects, 1)

	rec = a.json(http.MethodDelete, "/api/v1/blogs/"+published.ID, admin.AccessToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserManagement(t *testing.T) {
	a := newTestAPI(t)
	admin := a.register(adminEmail, "admin")
	reader := a.register("reader@blog.io", "")

	rec := a.json(http.MethodPut, "/api/v1/users/current", reader.AccessToken,
		`{"firstName":"Ada","website":"https://ada.dev","username":"ada"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		User model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Ada", out.User.FirstName)
	assert.Equal(t, "ada", out.User.Username)
	assert.Equal(t, "https://ada.dev", out.User.SocialLinks.Website)

	rec = a.json(http.MethodPut, "/api/v1/users/current", reader.AccessToken, `{"email":"admin@blog.io"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.json(http.MethodPut, "/api/v1/users/current", reader.AccessToken, `{"website":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.json(http.MethodGet, "/api/v1/users?limit=10", admin.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int          `json:"total"`
		Users []model.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.json(http.MethodGet, "/api/v1/users/"+reader.User.ID, admin.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.json(http.MethodGet, "/api/v1/users/6f1b8a7e-3c2d-4e5f-9a0b-1c2d3e4f5a6b", admin.AccessToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.json(http.MethodPut, "/api/v1/users/"+reader.User.ID+"/role", admin.AccessToken, `{"role":"root"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// an admin deleting themselves takes their blogs and banners along
	blog := a.createBlog(admin.AccessToken, "Gone soon", model.BlogPublished)
	rec = a.json(http.MethodPost, "/api/v1/likes/blog/"+blog.ID, reader.AccessToken, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.json(http.MethodDelete, "/api/v1/users/current", admin.AccessToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, a.count("blogs"))
	assert.Zero(t, a.count("likes"))
	assert.Empty(t, a.store.objects)

	// the token outlives the user but authorization fails
	rec = a.json(http.MethodGet, "/api/v1/users/current", admin.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Contains(t, a.pub.types(), queue.EventUserDeleted)
}

func TestRegisterRollsBackWhenSessionFails(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.db.Exec("DROP TABLE refresh_tokens")
	require.NoError(t, err)

	rec := a.json(http.MethodPost, "/api/v1/auth/register", "", `{"email":"late@blog.io","password":"password123"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, httperror.CodeServer, errorBody(t, rec).Code)
	assert.Zero(t, a.count("users"))
	assert.NotContains(t, a.pub.types(), queue.EventUserRegistered)
}

func TestPasswordLongerThanBcryptAccepts(t *testing.T) {
	a := newTestAPI(t)

	// 40 characters pass validation but take 80 bytes
	long := strings.Repeat("é", 40)
	rec := a.json(http.MethodPost, "/api/v1/auth/register", "", `{"email":"long@blog.io","password":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b := errorBody(t, rec)
	assert.Equal(t, httperror.CodeValidation, b.Code)
	assert.Contains(t, b.Errors, "password")
	assert.Zero(t, a.count("users"))

	user := a.register("short@blog.io", "")
	rec = a.json(http.MethodPut, "/api/v1/users/current", user.AccessToken, `{"password":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
