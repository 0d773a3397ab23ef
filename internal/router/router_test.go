package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fineblog/internal/db"
	"github.com/fineblog/internal/handler"
	"github.com/fineblog/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	thumbs string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := db.EnsureUser(gdb, "root", "root-pw", db.RoleAdmin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := db.EnsureUser(gdb, "alice", "alice-pw", db.RoleAuthor); err != nil {
		t.Fatalf("seed author: %v", err)
	}
	if err := db.EnsureUser(gdb, "bob", "bob-pw", db.RoleAuthor); err != nil {
		t.Fatalf("seed author: %v", err)
	}

	root := t.TempDir()
	thumbs := filepath.Join(root, "thumbnails")
	images := filepath.Join(root, "content-images")
	store := storage.NewLocalStore(storage.Options{ThumbnailDir: thumbs, ContentImageDir: images})

	api := handler.NewAPI(gdb, store, zerolog.Nop(), 5)
	return &testServer{
		engine: SetupRouter(api, "test-secret", thumbs, images),
		db:     gdb,
		thumbs: thumbs,
	}
}

func (s *testServer) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := s.do(req, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", username, rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("login %s: expected session cookie", username)
	}
	return cookies
}

func multipartPost(t *testing.T, fields map[string]string, thumbnail string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if thumbnail != "" {
		part, err := writer.CreateFormFile("thumbnail", thumbnail)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if err := png.Encode(part, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
			t.Fatalf("encode png: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestSetupRouterServesThumbnails(t *testing.T) {
	srv := newTestServer(t)

	if err := os.MkdirAll(srv.thumbs, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := []byte("pretend image")
	if err := os.WriteFile(filepath.Join(srv.thumbs, "example.png"), content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	rr := srv.do(httptest.NewRequest(http.MethodGet, "/thumbnails/example.png", nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != string(content) {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(httptest.NewRequest(http.MethodGet, "/admin/api/posts", nil), nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if rr := srv.do(req, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rr.Code)
	}
}

func TestPostLifecycleThroughRouter(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.login(t, "alice", "alice-pw")

	body, contentType := multipartPost(t, map[string]string{
		"title":        "Hello",
		"description":  "# Hello\n\nFirst post",
		"tag_input":    "Go, go, GO ",
		"is_published": "true",
	}, "cover.png")
	req := httptest.NewRequest(http.MethodPost, "/admin/api/posts", body)
	req.Header.Set("Content-Type", contentType)
	rr := srv.do(req, alice)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}

	var created struct {
		Post struct {
			ID           uint     `json:"id"`
			Slug         string   `json:"slug"`
			ThumbnailURL string   `json:"thumbnail_url"`
			Tags         []string `json:"tags"`
		} `json:"post"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if len(created.Post.Tags) != 3 {
		t.Fatalf("expected 3 case-distinct tags, got %v", created.Post.Tags)
	}
	if !strings.HasPrefix(created.Post.ThumbnailURL, "/thumbnails/") {
		t.Fatalf("unexpected thumbnail url %q", created.Post.ThumbnailURL)
	}

	rr = srv.do(httptest.NewRequest(http.MethodGet, created.Post.ThumbnailURL, nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("thumbnail: expected 200, got %d", rr.Code)
	}

	comment, _ := json.Marshal(map[string]any{"post_id": created.Post.ID, "author_name": "Visitor", "content": "Nice"})
	req = httptest.NewRequest(http.MethodPost, "/comments", bytes.NewReader(comment))
	req.Header.Set("Content-Type", "application/json")
	if rr := srv.do(req, nil); rr.Code != http.StatusCreated {
		t.Fatalf("comment: expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}

	rr = srv.do(httptest.NewRequest(http.MethodGet, "/blog/post/"+created.Post.Slug, nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("show post: expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "First post") || !strings.Contains(rr.Body.String(), "Nice") {
		t.Fatalf("expected rendered body and comment, got %s", rr.Body.String())
	}

	rr = srv.do(httptest.NewRequest(http.MethodGet, "/blog/tag/GO", nil), nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), created.Post.Slug) {
		t.Fatalf("tag listing: got %d %s", rr.Code, rr.Body.String())
	}

	bob := srv.login(t, "bob", "bob-pw")
	deletePath := fmt.Sprintf("/admin/api/posts/%d", created.Post.ID)
	if rr := srv.do(httptest.NewRequest(http.MethodDelete, deletePath, nil), bob); rr.Code != http.StatusForbidden {
		t.Fatalf("bob delete: expected 403, got %d", rr.Code)
	}

	root := srv.login(t, "root", "root-pw")
	if rr := srv.do(httptest.NewRequest(http.MethodDelete, deletePath, nil), root); rr.Code != http.StatusOK {
		t.Fatalf("admin delete: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}

	var links, comments int64
	srv.db.Model(&db.PostTag{}).Count(&links)
	srv.db.Model(&db.Comment{}).Count(&comments)
	if links != 0 || comments != 0 {
		t.Fatalf("expected cascade, got %d links and %d comments", links, comments)
	}
	name := strings.TrimPrefix(created.Post.ThumbnailURL, "/thumbnails/")
	if _, err := os.Stat(filepath.Join(srv.thumbs, name)); !os.IsNotExist(err) {
		t.Fatalf("expected thumbnail removed from disk, stat err: %v", err)
	}
	if rr := srv.do(httptest.NewRequest(http.MethodGet, "/blog/post/"+created.Post.Slug, nil), nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}
