package handler

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
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fineblog/internal/db"
	"github.com/fineblog/internal/service"
	"github.com/fineblog/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	api    *API
	db     *gorm.DB
	thumbs string
	owner  db.User
	other  db.User
	admin  db.User
}

func setupTestDB(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	env := &testEnv{db: gdb}
	env.owner = seedUser(t, gdb, "alice", "Alice", db.RoleAuthor)
	env.other = seedUser(t, gdb, "bob", "Bob", db.RoleAuthor)
	env.admin = seedUser(t, gdb, "root", "", db.RoleAdmin)

	dir := t.TempDir()
	env.thumbs = filepath.Join(dir, "thumbnails")
	store := storage.NewLocalStore(storage.Options{
		ThumbnailDir:    env.thumbs,
		ContentImageDir: filepath.Join(dir, "content-images"),
	})
	env.api = NewAPI(gdb, store, zerolog.Nop(), 5)

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return env
}

func seedUser(t *testing.T, gdb *gorm.DB, username, firstName, role string) db.User {
	t.Helper()
	if err := db.EnsureUser(gdb, username, username+"-pw", role); err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	var user db.User
	if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
		t.Fatalf("failed to load user %s: %v", username, err)
	}
	if firstName != "" {
		user.FirstName = firstName
		if err := gdb.Save(&user).Error; err != nil {
			t.Fatalf("failed to update user %s: %v", username, err)
		}
	}
	return user
}

func (e *testEnv) seedPost(t *testing.T, title string, published bool, tags ...string) db.Post {
	t.Helper()
	post := db.Post{
		Title:       title,
		Slug:        service.Slugify(title),
		Description: "# " + title + "\n\nBody",
		IsPublished: published,
		UserID:      e.owner.ID,
	}
	if err := e.db.Create(&post).Error; err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}
	for _, name := range tags {
		tag := db.Tag{Name: name}
		if err := e.db.Where("name = ?", name).FirstOrCreate(&tag).Error; err != nil {
			t.Fatalf("failed to seed tag: %v", err)
		}
		if err := e.db.Create(&db.PostTag{PostID: post.ID, TagID: tag.ID}).Error; err != nil {
			t.Fatalf("failed to link tag: %v", err)
		}
	}
	return post
}

// newContext builds a test context acting as user; a zero user means a visitor.
func newContext(req *http.Request, user db.User) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if user.ID != 0 {
		c.Set(principalContextKey, service.PrincipalFromUser(user))
	}
	return c, w
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return payload
}

func TestCreatePostWithTags(t *testing.T) {
	env := setupTestDB(t)

	body, contentType := multipartBody(t, map[string]string{
		"title":        "Test Post",
		"description":  "# Test Post\nContent",
		"tag_input":    "Go, web ,Go",
		"is_published": "true",
	}, "thumbnail", "cover.png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/admin/api/posts", body)
	req.Header.Set("Content-Type", contentType)

	c, w := newContext(req, env.owner)
	env.api.CreatePost(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", w.Code, w.Body.String())
	}

	var created db.Post
	if err := env.db.Preload("Tags").First(&created).Error; err != nil {
		t.Fatalf("failed to load created post: %v", err)
	}
	if created.Title != "Test Post" || !strings.HasPrefix(created.Slug, "test-post-") {
		t.Fatalf("unexpected post: %+v", created)
	}
	if created.UserID != env.owner.ID {
		t.Fatalf("expected owner %d, got %d", env.owner.ID, created.UserID)
	}
	if len(created.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(created.Tags))
	}
	if created.ThumbnailURL == "" {
		t.Fatalf("expected stored thumbnail name")
	}
	if _, err := os.Stat(filepath.Join(env.thumbs, created.ThumbnailURL)); err != nil {
		t.Fatalf("expected thumbnail on disk: %v", err)
	}
	if _, ok := decodeBody(t, w)["warning"]; ok {
		t.Fatalf("did not expect a warning")
	}
}

func TestCreatePostRejectsInvalidThumbnail(t *testing.T) {
	env := setupTestDB(t)

	body, contentType := multipartBody(t, map[string]string{
		"title":     "Bad Thumb",
		"tag_input": "go",
	}, "thumbnail", "payload.exe", []byte("MZ not an image"))
	req := httptest.NewRequest(http.MethodPost, "/admin/api/posts", body)
	req.Header.Set("Content-Type", contentType)

	c, w := newContext(req, env.owner)
	env.api.CreatePost(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	fields, _ := decodeBody(t, w)["fields"].(map[string]any)
	if _, ok := fields["Thumbnail"]; !ok {
		t.Fatalf("expected Thumbnail field error, got %v", fields)
	}

	var posts, tags int64
	env.db.Model(&db.Post{}).Count(&posts)
	env.db.Model(&db.Tag{}).Count(&tags)
	if posts != 0 || tags != 0 {
		t.Fatalf("expected nothing persisted, got %d posts and %d tags", posts, tags)
	}
}

func TestCreatePostRequiresTitle(t *testing.T) {
	env := setupTestDB(t)

	payload, _ := json.Marshal(map[string]any{"title": "   ", "description": "body"})
	req := httptest.NewRequest(http.MethodPost, "/admin/api/posts", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	c, w := newContext(req, env.owner)
	env.api.CreatePost(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	fields, _ := decodeBody(t, w)["fields"].(map[string]any)
	if _, ok := fields["Title"]; !ok {
		t.Fatalf("expected Title field error, got %v", fields)
	}
}

func TestCreatePostRequiresPrincipal(t *testing.T) {
	env := setupTestDB(t)

	payload, _ := json.Marshal(map[string]any{"title": "Anonymous"})
	req := httptest.NewRequest(http.MethodPost, "/admin/api/posts", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	c, w := newContext(req, db.User{})
	env.api.CreatePost(c)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestUpdatePostReplacesTags(t *testing.T) {
	env := setupTestDB(t)
	post := env.seedPost(t, "Original", false, "old", "keep")

	payload, _ := json.Marshal(map[string]any{
		"title":        "Updated",
		"description":  "new body",
		"tag_input":    "keep, fresh",
		"is_published": true,
	})
	req := httptest.NewRequest(http.MethodPut, "/admin/api/posts/"+strconv.Itoa(int(post.ID)), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	c, w := newContext(req, env.owner)
	c.Params = gin.Params{gin.Param{Key: "id", Value: strconv.Itoa(int(post.ID))}}
	env.api.UpdatePost(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}

	var updated db.Post
	if err := env.db.Preload("Tags").First(&updated, post.ID).Error; err != nil {
		t.Fatalf("failed to load updated post: %v", err)
	}
	if updated.Title != "Updated" || !updated.IsPublished {
		t.Fatalf("unexpected post after update: %+v", updated)
	}
	if updated.Slug != post.Slug {
		t.Fatalf("expected slug %q to stay stable, got %q", post.Slug, updated.Slug)
	}
	names := updated.TagNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 tags, got %v", names)
	}
	for _, name := range names {
		if name == "old" {
			t.Fatalf("expected tag old to be unlinked, got %v", names)
		}
	}
}

func TestUpdatePostForbiddenForOtherAuthor(t *testing.T) {
	env := setupTestDB(t)
	post := env.seedPost(t, "Mine", true, "go")

	payload, _ := json.Marshal(map[string]any{"title": "Hijacked"})
	req := httptest.NewRequest(http.MethodPut, "/admin/api/posts/"+strconv.Itoa(int(post.ID)), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	c, w := newContext(req, env.other)
	c.Params = gin.Params{gin.Param{Key: "id", Value: strconv.Itoa(int(post.ID))}}
	env.api.UpdatePost(c)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Code)
	}

	var stored db.Post
	env.db.First(&stored, post.ID)
	if stored.Title != "Mine" {
		t.Fatalf("expected title unchanged, got %q", stored.Title)
	}
}

func TestGetPostRejectsInvalidID(t *testing.T) {
	env := setupTestDB(t)

	c, w := newContext(httptest.NewRequest(http.MethodGet, "/admin/api/posts/abc", nil), env.owner)
	c.Params = gin.Params{gin.Param{Key: "id", Value: "abc"}}
	env.api.GetPost(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestGetPostReturnsEditForm(t *testing.T) {
	env := setupTestDB(t)
	post := env.seedPost(t, "Editable", false, "b", "a")

	c, w := newContext(httptest.NewRequest(http.MethodGet, "/", nil), env.owner)
	c.Params = gin.Params{gin.Param{Key: "id", Value: strconv.Itoa(int(post.ID))}}
	env.api.GetPost(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	postData, _ := decodeBody(t, w)["post"].(map[string]any)
	if postData["tag_input"] == "" || postData["description"] == nil {
		t.Fatalf("expected tag input and body in edit form, got %v", postData)
	}
}

func TestListPostsScopesToOwner(t *testing.T) {
	env := setupTestDB(t)
	env.seedPost(t, "Alice One", true)
	env.seedPost(t, "Alice Two", false)
	foreign := db.Post{Title: "Bob Post", Slug: "bob-post", UserID: env.other.ID}
	if err := env.db.Create(&foreign).Error; err != nil {
		t.Fatalf("failed to seed foreign post: %v", err)
	}

	c, w := newContext(httptest.NewRequest(http.MethodGet, "/admin/api/posts", nil), env.owner)
	env.api.ListPosts(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if total := decodeBody(t, w)["total"]; total != float64(2) {
		t.Fatalf("expected 2 own posts, got %v", total)
	}

	c, w = newContext(httptest.NewRequest(http.MethodGet, "/admin/api/posts", nil), env.admin)
	env.api.ListPosts(c)
	if total := decodeBody(t, w)["total"]; total != float64(3) {
		t.Fatalf("expected admin to see 3 posts, got %v", total)
	}
}

func TestDeletePost(t *testing.T) {
	env := setupTestDB(t)
	post := env.seedPost(t, "Delete Me", true, "go")
	if err := env.db.Create(&db.Comment{PostID: post.ID, AuthorName: "Visitor", Content: "hi"}).Error; err != nil {
		t.Fatalf("failed to seed comment: %v", err)
	}

	c, w := newContext(httptest.NewRequest(http.MethodDelete, "/admin/api/posts/"+strconv.Itoa(int(post.ID)), nil), env.owner)
	c.Params = gin.Params{gin.Param{Key: "id", Value: strconv.Itoa(int(post.ID))}}
	env.api.DeletePost(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var posts, links, comments, tags int64
	env.db.Model(&db.Post{}).Where("id = ?", post.ID).Count(&posts)
	env.db.Model(&db.PostTag{}).Count(&links)
	env.db.Model(&db.Comment{}).Count(&comments)
	env.db.Model(&db.Tag{}).Count(&tags)
	if posts != 0 || links != 0 || comments != 0 {
		t.Fatalf("expected post, links and comments removed, got %d/%d/%d", posts, links, comments)
	}
	if tags != 1 {
		t.Fatalf("expected tag to survive as orphan, got %d", tags)
	}
}

func TestDeletePostNotFound(t *testing.T) {
	env := setupTestDB(t)

	c, w := newContext(httptest.NewRequest(http.MethodDelete, "/admin/api/posts/42", nil), env.admin)
	c.Params = gin.Params{gin.Param{Key: "id", Value: "42"}}
	env.api.DeletePost(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
