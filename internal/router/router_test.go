// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains and full request flows against the in-memory stores.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"inkpost/internal/handlers"
	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/service"
	"inkpost/internal/storage"
	"inkpost/internal/store/memory"
	"inkpost/internal/token"
)

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

// server is a fully wired API backed by memory stores.
type server struct {
	*httptest.Server
	users     *memory.Users
	uploadDir string
}

func newServer(t *testing.T, limit func(http.Handler) http.Handler) *server {
	t.Helper()
	tokens, err := token.New([]byte("router-test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	disk, err := storage.NewDisk(dir, "/uploads")
	if err != nil {
		t.Fatal(err)
	}

	users := memory.NewUsers(bcrypt.MinCost)
	cats := memory.NewCategories()
	accounts := service.NewAccounts(users, tokens)

	r := New(Handlers{
		Auth:       handlers.NewAuth(accounts),
		Posts:      handlers.NewPosts(service.NewPosts(memory.NewPosts(), cats, users)),
		Categories: handlers.NewCategories(service.NewCategories(cats)),
		Media:      handlers.NewMedia(memory.NewMedia(), disk, 1<<20),
	}, Options{
		Resolver:   accounts,
		RateLimit:  limit,
		CORSOrigin: "*",
		UploadDir:  dir,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &server{Server: srv, users: users, uploadDir: dir}
}

type reply struct {
	status int
	header http.Header
	body   map[string]json.RawMessage
}

func (s *server) do(t *testing.T, method, path, token, body string) reply {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	out := reply{status: resp.StatusCode, header: resp.Header}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return out
}

func (rp reply) str(t *testing.T, key string) string {
	t.Helper()
	var s string
	if raw, ok := rp.body[key]; ok {
		if err := json.Unmarshal(raw, &s); err != nil {
			t.Fatalf("field %s: %v", key, err)
		}
	}
	return s
}

func (rp reply) field(t *testing.T, key, sub string) string {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(rp.body[key], &m); err != nil {
		t.Fatalf("field %s: %v", key, err)
	}
	var s string
	json.Unmarshal(m[sub], &s)
	return s
}

func (s *server) login(t *testing.T, email, password string) string {
	t.Helper()
	rp := s.do(t, http.MethodPost, "/api/auth/login", "", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	if rp.status != http.StatusOK {
		t.Fatalf("login %s: status %d", email, rp.status)
	}
	return rp.str(t, "token")
}

func TestIndexAndNotFound(t *testing.T) {
	s := newServer(t, nil)

	rp := s.do(t, http.MethodGet, "/", "", "")
	if rp.status != http.StatusOK || rp.str(t, "version") != Version {
		t.Errorf("index: %d %v", rp.status, rp.body)
	}
	if rp.header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL+"/api/categories", nil)
	req.Header.Set("Origin", "https://blog.example.com")
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/api/unknown"},
		{http.MethodPatch, "/api/posts"},
	} {
		rp := s.do(t, tc.method, tc.path, "", "")
		if rp.status != http.StatusNotFound || rp.str(t, "error") != msgRouteNotFound {
			t.Errorf("%s %s: %d %v", tc.method, tc.path, rp.status, rp.body)
		}
	}
}

func TestBlogFlow(t *testing.T) {
	s := newServer(t, nil)
	ctx := context.Background()

	if _, err := s.users.Create(ctx, &models.User{
		Username: "admin", Email: "admin@example.com", FirstName: "Ad", LastName: "Min", Role: models.RoleAdmin,
	}, "adminpass"); err != nil {
		t.Fatal(err)
	}
	adminToken := s.login(t, "admin@example.com", "adminpass")

	rp := s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"writer","email":"writer@example.com","password":"secret1","firstName":"Wri","lastName":"Ter"}`)
	if rp.status != http.StatusCreated {
		t.Fatalf("register: %d %v", rp.status, rp.body)
	}
	writerToken := rp.str(t, "token")

	rp = s.do(t, http.MethodGet, "/api/auth/me", writerToken, "")
	if rp.status != http.StatusOK || rp.field(t, "user", "username") != "writer" {
		t.Fatalf("me: %d %v", rp.status, rp.body)
	}

	// Category writes need an admin.
	rp = s.do(t, http.MethodPost, "/api/categories", writerToken, `{"name":"Go Tips"}`)
	if rp.status != http.StatusForbidden {
		t.Errorf("writer category create: got %d", rp.status)
	}
	rp = s.do(t, http.MethodPost, "/api/categories", adminToken, `{"name":"Go Tips"}`)
	if rp.status != http.StatusCreated {
		t.Fatalf("admin category create: %d %v", rp.status, rp.body)
	}
	catID := rp.field(t, "data", "id")

	rp = s.do(t, http.MethodPost, "/api/posts", "", `{}`)
	if rp.status != http.StatusUnauthorized {
		t.Errorf("anonymous post create: got %d", rp.status)
	}

	rp = s.do(t, http.MethodPost, "/api/posts", writerToken, fmt.Sprintf(
		`{"title":"Hello Go","content":"# Hi\n\nFirst post body.","slug":"hello-go","category":%q,"isPublished":true}`, catID))
	if rp.status != http.StatusCreated {
		t.Fatalf("post create: %d %v", rp.status, rp.body)
	}
	postID := rp.field(t, "data", "id")

	rp = s.do(t, http.MethodGet, "/api/categories/go-tips", "", "")
	var cat models.Category
	json.Unmarshal(rp.body["data"], &cat)
	if cat.PostCount != 1 {
		t.Errorf("postCount after create: got %d", cat.PostCount)
	}

	rp = s.do(t, http.MethodGet, "/api/posts/hello-go", "", "")
	if rp.status != http.StatusOK || !strings.Contains(rp.field(t, "data", "contentHtml"), "<h1") {
		t.Errorf("get by slug: %d %v", rp.status, rp.body)
	}

	rp = s.do(t, http.MethodPost, "/api/posts/"+postID+"/comments", adminToken, `{"content":"Welcome!"}`)
	if rp.status != http.StatusOK {
		t.Errorf("comment: %d %v", rp.status, rp.body)
	}

	rp = s.do(t, http.MethodGet, "/api/posts?limit=5", "", "")
	var page service.Pagination
	json.Unmarshal(rp.body["pagination"], &page)
	if rp.status != http.StatusOK || page.Total != 1 {
		t.Errorf("list: %d %+v", rp.status, page)
	}

	rp = s.do(t, http.MethodDelete, "/api/posts/"+postID, writerToken, "")
	if rp.status != http.StatusOK {
		t.Errorf("delete: %d %v", rp.status, rp.body)
	}
	rp = s.do(t, http.MethodGet, "/api/categories/go-tips", "", "")
	json.Unmarshal(rp.body["data"], &cat)
	if cat.PostCount != 0 {
		t.Errorf("postCount after delete: got %d", cat.PostCount)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t, nil)

	tests := []struct {
		name, method, path, token, want string
	}{
		{"missing", http.MethodGet, "/api/auth/me", "", "No token provided, authorization denied"},
		{"garbage", http.MethodGet, "/api/auth/me", "garbage", "Token is not valid"},
		{"upload", http.MethodPost, "/api/uploads", "", "No token provided, authorization denied"},
		{"category delete", http.MethodDelete, "/api/categories/x", "", "No token provided, authorization denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := s.do(t, tt.method, tt.path, tt.token, "")
			if rp.status != http.StatusUnauthorized || rp.str(t, "error") != tt.want {
				t.Errorf("got %d %v", rp.status, rp.body)
			}
		})
	}
}

func TestServesUploadedFiles(t *testing.T) {
	s := newServer(t, nil)
	path := filepath.Join(s.uploadDir, "media", "hello.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := s.Client().Get(s.URL + "/uploads/media/hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "hi" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Security-Policy"); got != "default-src 'none'; sandbox" {
		t.Errorf("CSP: got %q", got)
	}
}

func TestServesStoredSVGAsDownload(t *testing.T) {
	s := newServer(t, nil)
	path := filepath.Join(s.uploadDir, "media", "old.svg")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := s.Client().Get(s.URL + "/uploads/media/old.svg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != "attachment" {
		t.Errorf("Content-Disposition: got %q, want attachment", got)
	}
	if got := resp.Header.Get("Content-Security-Policy"); got != "default-src 'none'; sandbox" {
		t.Errorf("CSP: got %q", got)
	}
}

func TestRateLimitApplies(t *testing.T) {
	rl := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(rl.Stop)
	s := newServer(t, rl.Middleware)

	for i := 0; i < 2; i++ {
		if rp := s.do(t, http.MethodGet, "/health", "", ""); rp.status != http.StatusOK {
			t.Fatalf("request %d: got %d", i, rp.status)
		}
	}
	rp := s.do(t, http.MethodGet, "/health", "", "")
	if rp.status != http.StatusTooManyRequests {
		t.Errorf("third request: got %d", rp.status)
	}
	if rp.str(t, "error") != middleware.MsgRateLimited {
		t.Errorf("error: %v", rp.body)
	}
}
