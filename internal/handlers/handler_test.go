// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Handlers run against the in-memory stores and a temporary upload dir,
// so no external services are needed.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/service"
	"inkpost/internal/storage"
	"inkpost/internal/store/memory"
	"inkpost/internal/token"
)

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Users      *memory.Users
	Cats       *memory.Categories
	MediaStore *memory.Media
	Disk       *storage.Disk
	Tokens     *token.Service

	Auth       *Auth
	Posts      *Posts
	Categories *Categories
	Media      *Media
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := token.New([]byte("handler-test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	disk, err := storage.NewDisk(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}

	users := memory.NewUsers(bcrypt.MinCost)
	cats := memory.NewCategories()
	posts := memory.NewPosts()
	media := memory.NewMedia()

	return &testEnv{
		Users:      users,
		Cats:       cats,
		MediaStore: media,
		Disk:       disk,
		Tokens:     tokens,
		Auth:       NewAuth(service.NewAccounts(users, tokens)),
		Posts:      NewPosts(service.NewPosts(posts, cats, users)),
		Categories: NewCategories(service.NewCategories(cats)),
		Media:      NewMedia(media, disk, 1<<20),
	}
}

var userSeq atomic.Int64

// user creates a user directly in the store.
func (e *testEnv) user(t *testing.T, role models.Role) *models.User {
	t.Helper()
	n := userSeq.Add(1)
	u, err := e.Users.Create(context.Background(), &models.User{
		Username:  fmt.Sprintf("handler%d", n),
		Email:     fmt.Sprintf("handler%d@example.com", n),
		FirstName: "Hand",
		LastName:  "Ler",
		Role:      role,
	}, "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// category creates a category directly in the store.
func (e *testEnv) category(t *testing.T, name, slug string) *models.Category {
	t.Helper()
	c, err := e.Cats.Create(context.Background(), &models.Category{
		Name:  name,
		Slug:  slug,
		Color: models.DefaultCategoryColor,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// request builds a request with an optional JSON body, authenticated
// user and chi URL params given as key, value pairs.
func request(method, target, body string, user *models.User, params ...string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := req.Context()
	if user != nil {
		ctx = middleware.WithUser(ctx, user)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

// envelope is the decoded response body.
type envelope struct {
	Success    bool               `json:"success"`
	Error      string             `json:"error"`
	Message    string             `json:"message"`
	Token      string             `json:"token"`
	Count      int                `json:"count"`
	User       json.RawMessage    `json:"user"`
	Data       json.RawMessage    `json:"data"`
	Pagination service.Pagination `json:"pagination"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeData[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
