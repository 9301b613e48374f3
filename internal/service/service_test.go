// service_test.go provides shared fixtures for the service tests. Every
// test runs against the in-memory stores, so none of them need a database.
package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"inkpost/internal/models"
	"inkpost/internal/store"
	"inkpost/internal/store/memory"
	"inkpost/internal/token"
)

// Both store implementations satisfy the repository contracts.
var (
	_ UserRepository     = (*store.UserStore)(nil)
	_ UserRepository     = (*memory.Users)(nil)
	_ CategoryRepository = (*store.CategoryStore)(nil)
	_ CategoryRepository = (*memory.Categories)(nil)
	_ PostRepository     = (*store.PostStore)(nil)
	_ PostRepository     = (*memory.Posts)(nil)
	_ MediaRepository    = (*store.MediaStore)(nil)
	_ MediaRepository    = (*memory.Media)(nil)
	_ TokenIssuer        = (*token.Service)(nil)
)

type testEnv struct {
	Users      *memory.Users
	Cats       *memory.Categories
	PostStore  *memory.Posts
	Tokens     *token.Service
	Accounts   *Accounts
	Posts      *Posts
	Categories *Categories
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := token.New([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	env := &testEnv{
		Users:     memory.NewUsers(bcrypt.MinCost),
		Cats:      memory.NewCategories(),
		PostStore: memory.NewPosts(),
		Tokens:    tokens,
	}
	env.Accounts = NewAccounts(env.Users, tokens)
	env.Posts = NewPosts(env.PostStore, env.Cats, env.Users)
	env.Categories = NewCategories(env.Cats)
	return env
}

var seq atomic.Int64

func (e *testEnv) user(t *testing.T, role models.Role) *models.User {
	t.Helper()
	n := seq.Add(1)
	u, err := e.Users.Create(context.Background(), &models.User{
		Username:  fmt.Sprintf("user%d", n),
		Email:     fmt.Sprintf("user%d@example.com", n),
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}, "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) category(t *testing.T, name string) *models.Category {
	t.Helper()
	admin := e.user(t, models.RoleAdmin)
	c, err := e.Categories.Create(context.Background(), admin, CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func (e *testEnv) post(t *testing.T, author *models.User, cat *models.Category, slug string, published bool) *PostView {
	t.Helper()
	p, err := e.Posts.Create(context.Background(), author, CreatePostInput{
		Title:       "Post " + slug,
		Content:     "Some body text for " + slug,
		Slug:        slug,
		Category:    cat.ID.String(),
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("create post %s: %v", slug, err)
	}
	return p
}

func (e *testEnv) postCount(t *testing.T, cat *models.Category) int {
	t.Helper()
	c, err := e.Cats.FindByID(context.Background(), cat.ID)
	if err != nil || c == nil {
		t.Fatalf("find category: %v", err)
	}
	return c.PostCount
}

func ptr[T any](v T) *T { return &v }
