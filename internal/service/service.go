// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package service holds the account and content rules of the blog: input
// validation, access checks, derived counters and read-side projections.
// Services depend on the repository interfaces below, which both the
// PostgreSQL stores and the in-memory stores satisfy.
package service

import (
	"context"

	"github.com/google/uuid"

	"inkpost/internal/models"
	"inkpost/internal/store"
)

// UserRepository is the credential store.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByLogin(ctx context.Context, email, username string) (*models.User, error)
	Create(ctx context.Context, u *models.User, password string) (*models.User, error)
	CheckPassword(u *models.User, password string) bool
	FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
}

// CategoryRepository persists categories and their post counters.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// AdjustPostCount reports whether the count changed. It refuses to go
	// below zero and is false for a missing category.
	AdjustPostCount(ctx context.Context, id uuid.UUID, delta int) (bool, error)
	FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Category, error)
}

// PostRepository persists posts and their embedded comments.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (*models.Post, error)
	AppendComment(ctx context.Context, postID uuid.UUID, c models.Comment) ([]models.Comment, error)
	List(ctx context.Context, f store.PostFilter) ([]models.Post, int, error)
}

// MediaRepository records uploaded file metadata.
type MediaRepository interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
	Verify(raw string) (uuid.UUID, error)
}

// parseID returns the UUID in s, or false when s is not one. Routes that
// accept "id or slug" use it to pick the lookup.
func parseID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	return id, err == nil
}
