// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"inkpost/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, description, slug, color, post_count, created_at, updated_at`

const msgCategoryExists = "Category with this name or slug already exists"

// scanCategory scans a row into a Category struct.
func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Slug,
		&c.Color, &c.PostCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all categories ordered by name.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (s *CategoryStore) findOne(ctx context.Context, what, where string, arg any) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by %s: %w", what, err)
	}
	return c, nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.findOne(ctx, "id", "id = $1", id)
}

// FindBySlug retrieves a category by slug. Returns nil if not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.findOne(ctx, "slug", "slug = $1", slug)
}

// FindByName retrieves a category by exact name. Returns nil if not found.
func (s *CategoryStore) FindByName(ctx context.Context, name string) (*models.Category, error) {
	return s.findOne(ctx, "name", "name = $1", name)
}

// Create inserts a new category. PostCount always starts at zero.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	created, err := scanCategory(s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, slug, color)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		c.Name, c.Description, c.Slug, c.Color,
	))
	if err != nil {
		return nil, fmt.Errorf("create category: %w", conflictOr(err, msgCategoryExists))
	}
	return created, nil
}

// Update saves name, description, slug and color. PostCount is not
// touched. Returns nil if the category no longer exists.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	updated, err := scanCategory(s.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $1, description = $2, slug = $3, color = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+categoryColumns,
		c.Name, c.Description, c.Slug, c.Color, c.ID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update category: %w", conflictOr(err, msgCategoryExists))
	}
	return updated, nil
}

// Delete removes a category. Posts referencing it are left untouched.
// Reports whether a row was deleted.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete category rows: %w", err)
	}
	return n > 0, nil
}

// AdjustPostCount atomically adds delta to the category's post count.
// A change that would take the count below zero is not applied. Reports
// whether the count changed, which is false for a missing category too.
func (s *CategoryStore) AdjustPostCount(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET post_count = post_count + $1
		WHERE id = $2 AND post_count + $1 >= 0
	`, delta, id)
	if err != nil {
		return false, fmt.Errorf("adjust post count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adjust post count rows: %w", err)
	}
	return n > 0, nil
}

// FindMany loads the given categories keyed by ID.
func (s *CategoryStore) FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Category, error) {
	out := make(map[uuid.UUID]*models.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ANY($1::uuid[])`, uuidArray(ids))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}
