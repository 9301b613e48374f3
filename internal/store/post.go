// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"inkpost/internal/models"
)

// PostStore manages posts and their embedded comments.
type PostStore struct {
	db *sql.DB
}

// NewPostStore returns a new PostStore.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// PostFilter narrows a post listing. Limit must be positive.
type PostFilter struct {
	PublishedOnly bool
	CategoryID    *uuid.UUID
	Search        string
	Limit         int
	Offset        int
}

const postColumns = `id, title, content, excerpt, slug, category_id, author_id, tags,
	featured_image, is_published, view_count, comments, created_at, updated_at`

const msgSlugTaken = "A post with this slug already exists"

// scanPost scans a row into a Post, decoding the JSONB tag and comment arrays.
func scanPost(row scanner) (*models.Post, error) {
	var (
		p        models.Post
		tags     []byte
		comments []byte
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Excerpt, &p.Slug, &p.CategoryID, &p.AuthorID, &tags,
		&p.FeaturedImage, &p.IsPublished, &p.ViewCount, &comments, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(comments, &p.Comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

// Create inserts a post. A slug collision is returned as a Conflict error.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return nil, err
	}
	if p.FeaturedImage == "" {
		p.FeaturedImage = models.DefaultFeaturedImage
	}

	created, err := scanPost(s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, content, excerpt, slug, category_id, author_id, tags, featured_image, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		RETURNING `+postColumns,
		p.Title, p.Content, p.Excerpt, p.Slug, p.CategoryID, p.AuthorID, tags, p.FeaturedImage, p.IsPublished,
	))
	if err != nil {
		return nil, fmt.Errorf("create post: %w", conflictOr(err, msgSlugTaken))
	}
	return created, nil
}

func (s *PostStore) findOne(ctx context.Context, what, where string, arg any) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by %s: %w", what, err)
	}
	return p, nil
}

// FindByID retrieves a post by ID. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.findOne(ctx, "id", "id = $1", id)
}

// FindBySlug retrieves a post by slug. Returns nil if not found.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findOne(ctx, "slug", "slug = $1", slug)
}

// Update saves the editable fields of p. Slug, author, views and comments
// are never written here. Returns nil if the post no longer exists.
func (s *PostStore) Update(ctx context.Context, p *models.Post) (*models.Post, error) {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return nil, err
	}

	updated, err := scanPost(s.db.QueryRowContext(ctx, `
		UPDATE posts
		SET title = $1, content = $2, excerpt = $3, category_id = $4, tags = $5::jsonb,
		    featured_image = $6, is_published = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING `+postColumns,
		p.Title, p.Content, p.Excerpt, p.CategoryID, tags, p.FeaturedImage, p.IsPublished, p.ID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return updated, nil
}

// Delete removes a post. Reports whether a row was deleted.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete post rows: %w", err)
	}
	return n > 0, nil
}

// IncrementViews atomically adds one view and returns the updated post.
// Returns nil if the post no longer exists.
func (s *PostStore) IncrementViews(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `
		UPDATE posts SET view_count = view_count + 1
		WHERE id = $1
		RETURNING `+postColumns, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("increment views: %w", err)
	}
	return p, nil
}

// AppendComment atomically appends c to the post's comments and returns
// the full comment list. Returns nil if the post does not exist.
func (s *PostStore) AppendComment(ctx context.Context, postID uuid.UUID, c models.Comment) ([]models.Comment, error) {
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode comment: %w", err)
	}

	var raw []byte
	err = s.db.QueryRowContext(ctx, `
		UPDATE posts
		SET comments = comments || jsonb_build_array($1::jsonb), updated_at = NOW()
		WHERE id = $2
		RETURNING comments
	`, string(doc), postID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("append comment: %w", err)
	}

	comments := []models.Comment{}
	if err := json.Unmarshal(raw, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

// List returns one page of posts matching f, newest first, together with
// the total number of matches.
func (s *PostStore) List(ctx context.Context, f PostFilter) ([]models.Post, int, error) {
	where, args := f.conditions()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	n := len(args)
	args = append(args, f.Limit, max(f.Offset, 0))
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM posts%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		postColumns, where, n+1, n+2,
	), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	items := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, total, rows.Err()
}

// conditions renders the WHERE clause for f with positional arguments.
func (f PostFilter) conditions() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.PublishedOnly {
		conds = append(conds, "is_published = TRUE")
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(title ILIKE $%[1]d OR content ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) AS tag WHERE tag ILIKE $%[1]d))`, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
