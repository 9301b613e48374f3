// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
	"inkpost/internal/policy"
	"inkpost/internal/slug"
	"inkpost/internal/store"
)

// Post error messages.
const (
	MsgPostNotFound     = "Post not found"
	MsgSlugTaken        = "A post with this slug already exists"
	MsgSlugImmutable    = "Post slug cannot be changed"
	MsgCategoryNotFound = "Category not found"
)

// Listing bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CreatePostInput is the body of a create-post request.
type CreatePostInput struct {
	Title         string   `json:"title" validate:"required,min=3,max=100"`
	Content       string   `json:"content" validate:"required,min=10"`
	Excerpt       string   `json:"excerpt" validate:"max=200"`
	Slug          string   `json:"slug" validate:"required,slug"`
	Category      string   `json:"category" validate:"required,uuid"`
	Tags          []string `json:"tags" validate:"max=20,dive,required,max=30"`
	FeaturedImage string   `json:"featuredImage" validate:"max=500"`
	IsPublished   bool     `json:"isPublished"`
}

// UpdatePostInput is a partial update; nil fields are left unchanged. Slug
// is accepted only when it matches the stored slug.
type UpdatePostInput struct {
	Title         *string   `json:"title" validate:"omitnil,min=3,max=100"`
	Content       *string   `json:"content" validate:"omitnil,min=10"`
	Excerpt       *string   `json:"excerpt" validate:"omitnil,max=200"`
	Slug          *string   `json:"slug"`
	Category      *string   `json:"category" validate:"omitnil,uuid"`
	Tags          *[]string `json:"tags" validate:"omitnil,max=20,dive,required,max=30"`
	FeaturedImage *string   `json:"featuredImage" validate:"omitnil,max=500"`
	IsPublished   *bool     `json:"isPublished"`
}

// ListPostsInput selects a page of published posts. Zero or negative
// Page and Limit fall back to the defaults.
type ListPostsInput struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

// Pagination describes the page a listing returned.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts      []PostView
	Pagination Pagination
}

// Posts owns post authoring, reading and commenting, and keeps each
// category's post counter in step with the posts that reference it.
type Posts struct {
	posts      PostRepository
	categories CategoryRepository
	proj       projector
	now        func() time.Time
}

// NewPosts creates a Posts service.
func NewPosts(posts PostRepository, categories CategoryRepository, users UserRepository) *Posts {
	return &Posts{
		posts:      posts,
		categories: categories,
		proj:       projector{users: users, categories: categories},
		now:        time.Now,
	}
}

// List returns published posts, newest first.
func (s *Posts) List(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// Keep the offset representable; such a page is simply empty.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	filter := store.PostFilter{
		PublishedOnly: true,
		Search:        strings.TrimSpace(in.Search),
		Limit:         limit,
		Offset:        (page - 1) * limit,
	}
	if c := strings.TrimSpace(in.Category); c != "" {
		id, ok := parseID(c)
		if !ok {
			return nil, apperr.Invalid(`"category" must be a valid id`)
		}
		filter.CategoryID = &id
	}

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	views, err := s.proj.posts(ctx, posts, projection{})
	if err != nil {
		return nil, err
	}
	return &PostPage{
		Posts: views,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// Get returns a post by ID or slug and counts the read. Unpublished posts
// are readable by anyone who knows the address.
func (s *Posts) Get(ctx context.Context, idOrSlug string) (*PostView, error) {
	post, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	post, err = s.posts.IncrementViews(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}
	if post == nil {
		return nil, apperr.Missing(MsgPostNotFound)
	}
	return s.proj.post(ctx, post, projection{authorBio: true, html: true})
}

// Create publishes a new post authored by actor.
func (s *Posts) Create(ctx context.Context, actor *models.User, in CreatePostInput) (*PostView, error) {
	if err := policy.CanCreatePost(actor); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Slug = slug.Normalize(in.Slug)
	in.Tags = cleanTags(in.Tags)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	if err := check(in); err != nil {
		return nil, err
	}

	cat, err := s.category(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	taken, err := s.posts.FindBySlug(ctx, in.Slug)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	if taken != nil {
		return nil, apperr.Duplicate(MsgSlugTaken)
	}

	post, err := s.posts.Create(ctx, &models.Post{
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Slug:          in.Slug,
		CategoryID:    cat.ID,
		AuthorID:      actor.ID,
		Tags:          in.Tags,
		FeaturedImage: in.FeaturedImage,
		IsPublished:   in.IsPublished,
	})
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Wrap(apperr.Conflict, MsgSlugTaken, err)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.adjustCount(ctx, post.CategoryID, +1, post.ID)
	return s.proj.post(ctx, post, projection{})
}

// Update applies a partial update. Only the author or an admin may update.
// Moving a post to another category does not touch either counter.
func (s *Posts) Update(ctx context.Context, actor *models.User, id string, in UpdatePostInput) (*PostView, error) {
	if actor == nil {
		return nil, apperr.Unauthorized(policy.MsgNoToken)
	}
	post, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanMutatePost(actor, post.AuthorID); err != nil {
		return nil, err
	}

	trimPtr(in.Title)
	trimPtr(in.Excerpt)
	trimPtr(in.FeaturedImage)
	if in.Tags != nil {
		cleaned := cleanTags(*in.Tags)
		in.Tags = &cleaned
	}
	if err := check(in); err != nil {
		return nil, err
	}
	if in.Slug != nil && slug.Normalize(*in.Slug) != post.Slug {
		return nil, apperr.Invalid(MsgSlugImmutable)
	}

	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Excerpt != nil {
		post.Excerpt = *in.Excerpt
	}
	if in.Category != nil {
		cat, err := s.category(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		post.CategoryID = cat.ID
	}
	if in.Tags != nil {
		post.Tags = *in.Tags
	}
	if in.FeaturedImage != nil {
		post.FeaturedImage = *in.FeaturedImage
		if post.FeaturedImage == "" {
			post.FeaturedImage = models.DefaultFeaturedImage
		}
	}
	if in.IsPublished != nil {
		post.IsPublished = *in.IsPublished
	}

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if updated == nil {
		return nil, apperr.Missing(MsgPostNotFound)
	}
	return s.proj.post(ctx, updated, projection{})
}

// Delete removes a post. Only the author or an admin may delete. The
// category counter is decremented first and restored if the delete fails.
func (s *Posts) Delete(ctx context.Context, actor *models.User, id string) error {
	if actor == nil {
		return apperr.Unauthorized(policy.MsgNoToken)
	}
	post, err := s.byID(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanMutatePost(actor, post.AuthorID); err != nil {
		return err
	}

	decremented := s.adjustCount(ctx, post.CategoryID, -1, post.ID)

	deleted, err := s.posts.Delete(ctx, post.ID)
	if err == nil && !deleted {
		err = apperr.Missing(MsgPostNotFound)
	}
	if err != nil {
		if decremented {
			s.adjustCount(ctx, post.CategoryID, +1, post.ID)
		}
		if apperr.Is(err, apperr.NotFound) {
			return err
		}
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// AddComment appends a comment by actor and returns the post's full
// comment list.
func (s *Posts) AddComment(ctx context.Context, actor *models.User, id, content string) ([]CommentView, error) {
	if err := policy.CanComment(actor); err != nil {
		return nil, err
	}
	postID, ok := parseID(id)
	if !ok {
		return nil, apperr.Missing(MsgPostNotFound)
	}

	comments, err := s.posts.AppendComment(ctx, postID, models.Comment{
		ID:        uuid.New(),
		UserID:    actor.ID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	if comments == nil {
		return nil, apperr.Missing(MsgPostNotFound)
	}
	return s.proj.comments(ctx, comments)
}

func (s *Posts) lookup(ctx context.Context, idOrSlug string) (*models.Post, error) {
	var (
		post *models.Post
		err  error
	)
	if id, ok := parseID(idOrSlug); ok {
		post, err = s.posts.FindByID(ctx, id)
	} else {
		post, err = s.posts.FindBySlug(ctx, slug.Normalize(idOrSlug))
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if post == nil {
		return nil, apperr.Missing(MsgPostNotFound)
	}
	return post, nil
}

func (s *Posts) byID(ctx context.Context, raw string) (*models.Post, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, apperr.Missing(MsgPostNotFound)
	}
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if post == nil {
		return nil, apperr.Missing(MsgPostNotFound)
	}
	return post, nil
}

// category resolves a post's category reference, which must exist.
func (s *Posts) category(ctx context.Context, raw string) (*models.Category, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, apperr.Invalid(`"category" must be a valid id`)
	}
	cat, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if cat == nil {
		return nil, apperr.Invalid(MsgCategoryNotFound)
	}
	return cat, nil
}

// adjustCount moves a category's post counter after the post write has
// already happened. The two writes are not atomic, so a failure here is
// logged and the counter is left drifted. It reports whether the counter
// changed, so a compensating write only undoes a change that happened.
func (s *Posts) adjustCount(ctx context.Context, categoryID uuid.UUID, delta int, postID uuid.UUID) bool {
	ok, err := s.categories.AdjustPostCount(ctx, categoryID, delta)
	if err != nil {
		slog.Error("adjust category post count",
			"category_id", categoryID, "post_id", postID, "delta", delta, "error", err)
		return false
	}
	if !ok {
		slog.Warn("category post count not adjusted",
			"category_id", categoryID, "post_id", postID, "delta", delta)
	}
	return ok
}

// cleanTags trims each tag and drops empty ones.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
