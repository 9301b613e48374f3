package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"inkpost/internal/markdown"
	"inkpost/internal/models"
)

// PostView is the read-side projection of a post. Author and category are
// nil when the referenced row no longer exists.
type PostView struct {
	ID            uuid.UUID               `json:"id"`
	Title         string                  `json:"title"`
	Content       string                  `json:"content"`
	ContentHTML   string                  `json:"contentHtml,omitempty"`
	Excerpt       string                  `json:"excerpt"`
	Slug          string                  `json:"slug"`
	Category      *models.CategorySummary `json:"category"`
	Author        *models.AuthorSummary   `json:"author"`
	Tags          []string                `json:"tags"`
	FeaturedImage string                  `json:"featuredImage"`
	IsPublished   bool                    `json:"isPublished"`
	Views         int64                   `json:"views"`
	Comments      []CommentView           `json:"comments"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	ID        uuid.UUID             `json:"id"`
	User      *models.AuthorSummary `json:"user"`
	Content   string                `json:"content"`
	CreatedAt time.Time             `json:"createdAt"`
}

// projection selects the optional parts of a PostView.
type projection struct {
	authorBio bool // include the author's bio
	html      bool // render ContentHTML
}

// projector batch-resolves the users and categories a set of posts
// references, so a page of posts costs two extra queries.
type projector struct {
	users      UserRepository
	categories CategoryRepository
}

func (pr projector) posts(ctx context.Context, posts []models.Post, opt projection) ([]PostView, error) {
	userIDs := make(map[uuid.UUID]struct{})
	catIDs := make(map[uuid.UUID]struct{})
	for _, p := range posts {
		userIDs[p.AuthorID] = struct{}{}
		catIDs[p.CategoryID] = struct{}{}
		for _, c := range p.Comments {
			userIDs[c.UserID] = struct{}{}
		}
	}

	users, err := pr.users.FindMany(ctx, keys(userIDs))
	if err != nil {
		return nil, fmt.Errorf("project authors: %w", err)
	}
	cats, err := pr.categories.FindMany(ctx, keys(catIDs))
	if err != nil {
		return nil, fmt.Errorf("project categories: %w", err)
	}

	views := make([]PostView, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		v := PostView{
			ID:            p.ID,
			Title:         p.Title,
			Content:       p.Content,
			Excerpt:       p.DisplayExcerpt(),
			Slug:          p.Slug,
			Tags:          p.Tags,
			FeaturedImage: p.FeaturedImage,
			IsPublished:   p.IsPublished,
			Views:         p.ViewCount,
			Comments:      commentViews(p.Comments, users),
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		if u, ok := users[p.AuthorID]; ok {
			s := u.Summary(opt.authorBio)
			v.Author = &s
		}
		if c, ok := cats[p.CategoryID]; ok {
			s := c.Summary()
			v.Category = &s
		}
		if opt.html {
			html, err := markdown.ToHTML(p.Content)
			if err != nil {
				slog.Warn("render post markdown", "post_id", p.ID, "error", err)
			} else {
				v.ContentHTML = html
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func (pr projector) post(ctx context.Context, p *models.Post, opt projection) (*PostView, error) {
	views, err := pr.posts(ctx, []models.Post{*p}, opt)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (pr projector) comments(ctx context.Context, comments []models.Comment) ([]CommentView, error) {
	ids := make(map[uuid.UUID]struct{})
	for _, c := range comments {
		ids[c.UserID] = struct{}{}
	}
	users, err := pr.users.FindMany(ctx, keys(ids))
	if err != nil {
		return nil, fmt.Errorf("project comment authors: %w", err)
	}
	return commentViews(comments, users), nil
}

func commentViews(comments []models.Comment, users map[uuid.UUID]*models.User) []CommentView {
	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		v := CommentView{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt}
		if u, ok := users[c.UserID]; ok {
			s := u.Summary(false)
			v.User = &s
		}
		out = append(out, v)
	}
	return out
}

func keys(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
