// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultFeaturedImage is used when a post is created without an image.
const DefaultFeaturedImage = "default-post.jpg"

// excerptFallbackLen is how many runes of content stand in for a missing excerpt.
const excerptFallbackLen = 150

// Post is a blog entry. CategoryID and AuthorID are weak references: the
// referenced rows may be deleted without touching the post.
type Post struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	Slug          string    `json:"slug"`
	CategoryID    uuid.UUID `json:"category"`
	AuthorID      uuid.UUID `json:"author"`
	Tags          []string  `json:"tags"`
	FeaturedImage string    `json:"featuredImage"`
	IsPublished   bool      `json:"isPublished"`
	ViewCount     int64     `json:"views"`
	Comments      []Comment `json:"comments"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Comment is embedded in a post and only ever appended.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayExcerpt returns the excerpt, or the first 150 characters of the
// content followed by "..." when no excerpt was given.
func (p *Post) DisplayExcerpt() string {
	if p.Excerpt != "" {
		return p.Excerpt
	}
	runes := []rune(p.Content)
	if len(runes) <= excerptFallbackLen {
		return p.Content
	}
	return string(runes[:excerptFallbackLen]) + "..."
}
