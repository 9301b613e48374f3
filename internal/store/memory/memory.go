// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package memory implements the store contracts in process memory. It backs
// STORE_DRIVER=memory and the service and handler tests. Lookups that find
// nothing return (nil, nil), and unique violations are Conflict errors, the
// same as the PostgreSQL stores.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
	"inkpost/internal/store"
)

// Users is an in-memory credential store.
type Users struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.User
	cost int
}

// NewUsers returns an empty user store hashing with the given bcrypt cost.
// A cost of zero means bcrypt.DefaultCost.
func NewUsers(cost int) *Users {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Users{byID: make(map[uuid.UUID]*models.User), cost: cost}
}

func (s *Users) find(match func(*models.User) bool) *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

// FindByID returns the user or nil.
func (s *Users) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id }), nil
}

// FindByEmail returns the user or nil.
func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email }), nil
}

// FindByLogin returns a user matching either email or username.
func (s *Users) FindByLogin(_ context.Context, email, username string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email || u.Username == username }), nil
}

// Create hashes the password and stores the user.
func (s *Users) Create(_ context.Context, u *models.User, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return nil, apperr.Duplicate("User with this email or username already exists")
		}
	}

	now := time.Now().UTC()
	c := *u
	c.ID = uuid.New()
	c.PasswordHash = string(hash)
	c.IsActive = true
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Avatar == "" {
		c.Avatar = models.DefaultAvatar
	}
	if c.Role == "" {
		c.Role = models.RoleUser
	}
	s.byID[c.ID] = &c

	out := c
	return &out, nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (s *Users) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// FindMany returns the requested users keyed by ID.
func (s *Users) FindMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			c := *u
			out[id] = &c
		}
	}
	return out, nil
}

// Categories is an in-memory category store.
type Categories struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.Category
}

// NewCategories returns an empty category store.
func NewCategories() *Categories {
	return &Categories{byID: make(map[uuid.UUID]*models.Category)}
}

// List returns every category ordered by name.
func (s *Categories) List(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.Category, 0, len(s.byID))
	for _, c := range s.byID {
		items = append(items, *c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Categories) find(match func(*models.Category) bool) *models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID {
		if match(c) {
			cp := *c
			return &cp
		}
	}
	return nil
}

// FindByID returns the category or nil.
func (s *Categories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	return s.find(func(c *models.Category) bool { return c.ID == id }), nil
}

// FindBySlug returns the category or nil.
func (s *Categories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	return s.find(func(c *models.Category) bool { return c.Slug == slug }), nil
}

// FindByName returns the category or nil.
func (s *Categories) FindByName(_ context.Context, name string) (*models.Category, error) {
	return s.find(func(c *models.Category) bool { return c.Name == name }), nil
}

// clashes reports whether another category already uses c's name or slug.
// The caller must hold the lock.
func (s *Categories) clashes(c *models.Category) bool {
	for _, other := range s.byID {
		if other.ID != c.ID && (other.Name == c.Name || other.Slug == c.Slug) {
			return true
		}
	}
	return false
}

// Create stores a new category with a zero post count.
func (s *Categories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.ID = uuid.New()
	if s.clashes(&cp) {
		return nil, apperr.Duplicate("Category with this name or slug already exists")
	}
	now := time.Now().UTC()
	cp.PostCount = 0
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

// Update saves name, description, slug and color.
func (s *Categories) Update(_ context.Context, c *models.Category) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[c.ID]
	if !ok {
		return nil, nil
	}
	if s.clashes(c) {
		return nil, apperr.Duplicate("Category with this name or slug already exists")
	}
	existing.Name = c.Name
	existing.Description = c.Description
	existing.Slug = c.Slug
	existing.Color = c.Color
	existing.UpdatedAt = time.Now().UTC()
	out := *existing
	return &out, nil
}

// Delete removes a category.
func (s *Categories) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

// AdjustPostCount adds delta to the count unless that would go below
// zero. Reports whether the count changed.
func (s *Categories) AdjustPostCount(_ context.Context, id uuid.UUID, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.PostCount+delta < 0 {
		return false, nil
	}
	c.PostCount += delta
	return true, nil
}

// FindMany returns the requested categories keyed by ID.
func (s *Categories) FindMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]*models.Category, len(ids))
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			cp := *c
			out[id] = &cp
		}
	}
	return out, nil
}

// postEntry keeps insertion order so equal timestamps still sort newest first.
type postEntry struct {
	post models.Post
	seq  int64
}

// Posts is an in-memory post store.
type Posts struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*postEntry
	seq  int64
}

// NewPosts returns an empty post store.
func NewPosts() *Posts {
	return &Posts{byID: make(map[uuid.UUID]*postEntry)}
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	c.Comments = append([]models.Comment{}, p.Comments...)
	return &c
}

// Create stores a post. Slugs are unique.
func (s *Posts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.byID {
		if e.post.Slug == p.Slug {
			return nil, apperr.Duplicate("A post with this slug already exists")
		}
	}

	c := clonePost(p)
	c.ID = uuid.New()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	c.ViewCount = 0
	c.Comments = []models.Comment{}
	if c.FeaturedImage == "" {
		c.FeaturedImage = models.DefaultFeaturedImage
	}
	s.seq++
	s.byID[c.ID] = &postEntry{post: *c, seq: s.seq}
	return clonePost(c), nil
}

func (s *Posts) find(match func(*models.Post) bool) *models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byID {
		if match(&e.post) {
			return clonePost(&e.post)
		}
	}
	return nil
}

// FindByID returns the post or nil.
func (s *Posts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	return s.find(func(p *models.Post) bool { return p.ID == id }), nil
}

// FindBySlug returns the post or nil.
func (s *Posts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	return s.find(func(p *models.Post) bool { return p.Slug == slug }), nil
}

// Update saves the editable fields of p.
func (s *Posts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[p.ID]
	if !ok {
		return nil, nil
	}
	e.post.Title = p.Title
	e.post.Content = p.Content
	e.post.Excerpt = p.Excerpt
	e.post.CategoryID = p.CategoryID
	e.post.Tags = append([]string{}, p.Tags...)
	e.post.FeaturedImage = p.FeaturedImage
	e.post.IsPublished = p.IsPublished
	e.post.UpdatedAt = time.Now().UTC()
	return clonePost(&e.post), nil
}

// Delete removes a post.
func (s *Posts) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

// IncrementViews adds one view under the write lock.
func (s *Posts) IncrementViews(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	e.post.ViewCount++
	return clonePost(&e.post), nil
}

// AppendComment appends c and returns all comments.
func (s *Posts) AppendComment(_ context.Context, postID uuid.UUID, c models.Comment) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[postID]
	if !ok {
		return nil, nil
	}
	e.post.Comments = append(e.post.Comments, c)
	e.post.UpdatedAt = time.Now().UTC()
	return append([]models.Comment{}, e.post.Comments...), nil
}

// List filters, orders newest first and paginates.
func (s *Posts) List(_ context.Context, f store.PostFilter) ([]models.Post, int, error) {
	// Copy under the lock; entries keep changing after it is released.
	s.mu.RLock()
	matched := make([]postEntry, 0, len(s.byID))
	for _, e := range s.byID {
		if matches(&e.post, f) {
			matched = append(matched, postEntry{post: *clonePost(&e.post), seq: e.seq})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	items := []models.Post{}
	for i := max(f.Offset, 0); i < total && len(items) < f.Limit; i++ {
		items = append(items, matched[i].post)
	}
	return items, total, nil
}

func matches(p *models.Post, f store.PostFilter) bool {
	if f.PublishedOnly && !p.IsPublished {
		return false
	}
	if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(p.Title), term) || strings.Contains(strings.ToLower(p.Content), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Media is an in-memory media metadata store.
type Media struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.Media
}

// NewMedia returns an empty media store.
func NewMedia() *Media {
	return &Media{byID: make(map[uuid.UUID]*models.Media)}
}

// Create stores the record.
func (s *Media) Create(_ context.Context, m *models.Media) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *m
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	s.byID[c.ID] = &c
	out := c
	return &out, nil
}

// FindByID returns the record or nil.
func (s *Media) FindByID(_ context.Context, id uuid.UUID) (*models.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

// Delete removes and returns the record.
func (s *Media) Delete(_ context.Context, id uuid.UUID) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	delete(s.byID, id)
	return m, nil
}
