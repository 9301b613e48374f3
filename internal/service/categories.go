package service

import (
	"context"
	"fmt"
	"strings"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
	"inkpost/internal/policy"
	"inkpost/internal/slug"
)

const (
	MsgCategoryExists  = "Category with this name or slug already exists"
	msgSlugUnderivable = `"name" must contain at least one letter or digit`
)

// CategoryInput is the body of a create-category request.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"max=200"`
	Color       string `json:"color" validate:"omitempty,color6"`
}

// UpdateCategoryInput is a partial update; nil fields are left unchanged.
type UpdateCategoryInput struct {
	Name        *string `json:"name" validate:"omitnil,min=2,max=50"`
	Description *string `json:"description" validate:"omitnil,max=200"`
	Color       *string `json:"color" validate:"omitnil,color6"`
}

// Categories manages the category list. Reads are public, writes are for
// admins. The slug always follows the name.
type Categories struct {
	categories CategoryRepository
}

// NewCategories creates a Categories service.
func NewCategories(categories CategoryRepository) *Categories {
	return &Categories{categories: categories}
}

// List returns every category ordered by name.
func (s *Categories) List(ctx context.Context) ([]models.Category, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Get finds a category by ID or slug.
func (s *Categories) Get(ctx context.Context, idOrSlug string) (*models.Category, error) {
	var (
		cat *models.Category
		err error
	)
	if id, ok := parseID(idOrSlug); ok {
		cat, err = s.categories.FindByID(ctx, id)
	} else {
		cat, err = s.categories.FindBySlug(ctx, slug.Normalize(idOrSlug))
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if cat == nil {
		return nil, apperr.Missing(MsgCategoryNotFound)
	}
	return cat, nil
}

// Create adds a category.
func (s *Categories) Create(ctx context.Context, actor *models.User, in CategoryInput) (*models.Category, error) {
	if err := policy.CanManageCategories(actor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	if err := check(in); err != nil {
		return nil, err
	}

	cat := &models.Category{
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug.Generate(in.Name),
		Color:       in.Color,
	}
	if cat.Color == "" {
		cat.Color = models.DefaultCategoryColor
	}
	if err := s.ensureUnique(ctx, cat); err != nil {
		return nil, err
	}

	created, err := s.categories.Create(ctx, cat)
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Wrap(apperr.Conflict, MsgCategoryExists, err)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// Update changes a category. Renaming re-derives the slug.
func (s *Categories) Update(ctx context.Context, actor *models.User, id string, in UpdateCategoryInput) (*models.Category, error) {
	if err := policy.CanManageCategories(actor); err != nil {
		return nil, err
	}
	trimPtr(in.Name)
	trimPtr(in.Description)
	trimPtr(in.Color)
	if err := check(in); err != nil {
		return nil, err
	}

	catID, ok := parseID(id)
	if !ok {
		return nil, apperr.Missing(MsgCategoryNotFound)
	}
	cat, err := s.categories.FindByID(ctx, catID)
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if cat == nil {
		return nil, apperr.Missing(MsgCategoryNotFound)
	}

	if in.Name != nil && *in.Name != cat.Name {
		cat.Name = *in.Name
		cat.Slug = slug.Generate(cat.Name)
		if err := s.ensureUnique(ctx, cat); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		cat.Description = *in.Description
	}
	if in.Color != nil {
		cat.Color = *in.Color
	}

	updated, err := s.categories.Update(ctx, cat)
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Wrap(apperr.Conflict, MsgCategoryExists, err)
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	if updated == nil {
		return nil, apperr.Missing(MsgCategoryNotFound)
	}
	return updated, nil
}

// Delete removes a category. Posts that reference it are left in place
// and project with a null category.
func (s *Categories) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := policy.CanManageCategories(actor); err != nil {
		return err
	}
	catID, ok := parseID(id)
	if !ok {
		return apperr.Missing(MsgCategoryNotFound)
	}
	deleted, err := s.categories.Delete(ctx, catID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if !deleted {
		return apperr.Missing(MsgCategoryNotFound)
	}
	return nil
}

// ensureUnique rejects a name or derived slug that another category holds.
func (s *Categories) ensureUnique(ctx context.Context, cat *models.Category) error {
	if cat.Slug == "" {
		return apperr.Invalid(msgSlugUnderivable)
	}
	byName, err := s.categories.FindByName(ctx, cat.Name)
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}
	bySlug, err := s.categories.FindBySlug(ctx, cat.Slug)
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}
	for _, other := range []*models.Category{byName, bySlug} {
		if other != nil && other.ID != cat.ID {
			return apperr.Duplicate(MsgCategoryExists)
		}
	}
	return nil
}
