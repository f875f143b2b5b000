package services

import (
	"context"
	"errors"

	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

// CategoryStore defines persistence operations for categories.
type CategoryStore interface {
	List(ctx context.Context) ([]types.Category, error)
	Get(ctx context.Context, id string) (types.Category, error)
	Create(ctx context.Context, c types.Category) (types.Category, error)
	Update(ctx context.Context, c types.Category) (types.Category, error)
	Delete(ctx context.Context, id string) error
}

// CategoryService manages the global category tree. Writes are
// admin-only; the handler enforces the role.
type CategoryService struct {
	categories CategoryStore
}

func NewCategoryService(categories CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) List(ctx context.Context) ([]types.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) Create(ctx context.Context, name, icon string) (types.Category, error) {
	c, err := s.categories.Create(ctx, types.Category{
		Name: name,
		Slug: toBaseSlug(name),
		Icon: icon,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Category{}, &Error{Status: 409, Message: "category already exists"}
		}
		return types.Category{}, err
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id, name, icon string, isActive bool) (types.Category, error) {
	existing, err := s.categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Category{}, &Error{Status: 404, Message: "category not found"}
		}
		return types.Category{}, err
	}

	existing.Name = name
	existing.Icon = icon
	existing.IsActive = isActive
	return s.categories.Update(ctx, existing)
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	err := s.categories.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Status: 404, Message: "category not found"}
	}
	return err
}
