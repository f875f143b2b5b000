package services

import (
	"context"
	"errors"

	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

// ProductStore defines persistence operations for products.
type ProductStore interface {
	Get(ctx context.Context, id string) (types.Product, error)
	GetBySlug(ctx context.Context, slug string) (types.Product, error)
	Create(ctx context.Context, p types.Product) (types.Product, error)
	Update(ctx context.Context, p types.Product) (types.Product, error)
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, q types.ProductQuery, offset, limit int) ([]types.Product, int, error)
	ListByStore(ctx context.Context, storeID string) ([]types.Product, error)
	FindSlugs(ctx context.Context, base string) ([]string, error)
}

// StoreReader is the slice of the store repository the product service
// needs for ownership checks.
type StoreReader interface {
	Get(ctx context.Context, id string) (types.Store, error)
}

// ProductService manages a store's catalog.
type ProductService struct {
	products ProductStore
	stores   StoreReader
}

func NewProductService(products ProductStore, stores StoreReader) *ProductService {
	return &ProductService{products: products, stores: stores}
}

// ProductParams carries the seller-editable product fields.
type ProductParams struct {
	CategoryID  string
	Name        string
	Description string
	Price       int64
	Stock       int
	Images      []string
	IsActive    bool
}

// Create adds a product to a store the caller owns.
func (s *ProductService) Create(ctx context.Context, sellerID, storeID string, p ProductParams) (types.Product, error) {
	if err := s.checkOwner(ctx, sellerID, storeID); err != nil {
		return types.Product{}, err
	}
	if p.Price < 0 {
		return types.Product{}, &Error{Status: 400, Message: "price must not be negative"}
	}

	base := toBaseSlug(p.Name)
	taken, err := s.products.FindSlugs(ctx, base)
	if err != nil {
		return types.Product{}, err
	}

	created, err := s.products.Create(ctx, types.Product{
		StoreID:     storeID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Slug:        uniqueSlug(base, taken),
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Images:      p.Images,
		IsActive:    p.IsActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Product{}, &Error{Status: 409, Message: "product slug already exists"}
		}
		return types.Product{}, err
	}
	return created, nil
}

// Update edits a product in a store the caller owns.
func (s *ProductService) Update(ctx context.Context, sellerID, productID string, p ProductParams) (types.Product, error) {
	existing, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return types.Product{}, err
	}
	if p.Price < 0 {
		return types.Product{}, &Error{Status: 400, Message: "price must not be negative"}
	}

	existing.CategoryID = p.CategoryID
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Price = p.Price
	existing.Stock = p.Stock
	existing.Images = p.Images
	existing.IsActive = p.IsActive
	return s.products.Update(ctx, existing)
}

// Delete soft-deletes a product in a store the caller owns.
func (s *ProductService) Delete(ctx context.Context, sellerID, productID string) error {
	if _, err := s.ownedProduct(ctx, sellerID, productID); err != nil {
		return err
	}
	return s.products.SoftDelete(ctx, productID)
}

// ListPublic returns active products in approved stores.
func (s *ProductService) ListPublic(ctx context.Context, q types.ProductQuery, offset, limit int) ([]types.Product, int, error) {
	return s.products.List(ctx, q, offset, limit)
}

// GetPublic returns a product by slug if it is publicly visible.
func (s *ProductService) GetPublic(ctx context.Context, slug string) (types.Product, error) {
	p, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, &Error{Status: 404, Message: "product not found"}
		}
		return types.Product{}, err
	}
	if !p.IsActive {
		return types.Product{}, &Error{Status: 404, Message: "product not found"}
	}
	st, err := s.stores.Get(ctx, p.StoreID)
	if err != nil || st.Status != types.StoreApproved {
		return types.Product{}, &Error{Status: 404, Message: "product not found"}
	}
	return p, nil
}

// ListByStore returns all of a store's products for the owning seller.
func (s *ProductService) ListByStore(ctx context.Context, sellerID, storeID string) ([]types.Product, error) {
	if err := s.checkOwner(ctx, sellerID, storeID); err != nil {
		return nil, err
	}
	return s.products.ListByStore(ctx, storeID)
}

func (s *ProductService) checkOwner(ctx context.Context, sellerID, storeID string) error {
	st, err := s.stores.Get(ctx, storeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Error{Status: 404, Message: "store not found"}
		}
		return err
	}
	if st.SellerID != sellerID {
		return ErrForbidden
	}
	if st.Status == types.StoreSuspended {
		return &Error{Status: 403, Message: "store is suspended"}
	}
	return nil
}

func (s *ProductService) ownedProduct(ctx context.Context, sellerID, productID string) (types.Product, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, &Error{Status: 404, Message: "product not found"}
		}
		return types.Product{}, err
	}
	if err := s.checkOwner(ctx, sellerID, p.StoreID); err != nil {
		return types.Product{}, err
	}
	return p, nil
}
