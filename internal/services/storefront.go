package services

import (
	"context"
	"errors"

	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

// StorefrontStore defines persistence operations for seller stores.
type StorefrontStore interface {
	Get(ctx context.Context, id string) (types.Store, error)
	GetIncludingDeleted(ctx context.Context, id string) (types.Store, error)
	GetBySlug(ctx context.Context, slug string) (types.Store, error)
	Create(ctx context.Context, s types.Store) (types.Store, error)
	Update(ctx context.Context, s types.Store) (types.Store, error)
	ListBySeller(ctx context.Context, sellerID string) ([]types.Store, error)
	ListPublic(ctx context.Context, search string, offset, limit int) ([]types.Store, int, error)
	FindSlugs(ctx context.Context, base string) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status types.StoreStatus, isOpen bool) (types.Store, error)
	SetOpen(ctx context.Context, id string, isOpen bool) (types.Store, error)
	SoftDelete(ctx context.Context, id string) error
}

// RoleSetter promotes a user's role.
type RoleSetter interface {
	SetRole(ctx context.Context, id string, role types.Role) error
}

// StorefrontService manages seller stores and their moderation
// lifecycle.
type StorefrontService struct {
	stores StorefrontStore
	users  RoleSetter
}

func NewStorefrontService(stores StorefrontStore, users RoleSetter) *StorefrontService {
	return &StorefrontService{stores: stores, users: users}
}

// StoreParams carries the seller-editable store fields.
type StoreParams struct {
	Name        string
	Description string
	Logo        string
	Banner      string
	Address     string
}

// Create opens a new store in PENDING status and promotes the owner to
// SELLER. The slug is derived from the name and deduplicated.
func (s *StorefrontService) Create(ctx context.Context, sellerID string, p StoreParams) (types.Store, error) {
	base := toBaseSlug(p.Name)
	taken, err := s.stores.FindSlugs(ctx, base)
	if err != nil {
		return types.Store{}, err
	}

	created, err := s.stores.Create(ctx, types.Store{
		SellerID:    sellerID,
		Name:        p.Name,
		Slug:        uniqueSlug(base, taken),
		Description: p.Description,
		Logo:        p.Logo,
		Banner:      p.Banner,
		Address:     p.Address,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Store{}, &Error{Status: 409, Message: "store slug already exists"}
		}
		return types.Store{}, err
	}

	if err := s.users.SetRole(ctx, sellerID, types.RoleSeller); err != nil {
		return types.Store{}, err
	}
	return created, nil
}

// Update edits a store the caller owns. Suspended stores are frozen
// until an admin lifts the suspension.
func (s *StorefrontService) Update(ctx context.Context, sellerID, storeID string, p StoreParams) (types.Store, error) {
	existing, err := s.ownedStore(ctx, sellerID, storeID)
	if err != nil {
		return types.Store{}, err
	}
	if existing.Status == types.StoreSuspended {
		return types.Store{}, &Error{Status: 403, Message: "store is suspended"}
	}

	existing.Name = p.Name
	existing.Description = p.Description
	existing.Logo = p.Logo
	existing.Banner = p.Banner
	existing.Address = p.Address
	return s.stores.Update(ctx, existing)
}

// SetOpen toggles whether the store accepts orders.
func (s *StorefrontService) SetOpen(ctx context.Context, sellerID, storeID string, isOpen bool) (types.Store, error) {
	if _, err := s.ownedStore(ctx, sellerID, storeID); err != nil {
		return types.Store{}, err
	}
	return s.stores.SetOpen(ctx, storeID, isOpen)
}

// Delete soft-deletes a store the caller owns.
func (s *StorefrontService) Delete(ctx context.Context, sellerID, storeID string) error {
	if _, err := s.ownedStore(ctx, sellerID, storeID); err != nil {
		return err
	}
	return s.stores.SoftDelete(ctx, storeID)
}

// ListMine returns the caller's stores, any status.
func (s *StorefrontService) ListMine(ctx context.Context, sellerID string) ([]types.Store, error) {
	return s.stores.ListBySeller(ctx, sellerID)
}

// ListPublic returns approved stores for browsing.
func (s *StorefrontService) ListPublic(ctx context.Context, search string, offset, limit int) ([]types.Store, int, error) {
	return s.stores.ListPublic(ctx, search, offset, limit)
}

// GetPublic returns an approved store by slug.
func (s *StorefrontService) GetPublic(ctx context.Context, slug string) (types.Store, error) {
	st, err := s.stores.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Store{}, &Error{Status: 404, Message: "store not found"}
		}
		return types.Store{}, err
	}
	if st.Status != types.StoreApproved {
		return types.Store{}, &Error{Status: 404, Message: "store not found"}
	}
	return st, nil
}

// SetStatus is the admin moderation action. Approval opens the store;
// any other status closes it.
func (s *StorefrontService) SetStatus(ctx context.Context, storeID string, status types.StoreStatus) (types.Store, error) {
	if _, err := s.stores.GetIncludingDeleted(ctx, storeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Store{}, &Error{Status: 404, Message: "store not found"}
		}
		return types.Store{}, err
	}
	return s.stores.UpdateStatus(ctx, storeID, status, status == types.StoreApproved)
}

func (s *StorefrontService) ownedStore(ctx context.Context, sellerID, storeID string) (types.Store, error) {
	existing, err := s.stores.Get(ctx, storeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Store{}, &Error{Status: 404, Message: "store not found"}
		}
		return types.Store{}, err
	}
	if existing.SellerID != sellerID {
		return types.Store{}, ErrForbidden
	}
	return existing, nil
}
