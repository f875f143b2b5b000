package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

type fakeStorefrontStore struct {
	stores map[string]*types.Store
	nextID int
}

func newFakeStorefrontStore() *fakeStorefrontStore {
	return &fakeStorefrontStore{stores: map[string]*types.Store{}}
}

func (f *fakeStorefrontStore) Get(ctx context.Context, id string) (types.Store, error) {
	if s, ok := f.stores[id]; ok && s.DeletedAt == nil {
		return *s, nil
	}
	return types.Store{}, store.ErrNotFound
}

func (f *fakeStorefrontStore) GetIncludingDeleted(ctx context.Context, id string) (types.Store, error) {
	if s, ok := f.stores[id]; ok {
		return *s, nil
	}
	return types.Store{}, store.ErrNotFound
}

func (f *fakeStorefrontStore) GetBySlug(ctx context.Context, slug string) (types.Store, error) {
	for _, s := range f.stores {
		if s.Slug == slug && s.DeletedAt == nil {
			return *s, nil
		}
	}
	return types.Store{}, store.ErrNotFound
}

func (f *fakeStorefrontStore) Create(ctx context.Context, s types.Store) (types.Store, error) {
	for _, existing := range f.stores {
		if existing.Slug == s.Slug {
			return types.Store{}, store.ErrConflict
		}
	}
	f.nextID++
	s.ID = fmt.Sprintf("store-%d", f.nextID)
	s.Status = types.StorePending
	f.stores[s.ID] = &s
	return s, nil
}

func (f *fakeStorefrontStore) Update(ctx context.Context, s types.Store) (types.Store, error) {
	existing, ok := f.stores[s.ID]
	if !ok || existing.DeletedAt != nil {
		return types.Store{}, store.ErrNotFound
	}
	*existing = s
	return s, nil
}

func (f *fakeStorefrontStore) ListBySeller(ctx context.Context, sellerID string) ([]types.Store, error) {
	var out []types.Store
	for _, s := range f.stores {
		if s.SellerID == sellerID && s.DeletedAt == nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStorefrontStore) ListPublic(ctx context.Context, search string, offset, limit int) ([]types.Store, int, error) {
	var out []types.Store
	for _, s := range f.stores {
		if s.Status == types.StoreApproved && s.DeletedAt == nil {
			if search == "" || strings.Contains(strings.ToLower(s.Name), strings.ToLower(search)) {
				out = append(out, *s)
			}
		}
	}
	return out, len(out), nil
}

func (f *fakeStorefrontStore) FindSlugs(ctx context.Context, base string) ([]string, error) {
	var out []string
	for _, s := range f.stores {
		if s.Slug == base || strings.HasPrefix(s.Slug, base+"-") {
			out = append(out, s.Slug)
		}
	}
	return out, nil
}

func (f *fakeStorefrontStore) UpdateStatus(ctx context.Context, id string, status types.StoreStatus, isOpen bool) (types.Store, error) {
	s, ok := f.stores[id]
	if !ok {
		return types.Store{}, store.ErrNotFound
	}
	s.Status = status
	s.IsOpen = isOpen
	return *s, nil
}

func (f *fakeStorefrontStore) SetOpen(ctx context.Context, id string, isOpen bool) (types.Store, error) {
	s, ok := f.stores[id]
	if !ok || s.DeletedAt != nil {
		return types.Store{}, store.ErrNotFound
	}
	s.IsOpen = isOpen
	return *s, nil
}

func (f *fakeStorefrontStore) SoftDelete(ctx context.Context, id string) error {
	s, ok := f.stores[id]
	if !ok || s.DeletedAt != nil {
		return store.ErrNotFound
	}
	deletedAt := s.UpdatedAt
	s.DeletedAt = &deletedAt
	return nil
}

type fakeRoleSetter struct {
	roles map[string]types.Role
}

func (f *fakeRoleSetter) SetRole(ctx context.Context, id string, role types.Role) error {
	if f.roles == nil {
		f.roles = map[string]types.Role{}
	}
	f.roles[id] = role
	return nil
}

func newStorefrontFixture() (*StorefrontService, *fakeStorefrontStore, *fakeRoleSetter) {
	stores := newFakeStorefrontStore()
	users := &fakeRoleSetter{}
	return NewStorefrontService(stores, users), stores, users
}

func TestCreateStorePendingAndPromotesSeller(t *testing.T) {
	service, _, users := newStorefrontFixture()

	created, err := service.Create(context.Background(), "user-1", StoreParams{Name: "Fresh Veggies"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Status != types.StorePending {
		t.Fatalf("new stores must await approval, got %s", created.Status)
	}
	if created.Slug != "fresh-veggies" {
		t.Fatalf("unexpected slug %q", created.Slug)
	}
	if users.roles["user-1"] != types.RoleSeller {
		t.Fatalf("owner should be promoted to SELLER")
	}
}

func TestCreateStoreDeduplicatesSlug(t *testing.T) {
	service, _, _ := newStorefrontFixture()

	first, _ := service.Create(context.Background(), "user-1", StoreParams{Name: "Corner Shop"})
	second, err := service.Create(context.Background(), "user-2", StoreParams{Name: "Corner Shop"})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if first.Slug == second.Slug {
		t.Fatalf("slugs must be unique, both got %q", first.Slug)
	}
	if second.Slug != "corner-shop-1" {
		t.Fatalf("expected corner-shop-1, got %q", second.Slug)
	}
}

func TestUpdateStoreOwnershipEnforced(t *testing.T) {
	service, _, _ := newStorefrontFixture()

	created, _ := service.Create(context.Background(), "user-1", StoreParams{Name: "Mine"})

	_, err := service.Update(context.Background(), "user-2", created.ID, StoreParams{Name: "Stolen"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateSuspendedStoreRejected(t *testing.T) {
	service, stores, _ := newStorefrontFixture()

	created, _ := service.Create(context.Background(), "user-1", StoreParams{Name: "Mine"})
	stores.stores[created.ID].Status = types.StoreSuspended

	_, err := service.Update(context.Background(), "user-1", created.ID, StoreParams{Name: "Renamed"})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Status != 403 {
		t.Fatalf("expected a 403 domain error, got %v", err)
	}
}

func TestGetPublicHidesUnapprovedStores(t *testing.T) {
	service, stores, _ := newStorefrontFixture()

	created, _ := service.Create(context.Background(), "user-1", StoreParams{Name: "Hidden"})
	if _, err := service.GetPublic(context.Background(), created.Slug); err == nil {
		t.Fatalf("pending store must not be publicly visible")
	}

	stores.stores[created.ID].Status = types.StoreApproved
	if _, err := service.GetPublic(context.Background(), created.Slug); err != nil {
		t.Fatalf("approved store should be visible: %v", err)
	}
}

func TestApprovalOpensStore(t *testing.T) {
	service, _, _ := newStorefrontFixture()

	created, _ := service.Create(context.Background(), "user-1", StoreParams{Name: "Mine"})

	approved, err := service.SetStatus(context.Background(), created.ID, types.StoreApproved)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if !approved.IsOpen {
		t.Fatalf("approval should open the store")
	}

	suspended, err := service.SetStatus(context.Background(), created.ID, types.StoreSuspended)
	if err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if suspended.IsOpen {
		t.Fatalf("suspension should close the store")
	}
}
