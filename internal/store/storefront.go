package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/apiserver/types"
)

// StoreRepository handles persistence for seller stores.
type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

const storeColumns = `id, seller_id, name, slug, COALESCE(description, ''), COALESCE(logo, ''),
	COALESCE(banner, ''), COALESCE(address, ''), status, is_open, deleted_at, created_at, updated_at`

func scanStore(row interface{ Scan(...any) error }) (types.Store, error) {
	var s types.Store
	err := row.Scan(
		&s.ID,
		&s.SellerID,
		&s.Name,
		&s.Slug,
		&s.Description,
		&s.Logo,
		&s.Banner,
		&s.Address,
		&s.Status,
		&s.IsOpen,
		&s.DeletedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Store{}, ErrNotFound
		}
		return types.Store{}, err
	}
	return s, nil
}

// Get returns a live (not soft-deleted) store.
func (r *StoreRepository) Get(ctx context.Context, id string) (types.Store, error) {
	const query = `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE id = $1
			AND deleted_at IS NULL`
	return scanStore(r.db.QueryRowContext(ctx, query, id))
}

// GetIncludingDeleted returns a store regardless of soft-delete state,
// for admin moderation paths.
func (r *StoreRepository) GetIncludingDeleted(ctx context.Context, id string) (types.Store, error) {
	const query = `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE id = $1`
	return scanStore(r.db.QueryRowContext(ctx, query, id))
}

func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (types.Store, error) {
	const query = `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE slug = $1
			AND deleted_at IS NULL`
	return scanStore(r.db.QueryRowContext(ctx, query, slug))
}

func (r *StoreRepository) Create(ctx context.Context, s types.Store) (types.Store, error) {
	now := time.Now()
	s.ID = uuid.NewString()
	s.Status = types.StorePending
	s.CreatedAt = now
	s.UpdatedAt = now

	const query = `
		INSERT INTO stores (id, seller_id, name, slug, description, logo, banner, address,
			status, is_open, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''),
			$9, FALSE, $10, $11)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.SellerID,
		s.Name,
		s.Slug,
		s.Description,
		s.Logo,
		s.Banner,
		s.Address,
		s.Status,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Store{}, ErrConflict
		}
		return types.Store{}, err
	}
	return s, nil
}

func (r *StoreRepository) Update(ctx context.Context, s types.Store) (types.Store, error) {
	s.UpdatedAt = time.Now()

	const query = `
		UPDATE stores
		SET name = $2,
			description = NULLIF($3, ''),
			logo = NULLIF($4, ''),
			banner = NULLIF($5, ''),
			address = NULLIF($6, ''),
			updated_at = $7
		WHERE id = $1
			AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.Description, s.Logo, s.Banner, s.Address, s.UpdatedAt)
	if err != nil {
		return types.Store{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Store{}, err
	}
	if affected == 0 {
		return types.Store{}, ErrNotFound
	}
	return s, nil
}

// ListBySeller returns all live stores owned by the seller.
func (r *StoreRepository) ListBySeller(ctx context.Context, sellerID string) ([]types.Store, error) {
	const query = `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE seller_id = $1
			AND deleted_at IS NULL
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStores(rows)
}

// ListPublic returns APPROVED, live stores with optional name search.
func (r *StoreRepository) ListPublic(ctx context.Context, search string, offset, limit int) ([]types.Store, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `
		SELECT COUNT(1)
		FROM stores
		WHERE status = 'APPROVED'
			AND deleted_at IS NULL
			AND ($1 = '' OR name ILIKE '%' || $1 || '%')`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE status = 'APPROVED'
			AND deleted_at IS NULL
			AND ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, search, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	stores, err := collectStores(rows)
	if err != nil {
		return nil, 0, err
	}
	return stores, total, nil
}

// FindSlugs returns every slug equal to base or derived from it
// ("base", "base-1", ...), for unique slug generation.
func (r *StoreRepository) FindSlugs(ctx context.Context, base string) ([]string, error) {
	const query = `
		SELECT slug
		FROM stores
		WHERE slug = $1
			OR slug LIKE $1 || '-%'`
	return collectSlugs(r.db.QueryContext(ctx, query, base))
}

func (r *StoreRepository) UpdateStatus(ctx context.Context, id string, status types.StoreStatus, isOpen bool) (types.Store, error) {
	const query = `
		UPDATE stores
		SET status = $2,
			is_open = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + storeColumns
	return scanStore(r.db.QueryRowContext(ctx, query, id, status, isOpen))
}

func (r *StoreRepository) SetOpen(ctx context.Context, id string, isOpen bool) (types.Store, error) {
	const query = `
		UPDATE stores
		SET is_open = $2,
			updated_at = now()
		WHERE id = $1
			AND deleted_at IS NULL
		RETURNING ` + storeColumns
	return scanStore(r.db.QueryRowContext(ctx, query, id, isOpen))
}

func (r *StoreRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
		UPDATE stores
		SET deleted_at = now(),
			updated_at = now()
		WHERE id = $1
			AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func collectStores(rows *sql.Rows) ([]types.Store, error) {
	var stores []types.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func collectSlugs(rows *sql.Rows, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}
