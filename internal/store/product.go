package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/apiserver/types"
)

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, store_id, category_id, name, slug, description, price, stock,
	images, is_active, deleted_at, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (types.Product, error) {
	var p types.Product
	var imagesJSON []byte
	err := row.Scan(
		&p.ID,
		&p.StoreID,
		&p.CategoryID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Stock,
		&imagesJSON,
		&p.IsActive,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	_ = json.Unmarshal(imagesJSON, &p.Images)
	return p, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
			AND deleted_at IS NULL`
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (types.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE slug = $1
			AND deleted_at IS NULL`
	return scanProduct(r.db.QueryRowContext(ctx, query, slug))
}

func (r *ProductRepository) Create(ctx context.Context, p types.Product) (types.Product, error) {
	now := time.Now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return types.Product{}, err
	}

	const query = `
		INSERT INTO products (id, store_id, category_id, name, slug, description, price, stock,
			images, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.db.ExecContext(
		ctx,
		query,
		p.ID,
		p.StoreID,
		p.CategoryID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		imagesJSON,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Product{}, ErrConflict
		}
		return types.Product{}, err
	}
	return p, nil
}

func (r *ProductRepository) Update(ctx context.Context, p types.Product) (types.Product, error) {
	p.UpdatedAt = time.Now()

	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return types.Product{}, err
	}

	const query = `
		UPDATE products
		SET category_id = $2,
			name = $3,
			description = $4,
			price = $5,
			stock = $6,
			images = $7,
			is_active = $8,
			updated_at = $9
		WHERE id = $1
			AND deleted_at IS NULL`
	result, err := r.db.ExecContext(
		ctx,
		query,
		p.ID,
		p.CategoryID,
		p.Name,
		p.Description,
		p.Price,
		p.Stock,
		imagesJSON,
		p.IsActive,
		p.UpdatedAt,
	)
	if err != nil {
		return types.Product{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Product{}, err
	}
	if affected == 0 {
		return types.Product{}, ErrNotFound
	}
	return p, nil
}

func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
		UPDATE products
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

// List returns active, live products matching the query filters. Only
// products in APPROVED stores are visible publicly.
func (r *ProductRepository) List(ctx context.Context, q types.ProductQuery, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where, args := buildProductFilter(q)

	countQuery := `
		SELECT COUNT(1)
		FROM products p
		JOIN stores s ON s.id = p.store_id` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT p.id, p.store_id, p.category_id, p.name, p.slug, p.description, p.price, p.stock,
			p.images, p.is_active, p.deleted_at, p.created_at, p.updated_at
		FROM products p
		JOIN stores s ON s.id = p.store_id%s
		ORDER BY p.created_at DESC
		OFFSET $%d LIMIT $%d`, where, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]types.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListByStore returns every live product in a store, for the owning
// seller's dashboard (inactive products included).
func (r *ProductRepository) ListByStore(ctx context.Context, storeID string) ([]types.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1
			AND deleted_at IS NULL
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// FindSlugs returns every product slug equal to base or derived from it.
func (r *ProductRepository) FindSlugs(ctx context.Context, base string) ([]string, error) {
	const query = `
		SELECT slug
		FROM products
		WHERE slug = $1
			OR slug LIKE $1 || '-%'`
	return collectSlugs(r.db.QueryContext(ctx, query, base))
}

func buildProductFilter(q types.ProductQuery) (string, []any) {
	clauses := []string{
		"p.deleted_at IS NULL",
		"p.is_active = TRUE",
		"s.status = 'APPROVED'",
		"s.deleted_at IS NULL",
	}
	var args []any

	if q.Search != "" {
		args = append(args, q.Search)
		clauses = append(clauses, fmt.Sprintf("p.name ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if q.CategoryID != "" {
		args = append(args, q.CategoryID)
		clauses = append(clauses, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if q.StoreID != "" {
		args = append(args, q.StoreID)
		clauses = append(clauses, fmt.Sprintf("p.store_id = $%d", len(args)))
	}
	if q.MinPrice > 0 {
		args = append(args, q.MinPrice)
		clauses = append(clauses, fmt.Sprintf("p.price >= $%d", len(args)))
	}
	if q.MaxPrice > 0 {
		args = append(args, q.MaxPrice)
		clauses = append(clauses, fmt.Sprintf("p.price <= $%d", len(args)))
	}

	return "\n\t\tWHERE " + strings.Join(clauses, "\n\t\t\tAND "), args
}
