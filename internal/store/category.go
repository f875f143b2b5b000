package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/apiserver/types"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, slug, COALESCE(icon, ''), is_active, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (types.Category, error) {
	var c types.Category
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Icon,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]types.Category, error) {
	const query = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE is_active = TRUE
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []types.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (types.Category, error) {
	const query = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE id = $1`
	return scanCategory(r.db.QueryRowContext(ctx, query, id))
}

func (r *CategoryRepository) Create(ctx context.Context, c types.Category) (types.Category, error) {
	now := time.Now()
	c.ID = uuid.NewString()
	c.IsActive = true
	c.CreatedAt = now
	c.UpdatedAt = now

	const query = `
		INSERT INTO categories (id, name, slug, icon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), TRUE, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Slug, c.Icon, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Category{}, ErrConflict
		}
		return types.Category{}, err
	}
	return c, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c types.Category) (types.Category, error) {
	c.UpdatedAt = time.Now()

	const query = `
		UPDATE categories
		SET name = $2,
			icon = NULLIF($3, ''),
			is_active = $4,
			updated_at = $5
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Icon, c.IsActive, c.UpdatedAt)
	if err != nil {
		return types.Category{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Category{}, err
	}
	if affected == 0 {
		return types.Category{}, ErrNotFound
	}
	return c, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1`
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
