package types

import "time"

// Product is a catalog item listed under a store. Price is stored in the
// smallest currency unit to avoid floating-point rounding.
type Product struct {
	ID          string     `json:"id" db:"id"`
	StoreID     string     `json:"store_id" db:"store_id"`
	CategoryID  string     `json:"category_id" db:"category_id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description string     `json:"description" db:"description"`
	Price       int64      `json:"price" db:"price"`
	Stock       int        `json:"stock" db:"stock"`
	Images      []string   `json:"images" db:"images"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	DeletedAt   *time.Time `json:"-" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ProductQuery carries list filters parsed from the request.
type ProductQuery struct {
	Search     string
	CategoryID string
	StoreID    string
	MinPrice   int64
	MaxPrice   int64
}
