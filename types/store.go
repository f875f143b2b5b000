package types

import "time"

// StoreStatus is the moderation state of a seller's store.
type StoreStatus string

const (
	StorePending   StoreStatus = "PENDING"
	StoreApproved  StoreStatus = "APPROVED"
	StoreRejected  StoreStatus = "REJECTED"
	StoreSuspended StoreStatus = "SUSPENDED"
)

// Store is a seller-owned storefront. Only APPROVED stores are visible
// publicly; PENDING/REJECTED/SUSPENDED stores are hidden from customers.
type Store struct {
	ID          string      `json:"id" db:"id"`
	SellerID    string      `json:"seller_id" db:"seller_id"`
	Name        string      `json:"name" db:"name"`
	Slug        string      `json:"slug" db:"slug"`
	Description string      `json:"description,omitempty" db:"description"`
	Logo        string      `json:"logo,omitempty" db:"logo"`
	Banner      string      `json:"banner,omitempty" db:"banner"`
	Address     string      `json:"address,omitempty" db:"address"`
	Status      StoreStatus `json:"status" db:"status"`
	IsOpen      bool        `json:"is_open" db:"is_open"`
	DeletedAt   *time.Time  `json:"-" db:"deleted_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}
