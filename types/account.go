package types

import "time"

// Account links a local user to an external identity provider. The pair
// (user_id, provider_id) is unique, so repeated federated logins never
// duplicate the link.
type Account struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	AccountID  string    `json:"account_id" db:"account_id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
