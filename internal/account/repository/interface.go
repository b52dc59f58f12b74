package repository

import (
	accountdomain "mailsync-backend/internal/account/domain"
)

// AccountRepository abstracts account persistence.
// UpdateSyncState is the atomic conditional-write primitive the reconciler
// and the webhook router coordinate through: the update is applied only when
// every precondition column still holds its expected value, and the bool
// result reports whether it did.
type AccountRepository interface {
	Create(account *accountdomain.Account) error
	Update(account *accountdomain.Account) error
	FindByID(id string) (*accountdomain.Account, error)
	FindByEmail(email string) (*accountdomain.Account, error)
	FindByRoutingKey(provider, routingKey string) (*accountdomain.Account, error)
	FindActive() ([]*accountdomain.Account, error)
	FindWatching() ([]*accountdomain.Account, error)
	// FindOrphaned returns accounts that still hold a remote subscription id
	// but are no longer active
	FindOrphaned() ([]*accountdomain.Account, error)
	UpdateSyncState(accountID string, fields map[string]interface{}, precondition map[string]interface{}) (bool, error)
	// UpdateCredentials stores a refreshed credential bundle without touching
	// any other column, so a token refresh can never overwrite sync state
	// written concurrently by the reconciler
	UpdateCredentials(accountID string, fields map[string]interface{}) error
	RoutingKeyTaken(provider, routingKey, excludeAccountID string) (bool, error)
}

// DeviceTokenRepository stores FCM registration tokens per account
type DeviceTokenRepository interface {
	Register(token *accountdomain.DeviceToken) error
	GetTokensByAccountID(accountID string) ([]accountdomain.DeviceToken, error)
	DeleteToken(token string) error
}
