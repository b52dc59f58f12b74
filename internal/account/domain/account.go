package domain

import "time"

const (
	ProviderGmail   = "gmail"
	ProviderOutlook = "outlook"
)

type Account struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Provider string `json:"provider" gorm:"index;not null"` // "gmail" or "outlook"
	Active   bool   `json:"active" gorm:"index"`

	// Credential bundle. Tokens are encrypted at rest (pkg/secrets).
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"-"`

	// Sync state, owned by the reconciler and the webhook router
	SubscriptionID     *string    `json:"subscription_id"`
	RoutingKey         string     `json:"routing_key" gorm:"index"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry"`
	Watching           bool       `json:"watching" gorm:"index"`
	LastValidatedAt    *time.Time `json:"last_validated_at"`
	HistoryID          uint64     `json:"history_id"` // gmail cursor
	// RoutingNonce is assigned once at account creation and feeds the
	// hash fallback of the routing key, keeping regeneration deterministic.
	RoutingNonce string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCredential reports whether the account carries a usable credential bundle
func (a *Account) HasCredential() bool {
	return a.AccessToken != "" || a.RefreshToken != ""
}

// SubscriptionExpired reports whether the remote subscription has lapsed.
// Gmail-style topics carry no expiry and never report expired here.
func (a *Account) SubscriptionExpired(now time.Time) bool {
	return a.SubscriptionExpiry != nil && !a.SubscriptionExpiry.After(now)
}

// DeviceToken is an FCM registration token owned by an account
type DeviceToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	AccountID string    `json:"account_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}
