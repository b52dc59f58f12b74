package domain

import "time"

// Subscription is the remote registration a provider client hands back.
// Expiry is nil for gmail-style topics that outlive their watch window only
// through re-registration.
type Subscription struct {
	ID     string
	Expiry *time.Time
	// HistoryID is the initial gmail cursor handed back by a watch
	// registration. Zero for outlook.
	HistoryID uint64
}

// Notification is the provider-agnostic form of one decoded inbound push
type Notification struct {
	Provider string
	// EmailAddress carries the gmail correlation value, RoutingKey the
	// outlook clientState. Exactly one is set per notification.
	EmailAddress string
	RoutingKey   string
	HistoryID    uint64
	ChangeType   string
	Resource     string
}

// RouteOutcome is the terminal state of one routed notification
type RouteOutcome string

const (
	OutcomeDispatched RouteOutcome = "dispatched"
	OutcomeRejected   RouteOutcome = "rejected"
	OutcomeOrphaned   RouteOutcome = "orphaned"
)

// AccountStatus is one row of the admin sync-status report
type AccountStatus struct {
	AccountID          string     `json:"account_id"`
	Email              string     `json:"email"`
	Provider           string     `json:"provider"`
	Active             bool       `json:"active"`
	Watching           bool       `json:"watching"`
	SubscriptionID     *string    `json:"subscription_id"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry"`
	LastValidatedAt    *time.Time `json:"last_validated_at"`
	HistoryID          uint64     `json:"history_id,omitempty"`
}
