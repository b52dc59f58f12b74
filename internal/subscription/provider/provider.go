package provider

import (
	"context"
	"fmt"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	subdomain "mailsync-backend/internal/subscription/domain"
)

// Client is the uniform subscription API both provider variants implement.
// Provider type is resolved to a Client exactly once per account; nothing
// above this package branches on provider type.
type Client interface {
	// Create registers a push subscription, supplying the account's routing
	// key (or email, for gmail) as the provider-visible correlation value
	Create(ctx context.Context, account *accountdomain.Account, token string) (*subdomain.Subscription, error)

	// Renew extends an existing subscription. The bool is false (with nil
	// error) when the provider reports the subscription gone, telling the
	// caller to fall back to Create.
	Renew(ctx context.Context, account *accountdomain.Account, token string) (bool, error)

	// Delete removes the subscription. Idempotent: not-found is success.
	Delete(ctx context.Context, account *accountdomain.Account, token string) (bool, error)

	// Validate confirms the subscription still exists remotely without
	// mutating anything
	Validate(ctx context.Context, account *accountdomain.Account, token string) (bool, error)

	// Lifetime is the provider's maximum subscription lifetime, used to
	// recompute the stored expiry after a successful renew. Nil for
	// providers whose registrations carry no client-visible expiry.
	Lifetime() *time.Duration
}

// Registry hands out the Client for an account's provider type
type Registry struct {
	clients map[string]Client
}

func NewRegistry(gmail, outlook Client) *Registry {
	return &Registry{
		clients: map[string]Client{
			accountdomain.ProviderGmail:   gmail,
			accountdomain.ProviderOutlook: outlook,
		},
	}
}

func (r *Registry) For(account *accountdomain.Account) (Client, error) {
	client, ok := r.clients[account.Provider]
	if !ok {
		return nil, fmt.Errorf("no subscription client for provider %q", account.Provider)
	}
	return client, nil
}
