package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	accountrepo "mailsync-backend/internal/account/repository"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/internal/subscription/identity"
	"mailsync-backend/internal/subscription/provider"
)

// TokenResolver produces a usable bearer token for an account
type TokenResolver interface {
	Resolve(ctx context.Context, account *accountdomain.Account) (string, error)
}

// ClientRegistry resolves an account to its provider subscription client
type ClientRegistry interface {
	For(account *accountdomain.Account) (provider.Client, error)
}

// Re-validate a nominally watching subscription after this long
const validateEvery = 24 * time.Hour

// Engine reconciles desired subscription state (active accounts should be
// watching) against remote provider state, one account at a time.
type Engine struct {
	accounts accountrepo.AccountRepository
	resolver TokenResolver
	registry ClientRegistry

	// Courtesy pause between accounts so sequential provider calls do not
	// burst into rate limits
	accountDelay  time.Duration
	renewalWindow time.Duration
}

func NewEngine(accounts accountrepo.AccountRepository, resolver TokenResolver, registry ClientRegistry, accountDelay, renewalWindow time.Duration) *Engine {
	return &Engine{
		accounts:      accounts,
		resolver:      resolver,
		registry:      registry,
		accountDelay:  accountDelay,
		renewalWindow: renewalWindow,
	}
}

// ReconcileAll is the hourly pass: walk every account that is active or
// still carries subscription state and bring each one to its desired state.
func (e *Engine) ReconcileAll(ctx context.Context) {
	accounts, err := e.accounts.FindActive()
	if err != nil {
		log.Printf("[Reconciler] Failed to list active accounts: %v", err)
		return
	}

	watching, err := e.accounts.FindWatching()
	if err != nil {
		log.Printf("[Reconciler] Failed to list watching accounts: %v", err)
		return
	}

	// Active accounts first, then watching accounts not already covered
	// (those went inactive while holding a subscription)
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		seen[a.ID] = true
	}
	for _, a := range watching {
		if !seen[a.ID] {
			accounts = append(accounts, a)
		}
	}

	log.Printf("[Reconciler] Reconciling %d accounts", len(accounts))

	for i, account := range accounts {
		if ctx.Err() != nil {
			log.Printf("[Reconciler] Run cancelled after %d accounts", i)
			return
		}

		if err := e.ReconcileAccount(ctx, account); err != nil {
			log.Printf("[Reconciler] Account %s (%s): %v", account.ID, account.Email, err)
		}

		if i < len(accounts)-1 && e.accountDelay > 0 {
			select {
			case <-time.After(e.accountDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// ReconcileAccount runs the per-account state machine once. Errors are
// account-scoped; the next tick retries.
func (e *Engine) ReconcileAccount(ctx context.Context, account *accountdomain.Account) error {
	if !account.Active {
		if account.Watching || account.SubscriptionID != nil {
			return e.cleanup(ctx, account)
		}
		return nil
	}

	token, err := e.resolver.Resolve(ctx, account)
	if err != nil {
		var credErr *subdomain.CredentialError
		if errors.As(err, &credErr) && account.Watching {
			// Credential gone while watching: the remote subscription cannot
			// be deleted without a token, but local state must not keep
			// claiming it is live. The daily sweep retries the remote delete.
			e.clearSyncState(account)
		}
		return err
	}

	client, err := e.registry.For(account)
	if err != nil {
		return err
	}

	if !account.Watching || account.SubscriptionID == nil {
		return e.create(ctx, account, client, token)
	}

	now := time.Now()

	if account.SubscriptionExpired(now) {
		// Lapsed remotely; recreate rather than renew a dead registration
		return e.create(ctx, account, client, token)
	}

	needsRenewal := account.SubscriptionExpiry != nil && account.SubscriptionExpiry.Before(now.Add(e.renewalWindow))

	stale := account.LastValidatedAt == nil || now.Sub(*account.LastValidatedAt) > validateEvery
	if !needsRenewal && stale {
		ok, err := client.Validate(ctx, account, token)
		if err != nil {
			// Transient: no state change, retry next tick
			return err
		}
		if ok {
			e.markValidated(account, now)
			// A validated gmail-style watch is still re-upped on the same
			// cadence, since its registration ages out server-side
			if client.Lifetime() == nil {
				needsRenewal = true
			}
		} else {
			// Confirmed gone: recreate
			return e.create(ctx, account, client, token)
		}
	}

	if needsRenewal {
		return e.renew(ctx, account, client, token)
	}

	return nil
}

// create registers a new subscription and stores the resulting sync state.
// The routing key is assigned on first registration and kept stable after.
func (e *Engine) create(ctx context.Context, account *accountdomain.Account, client provider.Client, token string) error {
	if account.RoutingKey == "" {
		key, err := identity.Assign(account, func(candidate string) (bool, error) {
			return e.accounts.RoutingKeyTaken(account.Provider, candidate, account.ID)
		})
		if err != nil {
			return fmt.Errorf("routing key assignment: %w", err)
		}
		account.RoutingKey = key
		if err := e.accounts.Update(account); err != nil {
			return err
		}
		log.Printf("[Reconciler] Assigned routing key %q to account %s", key, account.ID)
	}

	sub, err := client.Create(ctx, account, token)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	now := time.Now()
	fields := map[string]interface{}{
		"subscription_id":     sub.ID,
		"subscription_expiry": sub.Expiry,
		"watching":            true,
		"last_validated_at":   now,
	}
	// First registration seeds the gmail cursor; an established cursor is
	// never rewound by a re-create
	if sub.HistoryID > 0 && account.HistoryID == 0 {
		fields["history_id"] = sub.HistoryID
	}

	applied, err := e.accounts.UpdateSyncState(account.ID, fields, map[string]interface{}{"active": true})
	if err != nil {
		return err
	}
	if !applied {
		// Account was deactivated between the provider call and the write;
		// the daily sweep will collect the remote registration
		log.Printf("[Reconciler] Account %s deactivated mid-create, subscription %s left for sweep", account.ID, sub.ID)
		return nil
	}

	account.SubscriptionID = &sub.ID
	account.SubscriptionExpiry = sub.Expiry
	account.Watching = true
	log.Printf("[Reconciler] Created subscription %s for account %s", sub.ID, account.ID)
	return nil
}

// renew extends the live subscription, falling back to exactly one create
// when the provider reports it gone.
func (e *Engine) renew(ctx context.Context, account *accountdomain.Account, client provider.Client, token string) error {
	renewed, err := client.Renew(ctx, account, token)
	if err != nil {
		return fmt.Errorf("renew subscription: %w", err)
	}

	if !renewed {
		log.Printf("[Reconciler] Subscription gone for account %s, recreating", account.ID)
		return e.create(ctx, account, client, token)
	}

	now := time.Now()
	fields := map[string]interface{}{
		"last_validated_at": now,
	}
	if lifetime := client.Lifetime(); lifetime != nil {
		fields["subscription_expiry"] = now.Add(*lifetime)
	}

	if _, err := e.accounts.UpdateSyncState(account.ID, fields, map[string]interface{}{"watching": true}); err != nil {
		return err
	}
	log.Printf("[Reconciler] Renewed subscription for account %s", account.ID)
	return nil
}

// cleanup deletes the remote subscription (best effort) and clears sync state
func (e *Engine) cleanup(ctx context.Context, account *accountdomain.Account) error {
	client, err := e.registry.For(account)
	if err != nil {
		return err
	}

	token, err := e.resolver.Resolve(ctx, account)
	if err == nil {
		deleted, derr := client.Delete(ctx, account, token)
		if derr != nil {
			return fmt.Errorf("delete subscription: %w", derr)
		}
		if !deleted {
			return fmt.Errorf("delete subscription for account %s did not complete", account.ID)
		}
	} else {
		log.Printf("[Reconciler] No credential to delete subscription for account %s, clearing local state only", account.ID)
	}

	e.clearSyncState(account)
	log.Printf("[Reconciler] Cleaned up subscription state for account %s", account.ID)
	return nil
}

func (e *Engine) clearSyncState(account *accountdomain.Account) {
	fields := map[string]interface{}{
		"subscription_id":     nil,
		"subscription_expiry": nil,
		"watching":            false,
	}
	if _, err := e.accounts.UpdateSyncState(account.ID, fields, nil); err != nil {
		log.Printf("[Reconciler] Failed to clear sync state for account %s: %v", account.ID, err)
		return
	}
	account.SubscriptionID = nil
	account.SubscriptionExpiry = nil
	account.Watching = false
}

func (e *Engine) markValidated(account *accountdomain.Account, now time.Time) {
	if _, err := e.accounts.UpdateSyncState(account.ID, map[string]interface{}{"last_validated_at": now}, nil); err != nil {
		log.Printf("[Reconciler] Failed to record validation for account %s: %v", account.ID, err)
	}
	account.LastValidatedAt = &now
}

// CleanupSweep is the daily pass: collect subscriptions whose owning account
// is inactive, independent of what the hourly pass saw.
func (e *Engine) CleanupSweep(ctx context.Context) {
	orphans, err := e.accounts.FindOrphaned()
	if err != nil {
		log.Printf("[Sweep] Failed to list orphaned accounts: %v", err)
		return
	}

	if len(orphans) == 0 {
		log.Printf("[Sweep] No orphaned subscriptions")
		return
	}

	log.Printf("[Sweep] Cleaning %d orphaned subscriptions", len(orphans))
	for _, account := range orphans {
		if ctx.Err() != nil {
			return
		}
		if err := e.cleanup(ctx, account); err != nil {
			log.Printf("[Sweep] Account %s: %v", account.ID, err)
		}
		if e.accountDelay > 0 {
			time.Sleep(e.accountDelay)
		}
	}
}

// ReconcileByID reconciles a single account now. Admin surface.
func (e *Engine) ReconcileByID(ctx context.Context, accountID string) error {
	account, err := e.accounts.FindByID(accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account %s not found", accountID)
	}
	return e.ReconcileAccount(ctx, account)
}

// ListMissing returns active accounts that should be watching but are not
func (e *Engine) ListMissing() ([]*accountdomain.Account, error) {
	accounts, err := e.accounts.FindActive()
	if err != nil {
		return nil, err
	}

	var missing []*accountdomain.Account
	for _, a := range accounts {
		if !a.Watching || a.SubscriptionID == nil || a.SubscriptionExpired(time.Now()) {
			missing = append(missing, a)
		}
	}
	return missing, nil
}

// ForceRenewAll renews every watching account regardless of expiry window
func (e *Engine) ForceRenewAll(ctx context.Context) (int, error) {
	accounts, err := e.accounts.FindWatching()
	if err != nil {
		return 0, err
	}

	renewed := 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			break
		}

		token, err := e.resolver.Resolve(ctx, account)
		if err != nil {
			log.Printf("[Reconciler] Force renew, account %s: %v", account.ID, err)
			continue
		}
		client, err := e.registry.For(account)
		if err != nil {
			log.Printf("[Reconciler] Force renew, account %s: %v", account.ID, err)
			continue
		}
		if err := e.renew(ctx, account, client, token); err != nil {
			log.Printf("[Reconciler] Force renew, account %s: %v", account.ID, err)
			continue
		}
		renewed++

		if e.accountDelay > 0 {
			time.Sleep(e.accountDelay)
		}
	}
	return renewed, nil
}

// Status reports per-account sync state for the admin API
func (e *Engine) Status() ([]subdomain.AccountStatus, error) {
	accounts, err := e.accounts.FindActive()
	if err != nil {
		return nil, err
	}

	statuses := make([]subdomain.AccountStatus, 0, len(accounts))
	for _, a := range accounts {
		statuses = append(statuses, subdomain.AccountStatus{
			AccountID:          a.ID,
			Email:              a.Email,
			Provider:           a.Provider,
			Active:             a.Active,
			Watching:           a.Watching,
			SubscriptionID:     a.SubscriptionID,
			SubscriptionExpiry: a.SubscriptionExpiry,
			LastValidatedAt:    a.LastValidatedAt,
			HistoryID:          a.HistoryID,
		})
	}
	return statuses, nil
}
