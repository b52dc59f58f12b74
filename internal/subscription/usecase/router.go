package usecase

import (
	"log"

	accountdomain "mailsync-backend/internal/account/domain"
	accountrepo "mailsync-backend/internal/account/repository"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/internal/subscription/dispatch"
)

// Router resolves a decoded inbound notification to its owning account and
// hands the sync work to the dispatcher. It keeps no state of its own:
// provider redelivery of the same notification reaches the syncer twice, and
// the syncer's cursor handling bounds the rework.
type Router struct {
	accounts   accountrepo.AccountRepository
	dispatcher *dispatch.Dispatcher
}

func NewRouter(accounts accountrepo.AccountRepository, dispatcher *dispatch.Dispatcher) *Router {
	return &Router{
		accounts:   accounts,
		dispatcher: dispatcher,
	}
}

// Route moves one notification through Routed to a terminal outcome. An
// orphan (no owning account) is an expected steady-state occurrence, not an
// error: the daily sweep owns the cleanup.
func (r *Router) Route(n subdomain.Notification) (subdomain.RouteOutcome, error) {
	account, err := r.lookup(n)
	if err != nil {
		return subdomain.OutcomeRejected, err
	}

	if account == nil {
		log.Printf("[Webhook] Orphan notification (provider=%s, correlation=%q), no matching account", n.Provider, r.correlation(n))
		return subdomain.OutcomeOrphaned, nil
	}

	if !account.Active || !account.HasCredential() {
		// Retrying will not fix a deactivated or credential-less account,
		// so the provider still gets a success answer
		log.Printf("[Webhook] Dropping notification for account %s (active=%v)", account.ID, account.Active)
		return subdomain.OutcomeRejected, nil
	}

	cursor := n.HistoryID
	if cursor == 0 {
		cursor = account.HistoryID
	}

	if !r.dispatcher.Enqueue(dispatch.Job{Account: account, Cursor: cursor}) {
		// Queue saturated; the provider redelivers and the hourly pass
		// backfills, so the answer stays a success
		return subdomain.OutcomeRejected, nil
	}

	return subdomain.OutcomeDispatched, nil
}

func (r *Router) lookup(n subdomain.Notification) (*accountdomain.Account, error) {
	if n.EmailAddress != "" {
		return r.accounts.FindByEmail(n.EmailAddress)
	}
	if n.RoutingKey != "" {
		return r.accounts.FindByRoutingKey(n.Provider, n.RoutingKey)
	}
	return nil, nil
}

func (r *Router) correlation(n subdomain.Notification) string {
	if n.EmailAddress != "" {
		return n.EmailAddress
	}
	return n.RoutingKey
}
