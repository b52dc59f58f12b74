package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	accountrepo "mailsync-backend/internal/account/repository"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/pkg/config"
	"mailsync-backend/pkg/secrets"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// Refresh slightly ahead of expiry so a token never goes stale mid-call
const expirySkew = 2 * time.Minute

// CredentialResolver produces a usable bearer token for an account,
// refreshing and persisting the credential bundle when needed. Long-running
// loops re-resolve per account per tick instead of caching.
type CredentialResolver struct {
	accounts accountrepo.AccountRepository
	cipher   *secrets.Cipher
	configs  map[string]*oauth2.Config
}

func NewCredentialResolver(accounts accountrepo.AccountRepository, cipher *secrets.Cipher, cfg *config.Config) *CredentialResolver {
	return &CredentialResolver{
		accounts: accounts,
		cipher:   cipher,
		configs: map[string]*oauth2.Config{
			accountdomain.ProviderGmail: {
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
			},
			accountdomain.ProviderOutlook: {
				ClientID:     cfg.MSClientID,
				ClientSecret: cfg.MSClientSecret,
				Endpoint:     microsoft.AzureADEndpoint(cfg.MSTenantID),
			},
		},
	}
}

// Resolve returns a valid plaintext bearer token for the account. An
// expiring or expired token is refreshed and the new bundle is persisted
// before the token is returned.
func (r *CredentialResolver) Resolve(ctx context.Context, account *accountdomain.Account) (string, error) {
	if !account.HasCredential() {
		return "", &subdomain.CredentialError{Kind: subdomain.CredentialMissing}
	}

	accessToken, err := r.cipher.Decrypt(account.AccessToken)
	if err != nil {
		return "", &subdomain.CredentialError{Kind: subdomain.CredentialMissing, Err: err}
	}
	refreshToken, err := r.cipher.Decrypt(account.RefreshToken)
	if err != nil {
		return "", &subdomain.CredentialError{Kind: subdomain.CredentialMissing, Err: err}
	}

	if accessToken != "" && account.TokenExpiry != nil && account.TokenExpiry.After(time.Now().Add(expirySkew)) {
		return accessToken, nil
	}

	if refreshToken == "" {
		return "", &subdomain.CredentialError{Kind: subdomain.CredentialMissing, Err: errors.New("no refresh token")}
	}

	oauthCfg, ok := r.configs[account.Provider]
	if !ok {
		return "", &subdomain.CredentialError{Kind: subdomain.CredentialRejected, Err: errors.New("unknown provider")}
	}

	src := oauthCfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Minute), // force refresh
	})

	fresh, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			return "", &subdomain.CredentialError{Kind: subdomain.CredentialRejected, Err: err}
		}
		return "", &subdomain.CredentialError{Kind: subdomain.CredentialRefresh, Err: err}
	}

	if err := r.Persist(account, fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
		return "", &subdomain.CredentialError{Kind: subdomain.CredentialRefresh, Err: err}
	}

	return fresh.AccessToken, nil
}

// Persist encrypts and stores a (possibly refreshed) credential bundle. An
// empty refresh token means the provider did not rotate it; the stored one
// is kept. Only credential columns are written: the account copy in hand may
// be stale, and sync state belongs to the reconciler's conditional writes.
func (r *CredentialResolver) Persist(account *accountdomain.Account, accessToken, refreshToken string, expiry time.Time) error {
	encAccess, err := r.cipher.Encrypt(accessToken)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{"access_token": encAccess}
	account.AccessToken = encAccess
	if refreshToken != "" {
		encRefresh, err := r.cipher.Encrypt(refreshToken)
		if err != nil {
			return err
		}
		fields["refresh_token"] = encRefresh
		account.RefreshToken = encRefresh
	}
	if !expiry.IsZero() {
		fields["token_expiry"] = expiry
		account.TokenExpiry = &expiry
	}

	if err := r.accounts.UpdateCredentials(account.ID, fields); err != nil {
		log.Printf("[Credentials] Failed to persist refreshed token for account %s: %v", account.ID, err)
		return err
	}
	return nil
}
