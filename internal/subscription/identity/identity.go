package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	accountdomain "mailsync-backend/internal/account/domain"
	subdomain "mailsync-backend/internal/subscription/domain"
)

// Derive returns the simple routing key form: the lowercased local part of
// the account email with everything non-alphanumeric stripped.
func Derive(account *accountdomain.Account) string {
	local := account.Email
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	local = strings.ToLower(local)

	var b strings.Builder
	for _, c := range local {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// DeriveFallback returns the hash form used when the simple form is empty or
// already taken. The input includes the account's stored routing nonce, so
// regeneration is deterministic for the life of the account.
func DeriveFallback(account *accountdomain.Account) string {
	local := account.Email
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}

	sum := sha256.Sum256([]byte(strings.ToLower(local) + "|" + account.ID + "|" + account.RoutingNonce))
	return "k" + hex.EncodeToString(sum[:])[:16]
}

// Assign picks the routing key for an account about to register its first
// subscription. The first account to claim a simple form keeps it; a
// latecomer that collides falls back to the hash form. A taken hash form is
// not resolvable automatically.
func Assign(account *accountdomain.Account, taken func(key string) (bool, error)) (string, error) {
	key := Derive(account)
	if key != "" {
		inUse, err := taken(key)
		if err != nil {
			return "", err
		}
		if !inUse {
			return key, nil
		}
	}

	fallback := DeriveFallback(account)
	inUse, err := taken(fallback)
	if err != nil {
		return "", err
	}
	if inUse {
		return "", subdomain.ErrKeyExhausted
	}
	return fallback, nil
}
