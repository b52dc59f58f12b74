package identity

import (
	"errors"
	"testing"

	accountdomain "mailsync-backend/internal/account/domain"
	subdomain "mailsync-backend/internal/subscription/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"plain local part", "alice@example.com", "alice"},
		{"uppercase folded", "Bob.Smith@example.com", "bobsmith"},
		{"dots and plus stripped", "a.x+tag@example.com", "axtag"},
		{"digits kept", "user123@example.com", "user123"},
		{"only symbols yields empty", "._-+@example.com", ""},
		{"no at sign", "bareword", "bareword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &accountdomain.Account{Email: tt.email}
			assert.Equal(t, tt.expected, Derive(account))
		})
	}
}

func TestDeriveFallbackDeterministic(t *testing.T) {
	account := &accountdomain.Account{
		ID:           "acc-1",
		Email:        "alice@example.com",
		RoutingNonce: "nonce-1",
	}

	first := DeriveFallback(account)
	second := DeriveFallback(account)

	assert.Equal(t, first, second)
	assert.Len(t, first, 17)
	assert.Equal(t, byte('k'), first[0])
}

func TestDeriveFallbackDistinctAccounts(t *testing.T) {
	a := &accountdomain.Account{ID: "acc-1", Email: "alice@example.com", RoutingNonce: "n1"}
	b := &accountdomain.Account{ID: "acc-2", Email: "alice@other.com", RoutingNonce: "n2"}

	assert.NotEqual(t, DeriveFallback(a), DeriveFallback(b))
}

func TestAssignSimpleFormFree(t *testing.T) {
	account := &accountdomain.Account{ID: "acc-1", Email: "alice@example.com", RoutingNonce: "n1"}

	key, err := Assign(account, func(string) (bool, error) { return false, nil })

	require.NoError(t, err)
	assert.Equal(t, "alice", key)
}

func TestAssignCollisionFallsBackToHash(t *testing.T) {
	// A second "alice" arriving after the first account claimed the simple
	// form gets the hash form instead.
	account := &accountdomain.Account{ID: "acc-2", Email: "alice@other.com", RoutingNonce: "n2"}

	key, err := Assign(account, func(candidate string) (bool, error) {
		return candidate == "alice", nil
	})

	require.NoError(t, err)
	assert.Equal(t, DeriveFallback(account), key)
}

func TestAssignEmptySimpleFormUsesHash(t *testing.T) {
	account := &accountdomain.Account{ID: "acc-3", Email: "._-@example.com", RoutingNonce: "n3"}

	key, err := Assign(account, func(string) (bool, error) { return false, nil })

	require.NoError(t, err)
	assert.Equal(t, DeriveFallback(account), key)
}

func TestAssignExhausted(t *testing.T) {
	account := &accountdomain.Account{ID: "acc-4", Email: "alice@example.com", RoutingNonce: "n4"}

	_, err := Assign(account, func(string) (bool, error) { return true, nil })

	assert.ErrorIs(t, err, subdomain.ErrKeyExhausted)
}

func TestAssignPropagatesLookupError(t *testing.T) {
	account := &accountdomain.Account{ID: "acc-5", Email: "alice@example.com", RoutingNonce: "n5"}
	boom := errors.New("db down")

	_, err := Assign(account, func(string) (bool, error) { return false, boom })

	assert.ErrorIs(t, err, boom)
}
