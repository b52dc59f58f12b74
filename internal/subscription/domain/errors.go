package domain

import (
	"errors"
	"fmt"
)

// Credential failure kinds
const (
	CredentialMissing  = "missing"
	CredentialRefresh  = "refresh_failed"
	CredentialRejected = "provider_rejected"
)

// CredentialError halts reconciliation of a single account for the current
// tick; the next tick retries.
type CredentialError struct {
	Kind string
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("credential error (%s)", e.Kind)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// ProviderError is a provider API failure already classified at the client
// boundary. Transient failures are retried on the next tick with no state
// mutation; non-transient ones are surfaced to the admin API.
type ProviderError struct {
	Provider  string
	Status    int
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.Status, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a provider failure worth retrying next tick
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

var (
	// ErrProviderNotFound means the provider reports the subscription gone.
	// Success for delete, recreate signal for renew.
	ErrProviderNotFound = errors.New("subscription not found at provider")

	// ErrPayloadDecode marks a malformed inbound notification
	ErrPayloadDecode = errors.New("malformed notification payload")

	// ErrKeyExhausted means both the simple and the hash form of the routing
	// key collide. Manual intervention required.
	ErrKeyExhausted = errors.New("routing key fallback collision")
)
