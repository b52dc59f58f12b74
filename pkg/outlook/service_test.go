package outlook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoReturnsAPIErrorWithStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"ResourceNotFound"}}`))
	}))
	defer server.Close()

	service := NewServiceWithBaseURL(server.URL, nil)
	_, err := service.GetSubscription(context.Background(), "token", "sub-1")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "ResourceNotFound")
}

func TestStatusCodeUnknownError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("timeout")))
	assert.False(t, IsNotFound(errors.New("timeout")))
}

func TestRenewSubscriptionPatchesExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/subscriptions/sub-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sub-1"}`))
	}))
	defer server.Close()

	service := NewServiceWithBaseURL(server.URL, nil)
	renewed, err := service.RenewSubscription(context.Background(), "token", "sub-1")

	require.NoError(t, err)
	assert.Equal(t, "sub-1", renewed.ID)
}

func TestCountInboxMessagesSinceEncodesQuery(t *testing.T) {
	since := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	var served bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
		require.Equal(t, "/me/mailFolders('inbox')/messages", r.URL.Path)
		require.Equal(t, "receivedDateTime ge 2026-08-31T12:00:00Z", r.URL.Query().Get("$filter"))
		require.Equal(t, "id", r.URL.Query().Get("$select"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[{"id":"m1"},{"id":"m2"},{"id":"m3"}]}`))
	}))
	defer server.Close()

	service := NewServiceWithBaseURL(server.URL, nil)
	count, err := service.CountInboxMessagesSince(context.Background(), "token", since)

	require.NoError(t, err)
	assert.True(t, served, "request must reach the handler, not die in request-target parsing")
	assert.Equal(t, 3, count)
}

func TestDeleteSubscriptionNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	service := NewServiceWithBaseURL(server.URL, nil)
	assert.NoError(t, service.DeleteSubscription(context.Background(), "token", "sub-1"))
}
