package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Graph subscriptions cap out near three days for mail resources
const MaxSubscriptionLifetime = 71 * time.Hour

// Service talks to the Microsoft Graph subscription API
type Service struct {
	baseURL    string
	httpClient *http.Client
}

func NewService() *Service {
	return &Service{
		baseURL:    graphBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewServiceWithBaseURL is used by tests to point at a local server
func NewServiceWithBaseURL(baseURL string, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{baseURL: baseURL, httpClient: client}
}

// APIError is a non-2xx Graph response
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error: status %d: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a Graph 404
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode extracts the HTTP status from a Graph error, 0 if unknown
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	ChangeType         string    `json:"changeType,omitempty"`
	NotificationURL    string    `json:"notificationUrl,omitempty"`
	Resource           string    `json:"resource,omitempty"`
	ExpirationDateTime time.Time `json:"expirationDateTime,omitempty"`
	ClientState        string    `json:"clientState,omitempty"`
}

// CreateSubscription registers a change notification subscription for the
// mailbox inbox. clientState is the correlation value echoed back on every
// notification.
func (s *Service) CreateSubscription(ctx context.Context, accessToken, notificationURL, clientState string) (*Subscription, error) {
	sub := Subscription{
		ChangeType:         "created",
		NotificationURL:    notificationURL,
		Resource:           "me/mailFolders('inbox')/messages",
		ExpirationDateTime: time.Now().UTC().Add(MaxSubscriptionLifetime),
		ClientState:        clientState,
	}

	var created Subscription
	if err := s.do(ctx, http.MethodPost, "/subscriptions", accessToken, &sub, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// RenewSubscription extends an existing subscription's expiry
func (s *Service) RenewSubscription(ctx context.Context, accessToken, subscriptionID string) (*Subscription, error) {
	patch := map[string]interface{}{
		"expirationDateTime": time.Now().UTC().Add(MaxSubscriptionLifetime).Format(time.RFC3339),
	}

	var renewed Subscription
	if err := s.do(ctx, http.MethodPatch, "/subscriptions/"+url.PathEscape(subscriptionID), accessToken, patch, &renewed); err != nil {
		return nil, err
	}
	return &renewed, nil
}

// DeleteSubscription removes a subscription. The caller treats 404 as success.
func (s *Service) DeleteSubscription(ctx context.Context, accessToken, subscriptionID string) error {
	return s.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(subscriptionID), accessToken, nil, nil)
}

// GetSubscription fetches a subscription to confirm it still exists
func (s *Service) GetSubscription(ctx context.Context, accessToken, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := s.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(subscriptionID), accessToken, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CountInboxMessagesSince returns how many inbox messages arrived after the
// given time. Used by the sync path, where only the count is needed.
func (s *Service) CountInboxMessagesSince(ctx context.Context, accessToken string, since time.Time) (int, error) {
	query := url.Values{}
	query.Set("$select", "id")
	query.Set("$top", "50")
	query.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339)))
	path := "/me/mailFolders('inbox')/messages?" + query.Encode()

	var resp struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := s.do(ctx, http.MethodGet, path, accessToken, nil, &resp); err != nil {
		return 0, err
	}
	return len(resp.Value), nil
}

func (s *Service) do(ctx context.Context, method, path, accessToken string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unable to decode graph response: %w", err)
		}
	}
	return nil
}
