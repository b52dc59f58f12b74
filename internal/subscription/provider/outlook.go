package provider

import (
	"context"
	"errors"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/pkg/outlook"
)

// outlookClient adapts the Graph subscription API to the Client interface.
// The routing key travels as the subscription clientState and comes back on
// every notification.
type outlookClient struct {
	service *outlook.Service
	// Where Graph delivers notifications, e.g. https://host/api/webhooks/outlook
	notificationURL string
	timeout         time.Duration
}

func NewOutlookClient(service *outlook.Service, notificationURL string, timeout time.Duration) Client {
	return &outlookClient{
		service:         service,
		notificationURL: notificationURL,
		timeout:         timeout,
	}
}

func (c *outlookClient) Create(ctx context.Context, account *accountdomain.Account, token string) (*subdomain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sub, err := c.service.CreateSubscription(ctx, token, c.notificationURL, account.RoutingKey)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	expiry := sub.ExpirationDateTime
	return &subdomain.Subscription{
		ID:     sub.ID,
		Expiry: &expiry,
	}, nil
}

func (c *outlookClient) Renew(ctx context.Context, account *accountdomain.Account, token string) (bool, error) {
	if account.SubscriptionID == nil {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.service.RenewSubscription(ctx, token, *account.SubscriptionID)
	if err != nil {
		err = c.classify(ctx, err)
		if errors.Is(err, subdomain.ErrProviderNotFound) {
			// Gone at the provider: signal the recreate fallback
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *outlookClient) Delete(ctx context.Context, account *accountdomain.Account, token string) (bool, error) {
	if account.SubscriptionID == nil {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.service.DeleteSubscription(ctx, token, *account.SubscriptionID); err != nil {
		err = c.classify(ctx, err)
		if errors.Is(err, subdomain.ErrProviderNotFound) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (c *outlookClient) Validate(ctx context.Context, account *accountdomain.Account, token string) (bool, error) {
	if account.SubscriptionID == nil {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.service.GetSubscription(ctx, token, *account.SubscriptionID); err != nil {
		err = c.classify(ctx, err)
		if errors.Is(err, subdomain.ErrProviderNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *outlookClient) Lifetime() *time.Duration {
	lifetime := outlook.MaxSubscriptionLifetime
	return &lifetime
}

func (c *outlookClient) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// A timed-out call never means "confirmed absent"
		return &subdomain.ProviderError{Provider: accountdomain.ProviderOutlook, Transient: true, Err: err}
	}

	status := outlook.StatusCode(err)
	switch {
	case status == 404:
		return subdomain.ErrProviderNotFound
	case status == 429 || status >= 500 || status == 0:
		return &subdomain.ProviderError{Provider: accountdomain.ProviderOutlook, Status: status, Transient: true, Err: err}
	default:
		return &subdomain.ProviderError{Provider: accountdomain.ProviderOutlook, Status: status, Transient: false, Err: err}
	}
}
