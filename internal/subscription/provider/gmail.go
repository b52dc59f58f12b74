package provider

import (
	"context"
	"errors"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/pkg/gmail"
)

// gmailClient adapts the Gmail watch API to the Client interface. The watch
// topic is shared; correlation back to the account happens through the
// emailAddress Gmail puts on every Pub/Sub notification.
//
// Tokens arrive already resolved by the credential resolver.
type gmailClient struct {
	service *gmail.Service
	// Full topic resource name: projects/<id>/topics/<name>
	topicName string
	timeout   time.Duration
}

func NewGmailClient(service *gmail.Service, topicName string, timeout time.Duration) Client {
	return &gmailClient{
		service:   service,
		topicName: topicName,
		timeout:   timeout,
	}
}

func (c *gmailClient) Create(ctx context.Context, account *accountdomain.Account, token string) (*subdomain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.service.Watch(ctx, token, c.topicName)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	// Gmail identifies the watch by mailbox, not by a subscription id; the
	// topic name stands in as the stored identifier. No expiry is stored:
	// the watch is re-registered on the validation cadence, well inside
	// Gmail's 7-day watch window.
	return &subdomain.Subscription{
		ID:        c.topicName,
		Expiry:    nil,
		HistoryID: result.HistoryID,
	}, nil
}

func (c *gmailClient) Renew(ctx context.Context, account *accountdomain.Account, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// A gmail watch is renewed by re-registering it. There is no
	// "subscription gone" answer to report; failure is either transient or
	// a rejected credential.
	_, err := c.service.Watch(ctx, token, c.topicName)
	if err != nil {
		return false, c.classify(ctx, err)
	}
	return true, nil
}

func (c *gmailClient) Delete(ctx context.Context, account *accountdomain.Account, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.service.Stop(ctx, token); err != nil {
		if gmail.IsNotFound(err) {
			return true, nil
		}
		return false, c.classify(ctx, err)
	}
	return true, nil
}

func (c *gmailClient) Validate(ctx context.Context, account *accountdomain.Account, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, _, err := c.service.GetProfile(ctx, token); err != nil {
		err = c.classify(ctx, err)
		if subdomain.IsTransient(err) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (c *gmailClient) Lifetime() *time.Duration {
	return nil
}

func (c *gmailClient) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &subdomain.ProviderError{Provider: accountdomain.ProviderGmail, Transient: true, Err: err}
	}

	status := gmail.StatusCode(err)
	switch {
	case status == 404:
		return subdomain.ErrProviderNotFound
	case status == 429 || status >= 500 || status == 0:
		return &subdomain.ProviderError{Provider: accountdomain.ProviderGmail, Status: status, Transient: true, Err: err}
	default:
		return &subdomain.ProviderError{Provider: accountdomain.ProviderGmail, Status: status, Transient: false, Err: err}
	}
}
