package gmail

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Service talks to the Gmail API with access tokens the credential resolver
// has already refreshed; no refresh handling happens at this layer.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// getGmailService creates a Gmail client authorized with the bearer token
func (s *Service) getGmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return srv, nil
}

// WatchResult carries what the Watch call registered remotely. The watch's
// server-side expiry is not surfaced: re-watching on the validation cadence
// keeps it fresh, so nothing downstream tracks it.
type WatchResult struct {
	HistoryID uint64
}

// Watch registers push notifications for the account's mailbox on the given
// Pub/Sub topic. Gmail allows a single watch per mailbox, so any existing
// watch is stopped first.
func (s *Service) Watch(ctx context.Context, accessToken, topicName string) (*WatchResult, error) {
	srv, err := s.getGmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	// Avoid "Only one user push notification client allowed"
	_ = srv.Users.Stop("me").Context(ctx).Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to watch mailbox: %w", err)
	}

	return &WatchResult{HistoryID: resp.HistoryId}, nil
}

// Stop stops push notifications for the account's mailbox
func (s *Service) Stop(ctx context.Context, accessToken string) error {
	srv, err := s.getGmailService(ctx, accessToken)
	if err != nil {
		return err
	}

	err = srv.Users.Stop("me").Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}

	return nil
}

// GetProfile confirms the mailbox is reachable with the current token and
// returns its email address and current history id
func (s *Service) GetProfile(ctx context.Context, accessToken string) (string, uint64, error) {
	srv, err := s.getGmailService(ctx, accessToken)
	if err != nil {
		return "", 0, err
	}

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to get profile: %w", err)
	}

	return profile.EmailAddress, profile.HistoryId, nil
}

// HistoryResult summarizes an incremental history walk
type HistoryResult struct {
	MessagesAdded int
	NewHistoryID  uint64
}

// ListHistory walks message-added history records from startHistoryID.
// Gmail returns 404 when the start id has aged out of the history window;
// the caller reseeds the cursor from the current profile.
func (s *Service) ListHistory(ctx context.Context, accessToken string, startHistoryID uint64) (*HistoryResult, error) {
	srv, err := s.getGmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	result := &HistoryResult{NewHistoryID: startHistoryID}
	pageToken := ""

	for {
		call := srv.Users.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list history: %w", err)
		}

		for _, h := range resp.History {
			result.MessagesAdded += len(h.MessagesAdded)
			if h.Id > result.NewHistoryID {
				result.NewHistoryID = h.Id
			}
		}
		if resp.HistoryId > result.NewHistoryID {
			result.NewHistoryID = resp.HistoryId
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return result, nil
}

// IsNotFound reports whether err is a Gmail API 404
func IsNotFound(err error) bool {
	return StatusCode(err) == 404
}

// StatusCode extracts the HTTP status from a Gmail API error, 0 if unknown
func StatusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
