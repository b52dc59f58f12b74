package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/internal/subscription/usecase"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// gmailNotification is the payload Gmail publishes on the watch topic
type gmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service is the Pub/Sub pull ingress for gmail notifications. It is an
// alternative to the HTTP push webhook: both feed the same Router, so a
// deployment can run whichever delivery mode its topic is configured for.
type Service struct {
	pubsubClient *pubsub.Client
	router       *usecase.Router
	projectID    string
	topicName    string
	subName      string
}

func NewService(projectID, topicName string, router *usecase.Router, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		pubsubClient: client,
		router:       router,
		projectID:    projectID,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
	}, nil
}

// Start ensures the subscription exists and blocks receiving messages until
// the context is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting ingress with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(msg)
		// Always ack: a notification the router cannot place is an orphan,
		// and redelivery will not change that
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(msg *pubsub.Message) {
	var notification gmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}
	if notification.EmailAddress == "" {
		log.Printf("[PubSub] Notification without email address, dropping")
		return
	}

	outcome, err := s.router.Route(subdomain.Notification{
		Provider:     accountdomain.ProviderGmail,
		EmailAddress: notification.EmailAddress,
		HistoryID:    notification.HistoryID,
	})
	if err != nil {
		log.Printf("[PubSub] Route error for %s: %v", notification.EmailAddress, err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId %d): %s", notification.EmailAddress, notification.HistoryID, outcome)
}
