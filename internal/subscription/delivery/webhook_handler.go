package delivery

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	accountdomain "mailsync-backend/internal/account/domain"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/internal/subscription/usecase"

	"github.com/gin-gonic/gin"
)

// WebhookHandler is the receive path for provider push notifications
type WebhookHandler struct {
	router *usecase.Router
}

func NewWebhookHandler(router *usecase.Router) *WebhookHandler {
	return &WebhookHandler{router: router}
}

// gmailPushEnvelope is the Pub/Sub push wrapper around a gmail notification
type gmailPushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type gmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// HandleGmail receives Pub/Sub push deliveries of gmail mailbox changes
func (h *WebhookHandler) HandleGmail(c *gin.Context) {
	var envelope gmailPushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": subdomain.ErrPayloadDecode.Error()})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": subdomain.ErrPayloadDecode.Error()})
		return
	}

	var notification gmailNotification
	if err := json.Unmarshal(payload, &notification); err != nil || notification.EmailAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": subdomain.ErrPayloadDecode.Error()})
		return
	}

	outcome, err := h.router.Route(subdomain.Notification{
		Provider:     accountdomain.ProviderGmail,
		EmailAddress: notification.EmailAddress,
		HistoryID:    notification.HistoryID,
	})
	if err != nil {
		log.Printf("[Webhook] Gmail route error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "routing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

// outlookEnvelope is the Graph change-notification batch
type outlookEnvelope struct {
	Value []struct {
		SubscriptionID string `json:"subscriptionId"`
		ClientState    string `json:"clientState"`
		ChangeType     string `json:"changeType"`
		Resource       string `json:"resource"`
	} `json:"value"`
}

// HandleOutlook receives Graph change notifications. A request carrying a
// validationToken is the endpoint-ownership handshake: the token is echoed
// back verbatim as plain text, and nothing is dispatched.
func (h *WebhookHandler) HandleOutlook(c *gin.Context) {
	if token := c.Query("validationToken"); token != "" {
		c.String(http.StatusOK, "%s", token)
		return
	}

	var envelope outlookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil || envelope.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": subdomain.ErrPayloadDecode.Error()})
		return
	}

	outcomes := make([]subdomain.RouteOutcome, 0, len(envelope.Value))
	for _, item := range envelope.Value {
		outcome, err := h.router.Route(subdomain.Notification{
			Provider:   accountdomain.ProviderOutlook,
			RoutingKey: item.ClientState,
			ChangeType: item.ChangeType,
			Resource:   item.Resource,
		})
		if err != nil {
			log.Printf("[Webhook] Outlook route error: %v", err)
			outcome = subdomain.OutcomeRejected
		}
		outcomes = append(outcomes, outcome)
	}

	// Graph must always get a success for delivered notifications,
	// regardless of per-item outcome, or it enters retry storms
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}
