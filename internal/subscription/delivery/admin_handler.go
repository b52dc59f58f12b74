package delivery

import (
	"net/http"

	"mailsync-backend/internal/subscription/engine"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the manual reconciliation surface: these operations
// are invoked by an operator, never by the scheduled loops.
type AdminHandler struct {
	engine    *engine.Engine
	scheduler *engine.Scheduler
}

func NewAdminHandler(eng *engine.Engine, scheduler *engine.Scheduler) *AdminHandler {
	return &AdminHandler{engine: eng, scheduler: scheduler}
}

// ReconcileAccount triggers reconciliation for one account
func (h *AdminHandler) ReconcileAccount(c *gin.Context) {
	accountID := c.Param("id")

	if err := h.engine.ReconcileByID(c.Request.Context(), accountID); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      err.Error(),
			"account_id": accountID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "reconciled": true})
}

// ListMissing reports active accounts without a live subscription
func (h *AdminHandler) ListMissing(c *gin.Context) {
	missing, err := h.engine.ListMissing()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(missing), "accounts": missing})
}

// ForceRenewAll renews every live subscription now
func (h *AdminHandler) ForceRenewAll(c *gin.Context) {
	renewed, err := h.engine.ForceRenewAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"renewed": renewed})
}

// SyncStatus reports per-account sync state
func (h *AdminHandler) SyncStatus(c *gin.Context) {
	statuses, err := h.engine.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": statuses})
}

// SchedulerStatus reports the reconciliation triggers
func (h *AdminHandler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}
