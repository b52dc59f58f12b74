package delivery

import (
	"net/http"
	"time"

	"mailsync-backend/internal/account/usecase"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountUsecase usecase.AccountUsecase
}

func NewAccountHandler(accountUsecase usecase.AccountUsecase) *AccountHandler {
	return &AccountHandler{
		accountUsecase: accountUsecase,
	}
}

type registerAccountRequest struct {
	Email        string     `json:"email" binding:"required,email"`
	Provider     string     `json:"provider" binding:"required"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenExpiry  *time.Time `json:"token_expiry"`
}

// Register creates a new account; its first subscription is created by the
// next reconciliation tick (or an admin-triggered reconcile).
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountUsecase.Register(req.Email, req.Provider, req.AccessToken, req.RefreshToken, req.TokenExpiry)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) Deactivate(c *gin.Context) {
	if err := h.accountUsecase.Deactivate(c.Param("id")); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}

func (h *AccountHandler) Reactivate(c *gin.Context) {
	if err := h.accountUsecase.Reactivate(c.Param("id")); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactivated": true})
}

func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountUsecase.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

type deviceTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterDeviceToken attaches an FCM registration token to an account
func (h *AccountHandler) RegisterDeviceToken(c *gin.Context) {
	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accountUsecase.RegisterDeviceToken(c.Param("id"), req.Token); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}
