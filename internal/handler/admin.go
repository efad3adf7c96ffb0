package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/exitrisk/internal/identity"
	"go.uber.org/zap"
)

type adminTokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// AdminHandler exchanges the admin secret for a short-lived admin token.
type AdminHandler struct {
	tokens *identity.AdminTokenIssuer
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(tokens *identity.AdminTokenIssuer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{tokens: tokens, logger: logger}
}

// Register registers the admin routes on the given router group.
func (h *AdminHandler) Register(rg gin.IRoutes) {
	rg.POST("/admin/token", h.IssueToken)
}

// IssueToken handles POST /admin/token.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req adminTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "secret is required"})
		return
	}

	token, err := h.tokens.Exchange(req.Secret)
	if errors.Is(err, identity.ErrBadSecret) {
		h.logger.Warn("admin token: bad secret", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret"})
		return
	}
	if err != nil {
		h.logger.Error("admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.tokens.TTL().Seconds()),
	})
}
