package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/exitrisk/internal/identity"
	"github.com/jmerrifield20/exitrisk/internal/service"
	"go.uber.org/zap"
)

// CheckHandler serves the address check, list and delete endpoints.
type CheckHandler struct {
	svc        *service.CheckService
	admin      *identity.AdminTokenIssuer // nil = delete is unauthenticated
	checkLimit gin.HandlerFunc            // nil = no route-level limit
	logger     *zap.Logger
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(svc *service.CheckService, logger *zap.Logger) *CheckHandler {
	return &CheckHandler{svc: svc, logger: logger}
}

// SetAdminTokenIssuer requires an admin token on the delete route.
func (h *CheckHandler) SetAdminTokenIssuer(a *identity.AdminTokenIssuer) {
	h.admin = a
}

// SetCheckLimiter installs an additional rate limiter on the check route.
func (h *CheckHandler) SetCheckLimiter(mw gin.HandlerFunc) {
	h.checkLimit = mw
}

// Register registers the check routes on the given router group.
func (h *CheckHandler) Register(rg gin.IRoutes) {
	check := []gin.HandlerFunc{h.CheckIP}
	if h.checkLimit != nil {
		check = append([]gin.HandlerFunc{h.checkLimit}, check...)
	}
	rg.GET("/check_ip", check...)
	rg.GET("/list_ips", h.ListIPs)
	rg.DELETE("/delete_ip", identity.RequireAdmin(h.admin), h.DeleteIP)
}

// CheckIP handles GET /check_ip?ip= and scores a stored address.
func (h *CheckHandler) CheckIP(c *gin.Context) {
	res, err := h.svc.Check(c.Request.Context(), c.Query("ip"))
	if err != nil {
		if h.writeInputError(c, err) {
			recordLookup("invalid")
			return
		}
		h.logger.Error("check ip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check IP"})
		return
	}

	lastChecked := res.LastChecked.Format(service.LastCheckedLayout)
	if !res.Found {
		recordLookup("not_found")
		c.JSON(http.StatusOK, gin.H{
			"message":          res.NotFoundMessage(),
			"is_tor_exit_node": false,
			"risk_score":       0,
			"last_checked":     lastChecked,
		})
		return
	}

	recordLookup("found")
	c.JSON(http.StatusOK, gin.H{
		"is_tor_exit_node": res.IsTorExitNode,
		"risk_score":       res.Risk.Score,
		"risk_level":       res.Risk.Level,
		"explanation":      res.Risk.Explanation,
		"last_checked":     lastChecked,
	})
}

// ListIPs handles GET /list_ips and returns every stored address.
func (h *CheckHandler) ListIPs(c *gin.Context) {
	addrs, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list ips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list IPs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tor_exit_nodes": addrs})
}

// DeleteIP handles DELETE /delete_ip?ip= and removes a stored address.
func (h *CheckHandler) DeleteIP(c *gin.Context) {
	status, err := h.svc.Delete(c.Request.Context(), c.Query("ip"))
	if err != nil {
		if h.writeInputError(c, err) {
			return
		}
		h.logger.Error("delete ip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete IP"})
		return
	}

	recordDelete(string(status))
	if status == service.DeleteStatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// writeInputError answers 400 for client-side address errors.
func (h *CheckHandler) writeInputError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrAddressRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "IP address is required"})
	case errors.Is(err, service.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid IP address is required"})
	default:
		return false
	}
	return true
}
