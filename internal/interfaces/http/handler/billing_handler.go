package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	billingapp "github.com/backupflow/backend/internal/application/billing"
	domainbilling "github.com/backupflow/backend/internal/domain/billing"
	"github.com/backupflow/backend/internal/interfaces/http/dto"
)

// BillingHandler exposes the HubSpot gateway passthrough operations
type BillingHandler struct {
	BaseHandler
	reconciler *billingapp.ReconcilerService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(reconciler *billingapp.ReconcilerService) *BillingHandler {
	return &BillingHandler{reconciler: reconciler}
}

// ValidateConnection checks whether a HubSpot portal is reachable. It always
// answers 200 with a validity flag so callers can probe without error handling.
func (h *BillingHandler) ValidateConnection(c *gin.Context) {
	var req dto.ValidateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result := h.reconciler.ValidatePortalConnection(c.Request.Context(), req.PortalID)
	h.Success(c, result)
}

// UpdateUsage forwards a usage update to the HubSpot billing gateway
func (h *BillingHandler) UpdateUsage(c *gin.Context) {
	var req dto.UpdateUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receipt, err := h.reconciler.UpdateUsage(c.Request.Context(), domainbilling.UsageUpdate{
		PortalID:      req.PortalID,
		UserID:        req.UserID,
		UsageType:     req.UsageType,
		UsageAmount:   req.UsageAmount,
		BillingPeriod: req.BillingPeriod,
	})
	if err != nil {
		if errors.Is(err, domainbilling.ErrGatewayUnavailable) {
			h.Error(c, http.StatusBadGateway, dto.ErrCodeGatewayUnavailable, "HubSpot API is unavailable")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipt)
}
