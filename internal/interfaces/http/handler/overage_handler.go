package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/backupflow/backend/internal/application/billing"
	domainbilling "github.com/backupflow/backend/internal/domain/billing"
	"github.com/backupflow/backend/internal/interfaces/http/dto"
)

// OverageHandler exposes the overage reconciliation operations to admins
type OverageHandler struct {
	BaseHandler
	reconciler *billingapp.ReconcilerService
}

// NewOverageHandler creates a new OverageHandler
func NewOverageHandler(reconciler *billingapp.ReconcilerService) *OverageHandler {
	return &OverageHandler{reconciler: reconciler}
}

// ProcessOverages reports the requested overages to HubSpot. An empty or
// omitted overageIds list processes every unbilled overage. The response is
// always a structured summary, even when some items failed.
func (h *OverageHandler) ProcessOverages(c *gin.Context) {
	var req dto.ProcessOveragesRequest
	// ContentLength is -1 for chunked requests; only a known-empty body
	// skips binding.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	if len(req.OverageIDs) == 0 {
		summary, err := h.reconciler.ProcessAllUnbilled(c.Request.Context())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, summary)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.OverageIDs))
	for _, raw := range req.OverageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid overage ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	results := h.reconciler.ReportOverages(c.Request.Context(), ids)

	summary := &domainbilling.ProcessSummary{
		TotalProcessed: len(results),
		Results:        results,
	}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	h.Success(c, summary)
}

// GetUserBillingSummary returns the per-user aggregation of overage rows.
// The user must have a HubSpot portal binding.
func (h *OverageHandler) GetUserBillingSummary(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	summary, err := h.reconciler.GetUserBillingSummary(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}
