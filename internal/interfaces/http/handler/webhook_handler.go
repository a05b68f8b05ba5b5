package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/backupflow/backend/internal/application/billing"
	"github.com/backupflow/backend/internal/interfaces/http/dto"
)

const (
	// maxWebhookPayloadSize caps webhook bodies at 64KB
	maxWebhookPayloadSize = 65536

	signatureHeader = "x-signature"
)

// WebhookHandler receives HubSpot plan change webhooks. The route is not
// session authenticated; the HMAC signature over the raw body is the only
// authentication mechanism.
type WebhookHandler struct {
	webhookService *billingapp.WebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *billingapp.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// HandlePlanChange verifies and applies a plan change webhook. The raw body
// is read before any parsing so the signature covers exactly the bytes
// HubSpot signed. A missing signature header is not rejected here; the
// service checks secret configuration first so a misconfigured server
// answers 500 rather than 401.
func (h *WebhookHandler) HandlePlanChange(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: "Failed to read request body"})
		return
	}
	if len(body) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, dto.MessageResponse{Message: "Webhook payload too large"})
		return
	}

	signature := c.GetHeader(signatureHeader)

	if err := h.webhookService.ProcessPlanChange(c.Request.Context(), body, signature); err != nil {
		switch {
		case errors.Is(err, billingapp.ErrWebhookSecretNotConfigured):
			h.logger.Error("Webhook secret is not configured")
			c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: "Webhook secret not configured"})
		case errors.Is(err, billingapp.ErrWebhookInvalidSignature):
			h.logger.Warn("Rejected webhook with invalid signature",
				zap.String("request_id", getRequestID(c)))
			c.JSON(http.StatusUnauthorized, dto.MessageResponse{Message: "Invalid HubSpot webhook signature"})
		case errors.Is(err, billingapp.ErrWebhookMissingFields):
			c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Missing portalId or newPlanId in webhook payload"})
		default:
			h.logger.Error("Failed to process plan change webhook", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: "Failed to process webhook: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Plan updated successfully"})
}
