package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/backupflow/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// Webhook processing errors, ordered by the checks that raise them. The
// handler maps them to HTTP statuses: configuration failure is a server
// error, a bad signature is an authentication failure, and missing fields
// are a bad request.
var (
	ErrWebhookSecretNotConfigured = errors.New("webhook: shared secret not configured")
	ErrWebhookInvalidSignature    = errors.New("webhook: invalid signature")
	ErrWebhookMissingFields       = errors.New("webhook: missing portalId or newPlanId")
)

// WebhookService authenticates HubSpot plan-change webhooks and applies them.
// The signature is verified over the raw request body exactly as received,
// before any payload field is trusted or any side effect occurs.
type WebhookService struct {
	userRepo identity.UserRepository
	secret   string
	logger   *zap.Logger
}

// NewWebhookService creates a new webhook service. An empty secret is allowed
// at construction but fails every webhook as a configuration error.
func NewWebhookService(userRepo identity.UserRepository, secret string, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		userRepo: userRepo,
		secret:   secret,
		logger:   logger,
	}
}

// planChangePayload is the tagged shape of a plan-change webhook. Unknown
// extra fields are ignored; the required fields are checked explicitly.
type planChangePayload struct {
	PortalID  string `json:"portalId"`
	NewPlanID string `json:"newPlanId"`
}

// VerifySignature checks the HMAC-SHA256 signature of a raw webhook body.
// The expected signature never appears in logs or errors.
func (s *WebhookService) VerifySignature(payload []byte, signature string) error {
	if s.secret == "" {
		return ErrWebhookSecretNotConfigured
	}
	if signature == "" {
		return ErrWebhookInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return ErrWebhookInvalidSignature
	}
	if !hmac.Equal(expected, supplied) {
		return ErrWebhookInvalidSignature
	}
	return nil
}

// ProcessPlanChange verifies and applies one plan-change webhook. Check
// order matters: secret configured, signature valid, required fields present,
// then the bulk plan update. The update either succeeds as one statement or
// its error propagates unchanged.
func (s *WebhookService) ProcessPlanChange(ctx context.Context, payload []byte, signature string) error {
	if err := s.VerifySignature(payload, signature); err != nil {
		if errors.Is(err, ErrWebhookInvalidSignature) {
			s.logger.Warn("Rejected webhook with invalid signature")
		}
		return err
	}

	var change planChangePayload
	if err := json.Unmarshal(payload, &change); err != nil {
		return ErrWebhookMissingFields
	}
	if change.PortalID == "" || change.NewPlanID == "" {
		return ErrWebhookMissingFields
	}

	rows, err := s.userRepo.UpdatePlanByPortalID(ctx, change.PortalID, change.NewPlanID)
	if err != nil {
		return fmt.Errorf("failed to update plan for portal %s: %w", change.PortalID, err)
	}

	s.logger.Info("Applied plan change from HubSpot webhook",
		zap.String("portal_id", change.PortalID),
		zap.String("new_plan_id", change.NewPlanID),
		zap.Int64("users_updated", rows))

	return nil
}
