package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainBilling "github.com/backupflow/backend/internal/domain/billing"
	"github.com/backupflow/backend/internal/domain/identity"
	"github.com/backupflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcilerService turns locally recorded overages into confirmed billing
// events in HubSpot. Items are processed strictly one at a time: each overage
// is read, reported, marked billed and notified before the next one starts,
// and one item's failure never blocks or rolls back another's success.
type ReconcilerService struct {
	overageRepo  domainBilling.OverageRepository
	userRepo     identity.UserRepository
	gateway      domainBilling.Gateway
	notifier     domainBilling.Notifier
	summaryCache domainBilling.SummaryCache // nil disables caching
	logger       *zap.Logger
	config       ReconcilerConfig
	mu           sync.Mutex
}

// ReconcilerConfig contains configuration for overage reconciliation
type ReconcilerConfig struct {
	// UnitPrice is the fixed price per overage unit
	UnitPrice decimal.Decimal

	// GatewayTimeout bounds each individual gateway call. A timeout is an
	// item failure like any other gateway error.
	GatewayTimeout time.Duration

	// SummaryCacheTTL is how long a cached billing summary stays valid
	SummaryCacheTTL time.Duration
}

// DefaultReconcilerConfig returns default configuration
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		UnitPrice:       decimal.RequireFromString("0.5"),
		GatewayTimeout:  10 * time.Second,
		SummaryCacheTTL: 5 * time.Minute,
	}
}

// NewReconcilerService creates a new overage reconciler
func NewReconcilerService(
	overageRepo domainBilling.OverageRepository,
	userRepo identity.UserRepository,
	gateway domainBilling.Gateway,
	notifier domainBilling.Notifier,
	summaryCache domainBilling.SummaryCache,
	logger *zap.Logger,
	config ReconcilerConfig,
) *ReconcilerService {
	return &ReconcilerService{
		overageRepo:  overageRepo,
		userRepo:     userRepo,
		gateway:      gateway,
		notifier:     notifier,
		summaryCache: summaryCache,
		logger:       logger,
		config:       config,
	}
}

// ReportOverages reports each overage independently and returns one result
// per input ID, in input order. Failures are captured in the result, never
// raised to the caller.
func (s *ReconcilerService) ReportOverages(ctx context.Context, overageIDs []uuid.UUID) []domainBilling.ReportResult {
	results := make([]domainBilling.ReportResult, 0, len(overageIDs))
	for _, id := range overageIDs {
		results = append(results, s.reportOne(ctx, id))
	}
	return results
}

// reportOne processes a single overage end to end
func (s *ReconcilerService) reportOne(ctx context.Context, overageID uuid.UUID) domainBilling.ReportResult {
	failure := func(msg string) domainBilling.ReportResult {
		s.logger.Warn("Overage report failed",
			zap.String("overage_id", overageID.String()),
			zap.String("error", msg))
		return domainBilling.ReportResult{
			OverageID: overageID.String(),
			Success:   false,
			Error:     msg,
		}
	}

	overage, err := s.overageRepo.FindByID(ctx, overageID)
	if err != nil {
		if err == shared.ErrNotFound {
			return failure(fmt.Sprintf("overage %s not found", overageID))
		}
		return failure(fmt.Sprintf("failed to load overage: %v", err))
	}

	// Already-billed overages are never re-reported to the gateway
	if overage.Billed {
		return failure(fmt.Sprintf("overage %s is already billed", overageID))
	}

	user, err := s.userRepo.FindByID(ctx, overage.UserID)
	if err != nil {
		if err == shared.ErrNotFound {
			return failure(fmt.Sprintf("user %s not found", overage.UserID))
		}
		return failure(fmt.Sprintf("failed to load user: %v", err))
	}

	if !user.HasPortalBinding() {
		return failure(fmt.Sprintf("user %s has no HubSpot portal ID", user.ID))
	}

	record := domainBilling.NewBillingRecord(overage, user.Email, user.HubSpotPortalID, s.config.UnitPrice)

	gwCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	receipt, err := s.gateway.ReportOverage(gwCtx, record)
	cancel()
	if err != nil {
		return failure(err.Error())
	}

	// The conditional write is the only concurrency guard: if another sweep
	// already flipped the flag, we lost the race after reporting and log it.
	transitioned, err := s.overageRepo.MarkBilled(ctx, overage.ID)
	if err != nil {
		return failure(fmt.Sprintf("reported to gateway but failed to mark billed: %v", err))
	}
	if !transitioned {
		s.logger.Warn("Overage was marked billed by a concurrent sweep",
			zap.String("overage_id", overage.ID.String()),
			zap.String("gateway_ref", receipt.Ref))
	}

	// Notification failure is logged and never reverts the billed flag
	if err := s.notifier.NotifyOverageBilled(ctx, user.Email, record); err != nil {
		s.logger.Error("Failed to dispatch billing notification",
			zap.String("overage_id", overage.ID.String()),
			zap.String("email", user.Email),
			zap.Error(err))
	}

	s.invalidateSummary(ctx, user.ID)

	s.logger.Info("Overage reported to HubSpot",
		zap.String("overage_id", overage.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("gateway_ref", receipt.Ref),
		zap.String("total_amount", record.TotalAmount.String()))

	return domainBilling.ReportResult{
		OverageID: overage.ID.String(),
		Success:   true,
		Data: &domainBilling.ReportData{
			Ref:    receipt.Ref,
			Amount: receipt.Amount,
			Status: receipt.Status,
		},
	}
}

// ProcessAllUnbilled scans the ledger for unbilled overages and reports them
// all, returning an aggregate summary. Partial failure is normal: the summary
// is always returned, never an error for individual items.
func (s *ReconcilerService) ProcessAllUnbilled(ctx context.Context) (*domainBilling.ProcessSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unbilled, err := s.overageRepo.FindUnbilled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find unbilled overages: %w", err)
	}

	s.logger.Info("Processing unbilled overages", zap.Int("count", len(unbilled)))

	ids := make([]uuid.UUID, len(unbilled))
	for i, o := range unbilled {
		ids[i] = o.ID
	}

	results := s.ReportOverages(ctx, ids)

	summary := &domainBilling.ProcessSummary{
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

	s.logger.Info("Completed unbilled overage sweep",
		zap.Int("total", summary.TotalProcessed),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// GetUserBillingSummary aggregates a user's overage rows by billed state.
// The user must have a HubSpot portal binding for the summary to be
// meaningful; without one the call fails.
func (s *ReconcilerService) GetUserBillingSummary(ctx context.Context, userID uuid.UUID) (*domainBilling.BillingSummary, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasPortalBinding() {
		return nil, shared.ErrNoPortalBinding
	}

	if cached := s.cachedSummary(ctx, userID); cached != nil {
		return cached, nil
	}

	overages, err := s.overageRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load overages: %w", err)
	}

	summary := &domainBilling.BillingSummary{
		TotalBilled:   decimal.Zero,
		TotalUnbilled: decimal.Zero,
	}
	for _, o := range overages {
		cost := o.Amount.Mul(s.config.UnitPrice)
		if o.Billed {
			summary.TotalBilled = summary.TotalBilled.Add(cost)
			summary.BilledCount++
		} else {
			summary.TotalUnbilled = summary.TotalUnbilled.Add(cost)
			summary.UnbilledCount++
		}
	}
	summary.OverageCount = summary.BilledCount + summary.UnbilledCount

	s.storeSummary(ctx, userID, summary)

	return summary, nil
}

// cachedSummary returns the cached summary for a user, or nil. Cache errors
// degrade to a direct read.
func (s *ReconcilerService) cachedSummary(ctx context.Context, userID uuid.UUID) *domainBilling.BillingSummary {
	if s.summaryCache == nil {
		return nil
	}
	summary, err := s.summaryCache.GetSummary(ctx, userID)
	if err != nil {
		s.logger.Warn("Billing summary cache read failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil
	}
	return summary
}

func (s *ReconcilerService) storeSummary(ctx context.Context, userID uuid.UUID, summary *domainBilling.BillingSummary) {
	if s.summaryCache == nil {
		return
	}
	if err := s.summaryCache.SetSummary(ctx, userID, summary, s.config.SummaryCacheTTL); err != nil {
		s.logger.Warn("Billing summary cache write failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

func (s *ReconcilerService) invalidateSummary(ctx context.Context, userID uuid.UUID) {
	if s.summaryCache == nil {
		return
	}
	if err := s.summaryCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Billing summary cache invalidation failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// ValidationResult is the outcome of a portal connection check
type ValidationResult struct {
	PortalID string `json:"portalId"`
	IsValid  bool   `json:"isValid"`
	Message  string `json:"message"`
}

// ValidatePortalConnection checks a portal ID against HubSpot. A non-empty ID
// is the only local precondition; any gateway error yields an invalid result,
// never an error.
func (s *ReconcilerService) ValidatePortalConnection(ctx context.Context, portalID string) *ValidationResult {
	if portalID == "" {
		return &ValidationResult{PortalID: portalID, IsValid: false, Message: "portal ID is required"}
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	if err := s.gateway.ValidateConnection(gwCtx, portalID); err != nil {
		s.logger.Warn("Portal connection validation failed",
			zap.String("portal_id", portalID),
			zap.Error(err))
		return &ValidationResult{PortalID: portalID, IsValid: false, Message: err.Error()}
	}

	return &ValidationResult{PortalID: portalID, IsValid: true, Message: "portal connection is valid"}
}

// UpdateUsage forwards a usage update to HubSpot without mutating local
// state. Idempotency is the gateway's responsibility.
func (s *ReconcilerService) UpdateUsage(ctx context.Context, update domainBilling.UsageUpdate) (*domainBilling.UsageReceipt, error) {
	gwCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	receipt, err := s.gateway.SubmitUsage(gwCtx, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Usage update submitted to HubSpot",
		zap.String("portal_id", update.PortalID),
		zap.String("usage_type", update.UsageType),
		zap.String("ref", receipt.Ref))

	return receipt, nil
}
