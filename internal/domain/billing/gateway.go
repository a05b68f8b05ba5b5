package billing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Gateway errors
var (
	ErrGatewayNotConfigured   = errors.New("billing: gateway not configured")
	ErrGatewayUnavailable     = errors.New("billing: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("billing: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("billing: invalid gateway response")
)

// GatewayReceipt is the confirmation returned by the billing system for a
// submitted billing record
type GatewayReceipt struct {
	Ref    string          // Reference ID assigned by the billing system
	Status string          // Billing system status, e.g. "recorded"
	Amount decimal.Decimal // Amount the billing system acknowledged
}

// UsageUpdate is a pass-through usage submission to the billing system.
// Idempotency is the billing system's responsibility.
type UsageUpdate struct {
	PortalID      string          `json:"portalId"`
	UserID        string          `json:"userId"`
	UsageType     string          `json:"usageType"`
	UsageAmount   decimal.Decimal `json:"usageAmount"`
	BillingPeriod string          `json:"billingPeriod"`
}

// UsageReceipt acknowledges a usage update submission
type UsageReceipt struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

// Gateway is the port to the external billing system. Each call is a single
// blocking request that can succeed, fail, or time out; the reconciler treats
// all three uniformly per item.
type Gateway interface {
	// ReportOverage submits one billing record and returns the billing
	// system's reference for it
	ReportOverage(ctx context.Context, record *BillingRecord) (*GatewayReceipt, error)

	// ValidateConnection checks that a portal ID resolves to a reachable
	// account in the billing system
	ValidateConnection(ctx context.Context, portalID string) error

	// SubmitUsage forwards a usage update without touching local state
	SubmitUsage(ctx context.Context, update UsageUpdate) (*UsageReceipt, error)
}

// Notifier dispatches a user-facing notification after an overage has been
// billed. Delivery is fire-and-forget: failures are logged by the caller and
// never revert the billed transition.
type Notifier interface {
	NotifyOverageBilled(ctx context.Context, email string, record *BillingRecord) error
}
