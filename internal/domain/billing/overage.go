package billing

import (
	"time"

	"github.com/backupflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverageType represents the usage category an overage was recorded against
type OverageType string

const (
	// OverageTypeWorkflowRuns tracks backup workflow executions beyond the plan allowance
	OverageTypeWorkflowRuns OverageType = "WORKFLOW_RUNS"

	// OverageTypeStorageGB tracks backup storage consumption beyond the plan allowance, in GB
	OverageTypeStorageGB OverageType = "STORAGE_GB"

	// OverageTypeAPICalls tracks API requests beyond the plan allowance
	OverageTypeAPICalls OverageType = "API_CALLS"
)

// String returns the string representation of OverageType
func (t OverageType) String() string {
	return string(t)
}

// IsValid returns true if the overage type is valid
func (t OverageType) IsValid() bool {
	switch t {
	case OverageTypeWorkflowRuns, OverageTypeStorageGB, OverageTypeAPICalls:
		return true
	}
	return false
}

// Overage represents one unit-of-usage excess attributable to a user in a billing period.
// Overages are created by the usage-metering process at Billed=false and flip to
// Billed=true exactly once, when the external billing system confirms the report.
// They are never deleted by this subsystem.
type Overage struct {
	shared.BaseEntity
	UserID      uuid.UUID       // The user this overage belongs to
	Type        OverageType     // Usage category
	Amount      decimal.Decimal // Quantity of excess usage
	PeriodStart time.Time       // Start of the billing period
	PeriodEnd   time.Time       // End of the billing period
	Billed      bool            // True once successfully reported to the billing system
}

// NewOverage creates a new unbilled overage with validation
func NewOverage(
	userID uuid.UUID,
	overageType OverageType,
	amount decimal.Decimal,
	periodStart time.Time,
	periodEnd time.Time,
) (*Overage, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !overageType.IsValid() {
		return nil, shared.NewDomainError("INVALID_OVERAGE_TYPE", "Invalid overage type")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be negative")
	}
	if periodEnd.Before(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end cannot be before period start")
	}

	return &Overage{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Type:        overageType,
		Amount:      amount,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Billed:      false,
	}, nil
}

// MarkBilled transitions the overage to billed. The transition is one-way:
// an already-billed overage cannot be marked again.
func (o *Overage) MarkBilled() error {
	if o.Billed {
		return shared.ErrInvalidState
	}
	o.Billed = true
	o.UpdatedAt = time.Now()
	return nil
}
