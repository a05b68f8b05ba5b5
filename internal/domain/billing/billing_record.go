package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingRecord is the payload submitted to the external billing gateway for one
// overage. It is derived on the fly and never persisted; TotalAmount is always
// recomputed from Amount and UnitPrice so the two can never drift apart.
type BillingRecord struct {
	UserID           uuid.UUID       `json:"userId"`
	UserEmail        string          `json:"userEmail"`
	ExternalPortalID string          `json:"externalPortalId"`
	OverageID        uuid.UUID       `json:"overageId"`
	Type             OverageType     `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	PeriodStart      time.Time       `json:"periodStart"`
	PeriodEnd        time.Time       `json:"periodEnd"`
	Description      string          `json:"description"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
}

// NewBillingRecord builds the gateway payload for an overage owned by a user
// with the given email and portal binding.
func NewBillingRecord(overage *Overage, userEmail, portalID string, unitPrice decimal.Decimal) *BillingRecord {
	return &BillingRecord{
		UserID:           overage.UserID,
		UserEmail:        userEmail,
		ExternalPortalID: portalID,
		OverageID:        overage.ID,
		Type:             overage.Type,
		Amount:           overage.Amount,
		PeriodStart:      overage.PeriodStart,
		PeriodEnd:        overage.PeriodEnd,
		Description: fmt.Sprintf("%s overage of %s units for %s to %s",
			overage.Type, overage.Amount.String(),
			overage.PeriodStart.Format("2006-01-02"), overage.PeriodEnd.Format("2006-01-02")),
		UnitPrice:   unitPrice,
		TotalAmount: overage.Amount.Mul(unitPrice),
	}
}
