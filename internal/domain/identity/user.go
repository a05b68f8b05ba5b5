package identity

import (
	"strings"
	"time"

	"github.com/backupflow/backend/internal/domain/shared"
)

// User is the slice of the account model this subsystem reads and writes.
// Users are created and managed elsewhere; here they supply the email and
// HubSpot portal binding for billing, and receive plan changes pushed by
// HubSpot webhooks.
type User struct {
	shared.BaseEntity
	Email           string // Billing contact address
	PlanID          string // Current subscription plan
	HubSpotPortalID string // External portal binding, empty if not connected
}

// NewUser creates a user with validation
func NewUser(email, planID string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if planID == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}
	return &User{
		BaseEntity: shared.NewBaseEntity(),
		Email:      email,
		PlanID:     planID,
	}, nil
}

// HasPortalBinding returns true if the user is connected to a HubSpot portal
func (u *User) HasPortalBinding() bool {
	return u.HubSpotPortalID != ""
}

// BindPortal associates the user with a HubSpot portal
func (u *User) BindPortal(portalID string) error {
	if portalID == "" {
		return shared.ErrInvalidInput
	}
	u.HubSpotPortalID = portalID
	u.UpdatedAt = time.Now()
	return nil
}

// ChangePlan moves the user to a new subscription plan
func (u *User) ChangePlan(planID string) error {
	if planID == "" {
		return shared.ErrInvalidInput
	}
	u.PlanID = planID
	u.UpdatedAt = time.Now()
	return nil
}
