package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByPortalID finds all users bound to a HubSpot portal
	FindByPortalID(ctx context.Context, portalID string) ([]*User, error)

	// UpdatePlanByPortalID sets the plan for every user bound to the portal
	// in a single set-based update. Returns the number of rows changed.
	UpdatePlanByPortalID(ctx context.Context, portalID, planID string) (int64, error)
}
