package billing

import (
	"context"

	"github.com/google/uuid"
)

// OverageRepository defines the interface for the overage ledger store
type OverageRepository interface {
	// Save persists a new overage record
	Save(ctx context.Context, overage *Overage) error

	// FindByID retrieves an overage by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Overage, error)

	// FindUnbilled retrieves all overages that have not been reported yet,
	// oldest first
	FindUnbilled(ctx context.Context) ([]*Overage, error)

	// FindByUserID retrieves all overages for a user, oldest first
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Overage, error)

	// MarkBilled flips the billed flag for an overage using a conditional
	// single-row update (only if billed is still false). Returns true if the
	// row transitioned, false if it was already billed or does not exist.
	MarkBilled(ctx context.Context, id uuid.UUID) (bool, error)
}
