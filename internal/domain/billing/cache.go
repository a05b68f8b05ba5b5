package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SummaryCache caches per-user billing summaries. A nil or unavailable cache
// degrades to direct ledger reads; cache errors are never fatal to callers.
type SummaryCache interface {
	// GetSummary returns the cached summary, or nil on a miss
	GetSummary(ctx context.Context, userID uuid.UUID) (*BillingSummary, error)

	// SetSummary stores a summary with a TTL
	SetSummary(ctx context.Context, userID uuid.UUID, summary *BillingSummary, ttl time.Duration) error

	// Invalidate drops the cached summary for a user
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
