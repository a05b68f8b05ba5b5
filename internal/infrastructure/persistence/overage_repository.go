package persistence

import (
	"context"
	"time"

	"github.com/backupflow/backend/internal/domain/billing"
	"github.com/backupflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OverageModel is the GORM model for the overage ledger
type OverageModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type        string          `gorm:"type:varchar(50);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	PeriodStart time.Time       `gorm:"not null"`
	PeriodEnd   time.Time       `gorm:"not null"`
	Billed      bool            `gorm:"not null;default:false;index"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (OverageModel) TableName() string {
	return "overages"
}

// ToEntity converts the model to a domain entity
func (m *OverageModel) ToEntity() *billing.Overage {
	return &billing.Overage{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:      m.UserID,
		Type:        billing.OverageType(m.Type),
		Amount:      m.Amount,
		PeriodStart: m.PeriodStart,
		PeriodEnd:   m.PeriodEnd,
		Billed:      m.Billed,
	}
}

// OverageModelFromEntity creates a model from a domain entity
func OverageModelFromEntity(e *billing.Overage) *OverageModel {
	return &OverageModel{
		ID:          e.ID,
		UserID:      e.UserID,
		Type:        string(e.Type),
		Amount:      e.Amount,
		PeriodStart: e.PeriodStart,
		PeriodEnd:   e.PeriodEnd,
		Billed:      e.Billed,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// OverageRepository implements the billing.OverageRepository interface
type OverageRepository struct {
	db *gorm.DB
}

// NewOverageRepository creates a new overage repository
func NewOverageRepository(db *gorm.DB) *OverageRepository {
	return &OverageRepository{db: db}
}

// Save persists a new overage record
func (r *OverageRepository) Save(ctx context.Context, overage *billing.Overage) error {
	model := OverageModelFromEntity(overage)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID retrieves an overage by its ID
func (r *OverageRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Overage, error) {
	var model OverageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindUnbilled retrieves all overages that have not been reported yet, oldest first
func (r *OverageRepository) FindUnbilled(ctx context.Context) ([]*billing.Overage, error) {
	var models []OverageModel
	err := r.db.WithContext(ctx).
		Where("billed = ?", false).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	overages := make([]*billing.Overage, len(models))
	for i, model := range models {
		overages[i] = model.ToEntity()
	}
	return overages, nil
}

// FindByUserID retrieves all overages for a user, oldest first
func (r *OverageRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*billing.Overage, error) {
	var models []OverageModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	overages := make([]*billing.Overage, len(models))
	for i, model := range models {
		overages[i] = model.ToEntity()
	}
	return overages, nil
}

// MarkBilled flips the billed flag with a conditional single-row update.
// The WHERE billed = false guard is what prevents two concurrent sweeps from
// double-billing the same overage; RowsAffected tells us whether this call
// won the transition.
func (r *OverageRepository) MarkBilled(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&OverageModel{}).
		Where("id = ? AND billed = ?", id, false).
		Updates(map[string]any{"billed": true, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Ensure OverageRepository implements the interface
var _ billing.OverageRepository = (*OverageRepository)(nil)
