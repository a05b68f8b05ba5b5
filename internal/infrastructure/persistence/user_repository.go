package persistence

import (
	"context"
	"time"

	"github.com/backupflow/backend/internal/domain/identity"
	"github.com/backupflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email           string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	PlanID          string    `gorm:"type:varchar(50);not null"`
	HubSpotPortalID string    `gorm:"column:hubspot_portal_id;type:varchar(100);index"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts the model to a domain entity
func (m *UserModel) ToEntity() *identity.User {
	return &identity.User{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Email:           m.Email,
		PlanID:          m.PlanID,
		HubSpotPortalID: m.HubSpotPortalID,
	}
}

// UserModelFromEntity creates a model from a domain entity
func UserModelFromEntity(e *identity.User) *UserModel {
	return &UserModel{
		ID:              e.ID,
		Email:           e.Email,
		PlanID:          e.PlanID,
		HubSpotPortalID: e.HubSpotPortalID,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// UserRepository implements the identity.UserRepository interface
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	model := UserModelFromEntity(user)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByPortalID finds all users bound to a HubSpot portal
func (r *UserRepository) FindByPortalID(ctx context.Context, portalID string) ([]*identity.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).
		Where("hubspot_portal_id = ?", portalID).
		Order("email ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]*identity.User, len(models))
	for i, model := range models {
		users[i] = model.ToEntity()
	}
	return users, nil
}

// UpdatePlanByPortalID sets the plan for every user bound to the portal in a
// single set-based update. It either succeeds as one statement or fails as
// one; there is no per-user error handling here.
func (r *UserRepository) UpdatePlanByPortalID(ctx context.Context, portalID, planID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("hubspot_portal_id = ?", portalID).
		Updates(map[string]any{"plan_id": planID, "updated_at": time.Now()})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure UserRepository implements the interface
var _ identity.UserRepository = (*UserRepository)(nil)
