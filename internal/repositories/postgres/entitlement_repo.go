package postgres

import (
	"context"
	"errors"

	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/utils"
	"gorm.io/gorm"
)

// EntitlementRepository reads the billing collaborator's plan data. This
// service never writes it.
type EntitlementRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.PlanEntitlement, error)
}

type entitlementRepo struct {
	db *gorm.DB
}

func NewEntitlementRepo(db *gorm.DB) EntitlementRepository {
	return &entitlementRepo{db: db}
}

func (r *entitlementRepo) GetByUserID(ctx context.Context, userID string) (*models.PlanEntitlement, error) {
	var p models.PlanEntitlement
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}
