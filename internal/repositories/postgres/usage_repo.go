package postgres

import (
	"context"
	"time"

	"github.com/stageiq/stageiq/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepository interface {
	// InsertConsumption inserts one consumed unit. Returns false when the
	// (user, assessment) pair already exists: a retried completion
	// notification, not an error.
	InsertConsumption(ctx context.Context, c *models.UsageConsumption) (inserted bool, err error)
	CountForPeriod(ctx context.Context, userID, periodKey string) (int64, error)
}

type usageRepo struct {
	db *gorm.DB
}

func NewUsageRepo(db *gorm.DB) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) InsertConsumption(ctx context.Context, c *models.UsageConsumption) (bool, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "assessment_id"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *usageRepo) CountForPeriod(ctx context.Context, userID, periodKey string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UsageConsumption{}).
		Where("user_id = ? AND period_key = ?", userID, periodKey).
		Count(&count).Error
	return count, err
}
