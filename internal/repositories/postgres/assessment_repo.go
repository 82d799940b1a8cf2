package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/utils"
	"gorm.io/gorm"
)

type AssessmentRepository interface {
	Insert(ctx context.Context, a *models.Assessment) error
	GetByID(ctx context.Context, id string) (*models.Assessment, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error)

	// TransitionStatus moves id from -> to atomically; utils.ErrConflict
	// when the record is no longer in `from`.
	TransitionStatus(ctx context.Context, id string, from, to models.AssessmentStatus) error
	// AcceptUpload records the stored object and moves uploading -> processing.
	AcceptUpload(ctx context.Context, id string, recordingPath string) error
	// SetTranscript stores the transcription output as soon as it exists, so
	// a later failure still leaves the transcript on the record.
	SetTranscript(ctx context.Context, id string, transcript string, durationSeconds float64) error
	// Complete writes all score fields and flips to completed in one guarded
	// update from `from`.
	Complete(ctx context.Context, id string, from models.AssessmentStatus, fields map[string]any) error
	// Fail marks any non-terminal record failed with an error message.
	Fail(ctx context.Context, id string, message string) error
}

type assessmentRepo struct {
	db *gorm.DB
}

func NewAssessmentRepo(db *gorm.DB) AssessmentRepository {
	return &assessmentRepo{db: db}
}

func (r *assessmentRepo) Insert(ctx context.Context, a *models.Assessment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *assessmentRepo) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	var a models.Assessment
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *assessmentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Assessment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *assessmentRepo) TransitionStatus(ctx context.Context, id string, from, to models.AssessmentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConflict
	}
	return nil
}

func (r *assessmentRepo) AcceptUpload(ctx context.Context, id string, recordingPath string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status = ?", id, models.StatusUploading).
		Updates(map[string]any{
			"status":         models.StatusProcessing,
			"recording_path": recordingPath,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConflict
	}
	return nil
}

func (r *assessmentRepo) SetTranscript(ctx context.Context, id string, transcript string, durationSeconds float64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status NOT IN ?", id, []models.AssessmentStatus{models.StatusCompleted, models.StatusFailed}).
		Updates(map[string]any{
			"transcript":       transcript,
			"duration_seconds": durationSeconds,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConflict
	}
	return nil
}

func (r *assessmentRepo) Complete(ctx context.Context, id string, from models.AssessmentStatus, fields map[string]any) error {
	updates := map[string]any{
		"status":       models.StatusCompleted,
		"completed_at": time.Now().UTC(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConflict
	}
	return nil
}

func (r *assessmentRepo) Fail(ctx context.Context, id string, message string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status NOT IN ?", id, []models.AssessmentStatus{models.StatusCompleted, models.StatusFailed}).
		Updates(map[string]any{
			"status":        models.StatusFailed,
			"error_message": message,
			"completed_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConflict
	}
	return nil
}
