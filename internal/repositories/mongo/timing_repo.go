package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type TimingRepository interface {
	Insert(ctx context.Context, a *models.TranscriptArtifact) error
	GetByAssessmentID(ctx context.Context, assessmentID string) (*models.TranscriptArtifact, error)
}

type timingRepo struct {
	col *mongo.Collection
}

func NewTimingRepo(db *mongo.Database) TimingRepository {
	return &timingRepo{col: db.Collection("transcript_artifacts")}
}

func (r *timingRepo) Insert(ctx context.Context, a *models.TranscriptArtifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *timingRepo) GetByAssessmentID(ctx context.Context, assessmentID string) (*models.TranscriptArtifact, error) {
	var a models.TranscriptArtifact
	err := r.col.FindOne(ctx, bson.M{"assessment_id": assessmentID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}
