package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TranscriptArtifact holds the raw transcription output for one assessment:
// full text plus per-word timings. Scores live in Postgres; this document is
// bulky display/debug data and expires via the TTL index.
type TranscriptArtifact struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssessmentID string             `bson:"assessment_id" json:"assessment_id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	Language     string             `bson:"language" json:"language"`

	Text            string      `bson:"text" json:"text"`
	DurationSeconds float64     `bson:"duration_seconds" json:"duration_seconds"`
	Confidence      float64     `bson:"confidence,omitempty" json:"confidence,omitempty"`
	Words           []TimedWord `bson:"words" json:"words"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}

type TimedWord struct {
	Word  string  `bson:"word" json:"word"`
	Start float64 `bson:"start" json:"start"`
	End   float64 `bson:"end" json:"end"`
}
