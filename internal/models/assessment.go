package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type AssessmentStatus string

const (
	StatusUploading  AssessmentStatus = "uploading"
	StatusProcessing AssessmentStatus = "processing"
	StatusAnalyzing  AssessmentStatus = "analyzing"
	StatusScoring    AssessmentStatus = "scoring"
	StatusGenerating AssessmentStatus = "generating"
	StatusCompleted  AssessmentStatus = "completed"
	StatusFailed     AssessmentStatus = "failed"
)

// happy-path order; "failed" is reachable from any non-terminal state
var nextStatus = map[AssessmentStatus]AssessmentStatus{
	StatusUploading:  StatusProcessing,
	StatusProcessing: StatusAnalyzing,
	StatusAnalyzing:  StatusScoring,
	StatusScoring:    StatusGenerating,
	StatusGenerating: StatusCompleted,
}

func (s AssessmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to target is a legal lifecycle
// step. Terminal states never transition; re-running an assessment means
// creating a new record.
func (s AssessmentStatus) CanTransition(target AssessmentStatus) bool {
	if s.Terminal() {
		return false
	}
	if target == StatusFailed {
		return true
	}
	return nextStatus[s] == target
}

type AssessmentMode string

const (
	ModeFull     AssessmentMode = "full"
	ModeScenario AssessmentMode = "scenario"
)

// Assessment is the unit of work: one submitted recording, one pipeline run,
// one terminal status. Score fields stay null until completion; a failed
// record keeps its transcript and timestamps but never gains scores.
type Assessment struct {
	ID       string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID   string           `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Mode     AssessmentMode   `gorm:"column:mode;type:text" json:"mode"`
	Language string           `gorm:"column:language;type:text" json:"language"`
	Status   AssessmentStatus `gorm:"column:status;type:text;index" json:"status"`

	RecordingPath string `gorm:"column:recording_path;type:text" json:"recording_path,omitempty"`

	Transcript      string  `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	DurationSeconds float64 `gorm:"column:duration_seconds;type:double precision" json:"duration_seconds"`

	LexicalMetrics datatypes.JSON `gorm:"column:lexical_metrics;type:jsonb" json:"lexical_metrics,omitempty"`
	PauseMetrics   datatypes.JSON `gorm:"column:pause_metrics;type:jsonb" json:"pause_metrics,omitempty"`

	// full-assessment buckets
	Communication datatypes.JSON `gorm:"column:communication;type:jsonb" json:"communication,omitempty"`
	Appearance    datatypes.JSON `gorm:"column:appearance;type:jsonb" json:"appearance,omitempty"`
	Storytelling  datatypes.JSON `gorm:"column:storytelling;type:jsonb" json:"storytelling,omitempty"`

	// scenario mode
	Scenario     datatypes.JSON `gorm:"column:scenario;type:jsonb" json:"scenario,omitempty"`
	Strengths    pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths,omitempty"`
	Improvements pq.StringArray `gorm:"column:improvements;type:text[]" json:"improvements,omitempty"`

	OverallScore *int   `gorm:"column:overall_score;type:integer" json:"overall_score,omitempty"`
	Summary      string `gorm:"column:summary;type:text" json:"summary,omitempty"`

	ErrorMessage *string `gorm:"column:error_message;type:text" json:"error_message,omitempty"`

	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz" json:"completed_at,omitempty"`
}

func (Assessment) TableName() string { return "assessments" }
