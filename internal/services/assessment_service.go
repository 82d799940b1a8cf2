package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stageiq/stageiq/internal/analysis"
	"github.com/stageiq/stageiq/internal/metrics"
	"github.com/stageiq/stageiq/internal/models"
	pgrepo "github.com/stageiq/stageiq/internal/repositories/postgres"
	"github.com/stageiq/stageiq/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// StatusView is what pollers see: one discrete status field, plus the error
// message once failed.
type StatusView struct {
	AssessmentID string                  `json:"assessment_id"`
	Status       models.AssessmentStatus `json:"status"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
}

// CompletedResult carries everything the pipeline produced for one
// assessment. All-or-nothing: there is no partial variant.
type CompletedResult struct {
	Transcript      string
	DurationSeconds float64
	Lexical         metrics.LexicalMetrics
	Pause           metrics.PauseMetrics
	Report          *analysis.Report
	OverallScore    int
}

type AssessmentService interface {
	// Submit creates the record in the uploading state.
	Submit(ctx context.Context, userID string, mode models.AssessmentMode, language string) (*models.Assessment, error)
	// Accept stores the recording location and moves to processing.
	Accept(ctx context.Context, id string, recordingPath string) error

	Get(ctx context.Context, id string) (*models.Assessment, error)
	GetStatus(ctx context.Context, id string) (*StatusView, error)
	// GetResult is valid only once the assessment completed.
	GetResult(ctx context.Context, id string) (*models.Assessment, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error)

	// AttachTranscript records the transcription output on a non-terminal
	// record, so a later failure still leaves the transcript readable.
	AttachTranscript(ctx context.Context, id string, transcript string, durationSeconds float64) error

	// Transition performs one lifecycle step (processing -> analyzing, ...).
	Transition(ctx context.Context, id string, from, to models.AssessmentStatus) error
	// Complete writes the terminal score payload from the generating state.
	Complete(ctx context.Context, id string, res *CompletedResult) error
	// Fail moves any non-terminal assessment to failed with a message.
	Fail(ctx context.Context, id string, message string) error
}

type assessmentService struct {
	assessments pgrepo.AssessmentRepository
}

func NewAssessmentService(assessments pgrepo.AssessmentRepository) AssessmentService {
	return &assessmentService{assessments: assessments}
}

func (s *assessmentService) Submit(ctx context.Context, userID string, mode models.AssessmentMode, language string) (*models.Assessment, error) {
	const op = "AssessmentService.Submit"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if mode != models.ModeFull && mode != models.ModeScenario {
		return nil, utils.E(utils.CodeInvalidArgument, op, "mode must be full or scenario", nil)
	}
	if language == "" {
		language = "en-US"
	}

	a := &models.Assessment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		Language:  language,
		Status:    models.StatusUploading,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.assessments.Insert(ctx, a); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create assessment", err)
	}
	return a, nil
}

func (s *assessmentService) Accept(ctx context.Context, id string, recordingPath string) error {
	const op = "AssessmentService.Accept"

	if id == "" || recordingPath == "" {
		return utils.E(utils.CodeInvalidArgument, op, "id and recording_path are required", nil)
	}
	if err := s.assessments.AcceptUpload(ctx, id, recordingPath); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return utils.E(utils.CodeConflict, op, "assessment is not awaiting upload", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to accept upload", err)
	}
	return nil
}

func (s *assessmentService) Get(ctx context.Context, id string) (*models.Assessment, error) {
	const op = "AssessmentService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "assessment not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get assessment", err)
	}
	return a, nil
}

func (s *assessmentService) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		AssessmentID: a.ID,
		Status:       a.Status,
		ErrorMessage: a.ErrorMessage,
	}, nil
}

func (s *assessmentService) GetResult(ctx context.Context, id string) (*models.Assessment, error) {
	const op = "AssessmentService.GetResult"

	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusCompleted {
		return nil, utils.E(utils.CodeConflict, op, "assessment is not completed", nil)
	}
	return a, nil
}

func (s *assessmentService) ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error) {
	const op = "AssessmentService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.assessments.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list assessments", err)
	}
	return rows, nil
}

func (s *assessmentService) AttachTranscript(ctx context.Context, id string, transcript string, durationSeconds float64) error {
	const op = "AssessmentService.AttachTranscript"

	if id == "" {
		return utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	if err := s.assessments.SetTranscript(ctx, id, transcript, durationSeconds); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return utils.E(utils.CodeConflict, op, "assessment already terminal", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to store transcript", err)
	}
	return nil
}

func (s *assessmentService) Transition(ctx context.Context, id string, from, to models.AssessmentStatus) error {
	const op = "AssessmentService.Transition"

	if !from.CanTransition(to) {
		return utils.E(utils.CodeConflict, op, "illegal transition "+string(from)+" -> "+string(to), nil)
	}
	if err := s.assessments.TransitionStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return utils.E(utils.CodeConflict, op, "assessment no longer in "+string(from), err)
		}
		return utils.E(utils.CodeInternal, op, "failed to transition status", err)
	}
	return nil
}

func (s *assessmentService) Complete(ctx context.Context, id string, res *CompletedResult) error {
	const op = "AssessmentService.Complete"

	if res == nil || res.Report == nil {
		return utils.E(utils.CodeInvalidArgument, op, "result payload is required", nil)
	}

	fields, err := completionFields(res)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to encode score payload", err)
	}

	if err := s.assessments.Complete(ctx, id, models.StatusGenerating, fields); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return utils.E(utils.CodeConflict, op, "assessment is not in generating", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to complete assessment", err)
	}
	return nil
}

func (s *assessmentService) Fail(ctx context.Context, id string, message string) error {
	const op = "AssessmentService.Fail"

	if message == "" {
		message = "analysis failed"
	}
	if err := s.assessments.Fail(ctx, id, message); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return utils.E(utils.CodeConflict, op, "assessment already terminal", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to mark assessment failed", err)
	}
	return nil
}

func completionFields(res *CompletedResult) (map[string]any, error) {
	lex, err := json.Marshal(res.Lexical)
	if err != nil {
		return nil, err
	}
	pause, err := json.Marshal(res.Pause)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"transcript":       res.Transcript,
		"duration_seconds": res.DurationSeconds,
		"lexical_metrics":  datatypes.JSON(lex),
		"pause_metrics":    datatypes.JSON(pause),
		"overall_score":    res.OverallScore,
	}

	switch res.Report.Mode {
	case analysis.ModeFull:
		full := res.Report.Full
		for col, bucket := range map[string]analysis.BucketAnalysis{
			"communication": full.Communication,
			"appearance":    full.Appearance,
			"storytelling":  full.Storytelling,
		} {
			b, err := json.Marshal(bucket)
			if err != nil {
				return nil, err
			}
			fields[col] = datatypes.JSON(b)
		}
		fields["summary"] = full.Summary
	case analysis.ModeScenario:
		sc := res.Report.Scenario
		b, err := json.Marshal(sc)
		if err != nil {
			return nil, err
		}
		fields["scenario"] = datatypes.JSON(b)
		fields["strengths"] = pqArray(sc.Strengths)
		fields["improvements"] = pqArray(sc.Improvements)
		fields["summary"] = sc.Summary
	}
	return fields, nil
}

func pqArray(ss []string) pq.StringArray {
	if ss == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(ss)
}
