package services

import (
	"context"
	"testing"

	"github.com/stageiq/stageiq/internal/analysis"
	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/utils"
)

// fakeAssessmentRepo mirrors the conditional-update semantics of the
// Postgres repository: guarded transitions, terminal immutability.
type fakeAssessmentRepo struct {
	byID map[string]*models.Assessment
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{byID: map[string]*models.Assessment{}}
}

func (f *fakeAssessmentRepo) Insert(ctx context.Context, a *models.Assessment) error {
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAssessmentRepo) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssessmentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range f.byID {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAssessmentRepo) TransitionStatus(ctx context.Context, id string, from, to models.AssessmentStatus) error {
	a, ok := f.byID[id]
	if !ok || a.Status != from {
		return utils.ErrConflict
	}
	a.Status = to
	return nil
}

func (f *fakeAssessmentRepo) AcceptUpload(ctx context.Context, id string, recordingPath string) error {
	a, ok := f.byID[id]
	if !ok || a.Status != models.StatusUploading {
		return utils.ErrConflict
	}
	a.Status = models.StatusProcessing
	a.RecordingPath = recordingPath
	return nil
}

func (f *fakeAssessmentRepo) SetTranscript(ctx context.Context, id string, transcript string, durationSeconds float64) error {
	a, ok := f.byID[id]
	if !ok || a.Status.Terminal() {
		return utils.ErrConflict
	}
	a.Transcript = transcript
	a.DurationSeconds = durationSeconds
	return nil
}

func (f *fakeAssessmentRepo) Complete(ctx context.Context, id string, from models.AssessmentStatus, fields map[string]any) error {
	a, ok := f.byID[id]
	if !ok || a.Status != from {
		return utils.ErrConflict
	}
	a.Status = models.StatusCompleted
	if v, ok := fields["overall_score"].(int); ok {
		a.OverallScore = &v
	}
	if v, ok := fields["transcript"].(string); ok {
		a.Transcript = v
	}
	return nil
}

func (f *fakeAssessmentRepo) Fail(ctx context.Context, id string, message string) error {
	a, ok := f.byID[id]
	if !ok || a.Status.Terminal() {
		return utils.ErrConflict
	}
	a.Status = models.StatusFailed
	a.ErrorMessage = &message
	return nil
}

func advanceTo(t *testing.T, svc AssessmentService, id string, target models.AssessmentStatus) {
	t.Helper()
	path := []models.AssessmentStatus{
		models.StatusUploading, models.StatusProcessing, models.StatusAnalyzing,
		models.StatusScoring, models.StatusGenerating,
	}
	ctx := context.Background()
	for i := 0; i < len(path)-1; i++ {
		if path[i+1] == target {
			if err := svc.Transition(ctx, id, path[i], path[i+1]); err != nil {
				t.Fatalf("transition to %s failed: %v", path[i+1], err)
			}
			return
		}
		if err := svc.Transition(ctx, id, path[i], path[i+1]); err != nil {
			t.Fatalf("transition to %s failed: %v", path[i+1], err)
		}
	}
}

func fullResult(score int) *CompletedResult {
	bucket := analysis.BucketAnalysis{
		OverallScore: float64(score),
		Parameters: map[string]analysis.ParameterScore{
			"pace": {Score: score, Observation: "ok", Coaching: "ok"},
		},
	}
	return &CompletedResult{
		Transcript:   "hello world",
		OverallScore: score,
		Report: &analysis.Report{
			Mode: analysis.ModeFull,
			Full: &analysis.FullReport{
				Communication: bucket,
				Appearance:    bucket,
				Storytelling:  bucket,
			},
		},
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc := NewAssessmentService(newFakeAssessmentRepo())
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "", models.ModeFull, "en-US"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for empty user, got %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", "banana", "en-US"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for bad mode, got %v", err)
	}

	a, err := svc.Submit(ctx, "u1", models.ModeFull, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != models.StatusUploading {
		t.Errorf("expected uploading, got %s", a.Status)
	}
	if a.Language != "en-US" {
		t.Errorf("expected default language, got %q", a.Language)
	}
}

func TestGetResult_OnlyWhenCompleted(t *testing.T) {
	repo := newFakeAssessmentRepo()
	svc := NewAssessmentService(repo)
	ctx := context.Background()

	a, _ := svc.Submit(ctx, "u1", models.ModeFull, "en-US")
	if _, err := svc.GetResult(ctx, a.ID); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("expected CONFLICT before completion, got %v", err)
	}

	if err := svc.Accept(ctx, a.ID, "recordings/u1/x.wav"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	advanceTo(t, svc, a.ID, models.StatusGenerating)
	if err := svc.Complete(ctx, a.ID, fullResult(78)); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	got, err := svc.GetResult(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OverallScore == nil || *got.OverallScore != 78 {
		t.Errorf("expected overall 78, got %+v", got.OverallScore)
	}
}

func TestComplete_RequiresGeneratingState(t *testing.T) {
	repo := newFakeAssessmentRepo()
	svc := NewAssessmentService(repo)
	ctx := context.Background()

	a, _ := svc.Submit(ctx, "u1", models.ModeFull, "en-US")
	if err := svc.Complete(ctx, a.ID, fullResult(50)); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("expected CONFLICT completing from uploading, got %v", err)
	}
}

func TestFail_TerminalRecordsStayTerminal(t *testing.T) {
	repo := newFakeAssessmentRepo()
	svc := NewAssessmentService(repo)
	ctx := context.Background()

	a, _ := svc.Submit(ctx, "u1", models.ModeFull, "en-US")
	if err := svc.Fail(ctx, a.ID, "transcription failed"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	// failed is terminal: nothing moves it again
	if err := svc.Fail(ctx, a.ID, "again"); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("expected CONFLICT failing a failed record, got %v", err)
	}
	if err := svc.Transition(ctx, a.ID, models.StatusFailed, models.StatusProcessing); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("expected CONFLICT transitioning a failed record, got %v", err)
	}

	got, _ := svc.Get(ctx, a.ID)
	if got.ErrorMessage == nil || *got.ErrorMessage != "transcription failed" {
		t.Errorf("expected original error message to survive, got %+v", got.ErrorMessage)
	}
	if got.OverallScore != nil {
		t.Error("failed assessment must not carry scores")
	}
}

func TestTransition_RejectsIllegalStep(t *testing.T) {
	repo := newFakeAssessmentRepo()
	svc := NewAssessmentService(repo)
	ctx := context.Background()

	a, _ := svc.Submit(ctx, "u1", models.ModeFull, "en-US")
	if err := svc.Transition(ctx, a.ID, models.StatusUploading, models.StatusScoring); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("expected CONFLICT for skipped states, got %v", err)
	}
}
