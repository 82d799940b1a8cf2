package workers

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/stageiq/stageiq/internal/analysis"
	"github.com/stageiq/stageiq/internal/metrics"
	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/providers/stt"
	"github.com/stageiq/stageiq/internal/services"
	"github.com/stageiq/stageiq/internal/utils"
)

type memAssessmentRepo struct {
	byID map[string]*models.Assessment
}

func newMemAssessmentRepo() *memAssessmentRepo {
	return &memAssessmentRepo{byID: map[string]*models.Assessment{}}
}

func (m *memAssessmentRepo) Insert(ctx context.Context, a *models.Assessment) error {
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAssessmentRepo) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAssessmentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range m.byID {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAssessmentRepo) TransitionStatus(ctx context.Context, id string, from, to models.AssessmentStatus) error {
	a, ok := m.byID[id]
	if !ok || a.Status != from {
		return utils.ErrConflict
	}
	a.Status = to
	return nil
}

func (m *memAssessmentRepo) AcceptUpload(ctx context.Context, id string, recordingPath string) error {
	a, ok := m.byID[id]
	if !ok || a.Status != models.StatusUploading {
		return utils.ErrConflict
	}
	a.Status = models.StatusProcessing
	a.RecordingPath = recordingPath
	return nil
}

func (m *memAssessmentRepo) SetTranscript(ctx context.Context, id string, transcript string, durationSeconds float64) error {
	a, ok := m.byID[id]
	if !ok || a.Status.Terminal() {
		return utils.ErrConflict
	}
	a.Transcript = transcript
	a.DurationSeconds = durationSeconds
	return nil
}

func (m *memAssessmentRepo) Complete(ctx context.Context, id string, from models.AssessmentStatus, fields map[string]any) error {
	a, ok := m.byID[id]
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

func (m *memAssessmentRepo) Fail(ctx context.Context, id string, message string) error {
	a, ok := m.byID[id]
	if !ok || a.Status.Terminal() {
		return utils.ErrConflict
	}
	a.Status = models.StatusFailed
	a.ErrorMessage = &message
	return nil
}

type fakeUsage struct {
	recorded []string // assessment IDs
}

func (f *fakeUsage) MayConsume(ctx context.Context, userID, capability string) (bool, error) {
	return true, nil
}

func (f *fakeUsage) RecordConsumption(ctx context.Context, userID, assessmentID string) error {
	for _, id := range f.recorded {
		if id == assessmentID {
			return nil
		}
	}
	f.recorded = append(f.recorded, assessmentID)
	return nil
}

func (f *fakeUsage) Quota(ctx context.Context, userID, capability string) (*services.QuotaInfo, error) {
	return &services.QuotaInfo{Capability: capability, Allowed: true}, nil
}

type fakeSTT struct {
	result *stt.Result
	err    error
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, language string) (*stt.Result, error) {
	return f.result, f.err
}

func (f *fakeSTT) Close() error { return nil }

type fakeModel struct {
	reply string
	err   error
	calls int
}

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeModel) Close() error { return nil }

const modelFullReply = `{
  "communication": {
    "overall_score": 80,
    "parameters": {
      "speaking_rate": {"score": 75, "raw_value": "160 wpm", "observation": "brisk", "coaching": "slow down slightly"}
    }
  },
  "appearance": {
    "overall_score": 60,
    "parameters": {
      "energy": {"score": 60, "observation": "flat", "coaching": "vary tone"}
    }
  },
  "storytelling": {
    "overall_score": 100,
    "parameters": {
      "structure": {"score": 100, "observation": "clear arc", "coaching": "keep it up"}
    }
  },
  "summary": "Strong structure, hesitant delivery."
}`

func sampleTranscription() *stt.Result {
	return &stt.Result{
		Text:            "um so I think we should ship it",
		DurationSeconds: 3.0,
		Confidence:      0.92,
		Words: []metrics.WordTiming{
			{Word: "um", Start: 0.0, End: 0.3},
			{Word: "so", Start: 0.4, End: 0.6},
			{Word: "I", Start: 1.1, End: 1.2},
			{Word: "think", Start: 1.2, End: 1.5},
			{Word: "we", Start: 1.6, End: 1.7},
			{Word: "should", Start: 1.7, End: 2.0},
			{Word: "ship", Start: 2.1, End: 2.4},
			{Word: "it", Start: 2.4, End: 2.6},
		},
	}
}

type pipelineHarness struct {
	repo     *memAssessmentRepo
	usage    *fakeUsage
	model    *fakeModel
	pipeline *Pipeline
	statuses []models.AssessmentStatus
}

func newPipelineHarness(sttp stt.Provider, model *fakeModel) *pipelineHarness {
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := &pipelineHarness{
		repo:  newMemAssessmentRepo(),
		usage: &fakeUsage{},
		model: model,
	}
	h.pipeline = &Pipeline{
		Assessments: services.NewAssessmentService(h.repo),
		Usage:       h.usage,
		STT:         sttp,
		Analyzer:    analysis.NewAnalyzer(model, 0),
		Lexicon:     metrics.DefaultLexicon,
		Logger:      log,
		Publish: func(ctx context.Context, id string, status models.AssessmentStatus, msg string) {
			h.statuses = append(h.statuses, status)
		},
	}
	return h
}

func (h *pipelineHarness) seedProcessing(id, userID string, mode models.AssessmentMode) {
	h.repo.byID[id] = &models.Assessment{
		ID:       id,
		UserID:   userID,
		Mode:     mode,
		Language: "en-US",
		Status:   models.StatusProcessing,
	}
}

func TestPipeline_FullRunCompletes(t *testing.T) {
	h := newPipelineHarness(&fakeSTT{result: sampleTranscription()}, &fakeModel{reply: modelFullReply})
	h.seedProcessing("a1", "u1", models.ModeFull)

	h.pipeline.Run(context.Background(), Job{
		AssessmentID: "a1",
		UserID:       "u1",
		Mode:         models.ModeFull,
		Language:     "en-US",
		Audio:        []byte("fake-audio"),
	})

	a := h.repo.byID["a1"]
	if a.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s (err=%v)", a.Status, a.ErrorMessage)
	}
	// 80*0.40 + 60*0.35 + 100*0.25 = 78
	if a.OverallScore == nil || *a.OverallScore != 78 {
		t.Errorf("expected overall 78, got %v", a.OverallScore)
	}
	if len(h.usage.recorded) != 1 || h.usage.recorded[0] != "a1" {
		t.Errorf("expected one consumption for a1, got %v", h.usage.recorded)
	}
	if h.model.calls != 1 {
		t.Errorf("expected exactly one model call, got %d", h.model.calls)
	}

	want := []models.AssessmentStatus{
		models.StatusAnalyzing, models.StatusScoring,
		models.StatusGenerating, models.StatusCompleted,
	}
	if len(h.statuses) != len(want) {
		t.Fatalf("expected %d status updates, got %v", len(want), h.statuses)
	}
	for i, s := range want {
		if h.statuses[i] != s {
			t.Errorf("status[%d]: expected %s, got %s", i, s, h.statuses[i])
		}
	}
}

func TestPipeline_MalformedAnalysisFails(t *testing.T) {
	h := newPipelineHarness(
		&fakeSTT{result: sampleTranscription()},
		&fakeModel{reply: `{"communication": {"overall_score": 80}}`},
	)
	h.seedProcessing("a1", "u1", models.ModeFull)

	h.pipeline.Run(context.Background(), Job{
		AssessmentID: "a1", UserID: "u1",
		Mode: models.ModeFull, Audio: []byte("fake-audio"),
	})

	a := h.repo.byID["a1"]
	if a.Status != models.StatusFailed {
		t.Fatalf("expected failed, got %s", a.Status)
	}
	if a.ErrorMessage == nil || *a.ErrorMessage == "" {
		t.Error("expected a failure message")
	}
	if a.OverallScore != nil {
		t.Error("failed assessment must not carry a score")
	}
	if a.Transcript == "" {
		t.Error("failed assessment keeps the transcript already computed")
	}
	if h.model.calls != 1 {
		t.Errorf("expected no retry on malformed output, got %d calls", h.model.calls)
	}
	if len(h.usage.recorded) != 0 {
		t.Errorf("failed run must not consume quota, got %v", h.usage.recorded)
	}
}

func TestPipeline_TranscriptionErrorFails(t *testing.T) {
	h := newPipelineHarness(
		&fakeSTT{err: errors.New("stt backend unreachable")},
		&fakeModel{reply: modelFullReply},
	)
	h.seedProcessing("a1", "u1", models.ModeFull)

	h.pipeline.Run(context.Background(), Job{
		AssessmentID: "a1", UserID: "u1",
		Mode: models.ModeFull, Audio: []byte("fake-audio"),
	})

	if got := h.repo.byID["a1"].Status; got != models.StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if h.model.calls != 0 {
		t.Errorf("model must not be called after transcription failure, got %d calls", h.model.calls)
	}
}

func TestPipeline_EmptyAudioFails(t *testing.T) {
	h := newPipelineHarness(&fakeSTT{result: sampleTranscription()}, &fakeModel{reply: modelFullReply})
	h.seedProcessing("a1", "u1", models.ModeFull)

	h.pipeline.Run(context.Background(), Job{AssessmentID: "a1", UserID: "u1", Mode: models.ModeFull})

	if got := h.repo.byID["a1"].Status; got != models.StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

const modelScenarioReply = `{
  "score": 72,
  "dimensions": {
    "commanding_presence": {"score": 70, "observation": "steady", "coaching": "open stronger"},
    "strategic_thinking": {"score": 75, "observation": "clear options", "coaching": "quantify tradeoffs"},
    "composure": {"score": 80, "observation": "calm", "coaching": "keep it"},
    "decisiveness": {"score": 65, "observation": "hedged", "coaching": "commit sooner"},
    "stakeholder_management": {"score": 70, "observation": "engaged", "coaching": "name owners"}
  },
  "strengths": ["calm under pressure"],
  "improvements": ["commit earlier"],
  "summary": "Composed but slow to decide."
}`

func TestPipeline_ScenarioUsesModelScore(t *testing.T) {
	h := newPipelineHarness(&fakeSTT{result: sampleTranscription()}, &fakeModel{reply: modelScenarioReply})
	h.seedProcessing("a1", "u1", models.ModeScenario)

	h.pipeline.Run(context.Background(), Job{
		AssessmentID: "a1", UserID: "u1",
		Mode: models.ModeScenario, Audio: []byte("fake-audio"),
	})

	a := h.repo.byID["a1"]
	if a.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s (err=%v)", a.Status, a.ErrorMessage)
	}
	if a.OverallScore == nil || *a.OverallScore != 72 {
		t.Errorf("expected model's own score 72, got %v", a.OverallScore)
	}
}
