package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stageiq/stageiq/internal/analysis"
	"github.com/stageiq/stageiq/internal/cache"
	"github.com/stageiq/stageiq/internal/metrics"
	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/providers/stt"
	mongorepo "github.com/stageiq/stageiq/internal/repositories/mongo"
	"github.com/stageiq/stageiq/internal/scoring"
	"github.com/stageiq/stageiq/internal/services"
)

// Job is one dequeued assessment run.
type Job struct {
	AssessmentID string
	UserID       string
	Mode         models.AssessmentMode
	Language     string
	Audio        []byte
}

// StatusPublisher pushes lifecycle updates to anyone listening on the
// assessment's channel. Polling stays authoritative; this is additive.
type StatusPublisher func(ctx context.Context, assessmentID string, status models.AssessmentStatus, message string)

// Pipeline runs one assessment end to end: transcription, deterministic
// metrics, qualitative analysis, aggregation, completion. Every failure is
// terminal for the record; retrying means submitting a new assessment.
type Pipeline struct {
	Assessments services.AssessmentService
	Usage       services.UsageService
	Timings     mongorepo.TimingRepository
	STT         stt.Provider
	Analyzer    *analysis.Analyzer
	Cache       cache.Cache
	Lexicon     metrics.Lexicon
	Publish     StatusPublisher
	Logger      *logrus.Logger

	ArtifactTTL time.Duration
	CacheTTL    time.Duration
}

func (p *Pipeline) Run(ctx context.Context, job Job) {
	log := p.Logger.WithFields(logrus.Fields{
		"assessment_id": job.AssessmentID,
		"user_id":       job.UserID,
		"mode":          job.Mode,
	})

	if len(job.Audio) == 0 {
		p.fail(ctx, log, job, "empty recording")
		return
	}

	// transcription + deterministic metrics run under "processing"
	tr, err := p.STT.Transcribe(ctx, job.Audio, job.Language)
	if err != nil {
		log.WithError(err).Error("transcription failed")
		p.fail(ctx, log, job, "transcription failed")
		return
	}
	if tr.Text == "" {
		p.fail(ctx, log, job, "transcription produced an empty transcript")
		return
	}

	// persist the transcript now: a failure further down keeps it readable
	if err := p.Assessments.AttachTranscript(ctx, job.AssessmentID, tr.Text, tr.DurationSeconds); err != nil {
		log.WithError(err).Warn("failed to store transcript on record")
	}
	p.storeArtifact(ctx, log, job, tr)

	lex := metrics.AnalyzeLexical(tr.Text, tr.DurationSeconds, p.Lexicon)
	pause, err := metrics.AnalyzePauses(tr.Words)
	if err != nil {
		log.WithError(err).Error("word timings rejected")
		p.fail(ctx, log, job, "transcription returned unusable word timings")
		return
	}

	if !p.step(ctx, log, job, models.StatusProcessing, models.StatusAnalyzing, "qualitative analysis in flight") {
		return
	}

	report, err := p.Analyzer.Analyze(ctx, analysis.Input{
		Mode:       analysis.Mode(job.Mode),
		Transcript: tr.Text,
		Lexical:    lex,
		Pause:      pause,
	})
	if err != nil {
		log.WithError(err).Error("qualitative analysis failed")
		p.fail(ctx, log, job, "qualitative analysis failed")
		return
	}

	if !p.step(ctx, log, job, models.StatusAnalyzing, models.StatusScoring, "aggregating scores") {
		return
	}

	overall, err := overallScore(report)
	if err != nil {
		log.WithError(err).Error("score aggregation rejected analysis output")
		p.fail(ctx, log, job, "analysis returned out-of-range scores")
		return
	}

	if !p.step(ctx, log, job, models.StatusScoring, models.StatusGenerating, "writing report") {
		return
	}

	result := &services.CompletedResult{
		Transcript:      tr.Text,
		DurationSeconds: tr.DurationSeconds,
		Lexical:         lex,
		Pause:           pause,
		Report:          report,
		OverallScore:    overall,
	}
	if err := p.Assessments.Complete(ctx, job.AssessmentID, result); err != nil {
		log.WithError(err).Error("failed to write completed assessment")
		p.fail(ctx, log, job, "failed to persist assessment result")
		return
	}

	p.cacheReport(ctx, log, job)

	// idempotent; a duplicate completion never double-counts
	if err := p.Usage.RecordConsumption(ctx, job.UserID, job.AssessmentID); err != nil {
		log.WithError(err).Warn("failed to record usage consumption")
	}

	p.publish(ctx, job, models.StatusCompleted, "assessment completed")
	log.Info("assessment completed")
}

// overallScore derives the top-level score per mode: weighted aggregation
// for full assessments, the model's own top-level score for scenarios.
func overallScore(report *analysis.Report) (int, error) {
	if report.Mode == analysis.ModeScenario {
		return report.Scenario.Score, nil
	}
	full := report.Full
	return scoring.Overall(
		full.Communication.OverallScore,
		full.Appearance.OverallScore,
		full.Storytelling.OverallScore,
	)
}

func (p *Pipeline) step(ctx context.Context, log *logrus.Entry, job Job, from, to models.AssessmentStatus, msg string) bool {
	if err := p.Assessments.Transition(ctx, job.AssessmentID, from, to); err != nil {
		log.WithError(err).WithField("to", to).Error("status transition failed")
		p.fail(ctx, log, job, "internal lifecycle error")
		return false
	}
	p.publish(ctx, job, to, msg)
	return true
}

func (p *Pipeline) fail(ctx context.Context, log *logrus.Entry, job Job, message string) {
	if err := p.Assessments.Fail(ctx, job.AssessmentID, message); err != nil {
		log.WithError(err).Error("failed to mark assessment failed")
	}
	p.publish(ctx, job, models.StatusFailed, message)
}

func (p *Pipeline) publish(ctx context.Context, job Job, status models.AssessmentStatus, message string) {
	if p.Publish != nil {
		p.Publish(ctx, job.AssessmentID, status, message)
	}
}

func (p *Pipeline) storeArtifact(ctx context.Context, log *logrus.Entry, job Job, tr *stt.Result) {
	if p.Timings == nil {
		return
	}

	words := make([]models.TimedWord, 0, len(tr.Words))
	for _, w := range tr.Words {
		words = append(words, models.TimedWord{Word: w.Word, Start: w.Start, End: w.End})
	}

	ttl := p.ArtifactTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	now := time.Now().UTC()

	err := p.Timings.Insert(ctx, &models.TranscriptArtifact{
		AssessmentID:    job.AssessmentID,
		UserID:          job.UserID,
		Language:        job.Language,
		Text:            tr.Text,
		DurationSeconds: tr.DurationSeconds,
		Confidence:      tr.Confidence,
		Words:           words,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	})
	if err != nil {
		// artifact is display data; losing it does not fail the assessment
		log.WithError(err).Warn("failed to store transcript artifact")
	}
}

func (p *Pipeline) cacheReport(ctx context.Context, log *logrus.Entry, job Job) {
	if p.Cache == nil {
		return
	}
	a, err := p.Assessments.GetResult(ctx, job.AssessmentID)
	if err != nil {
		log.WithError(err).Warn("failed to reload completed assessment for cache")
		return
	}
	ttl := p.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := p.Cache.SetJSON(ctx, ReportCacheKey(job.AssessmentID), a, ttl); err != nil {
		log.WithError(err).Warn("failed to cache report")
	}
}

// ReportCacheKey is the Redis key for a completed assessment's report.
func ReportCacheKey(assessmentID string) string {
	return "assessment:" + assessmentID + ":report"
}
