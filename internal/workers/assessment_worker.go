package workers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/storage"
)

const (
	// StreamAssessments is the Redis stream submissions are enqueued to.
	StreamAssessments = "assessments:stream"
	// GroupAssessments is the consumer group the worker pool reads as.
	GroupAssessments = "assessment-workers"
)

// StatusChannel is the pub/sub channel carrying one assessment's lifecycle
// pushes.
func StatusChannel(assessmentID string) string {
	return "assessment:" + assessmentID + ":status"
}

// AssessmentWorkerPool consumes submitted assessments from a Redis stream
// and runs the scoring pipeline. One message is handled by exactly one
// consumer; a record is only ever mutated by its own job.
type AssessmentWorkerPool struct {
	Redis      *redis.Client
	Pipeline   *Pipeline
	Signer     storage.Signer
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *AssessmentWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Pipeline == nil {
		return errors.New("AssessmentWorkerPool missing dependency: Redis/Pipeline must be set")
	}
	if p.Stream == "" {
		p.Stream = StreamAssessments
	}
	if p.Group == "" {
		p.Group = GroupAssessments
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.Pipeline.Publish == nil {
		p.Pipeline.Publish = p.publishStatus
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *AssessmentWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *AssessmentWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	assessmentID := getStr("assessment_id")
	userID := getStr("user_id")
	if assessmentID == "" || userID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":      msg.ID,
		"assessment_id": assessmentID,
	})

	job := Job{
		AssessmentID: assessmentID,
		UserID:       userID,
		Mode:         models.AssessmentMode(getStr("mode")),
		Language:     getStr("language"),
	}
	if job.Mode == "" {
		job.Mode = models.ModeFull
	}

	audio, err := p.fetchAudio(ctx, getStr)
	if err != nil {
		log.WithError(err).Error("failed to fetch recording")
		p.Pipeline.fail(ctx, log, job, "failed to fetch recording")
		return
	}
	job.Audio = audio

	p.Pipeline.Run(ctx, job)
}

// fetchAudio resolves the recording bytes from whichever reference the
// submission carried: inline base64, a direct URL, or a stored object that
// needs a signed URL first.
func (p *AssessmentWorkerPool) fetchAudio(ctx context.Context, getStr func(string) string) ([]byte, error) {
	if b64 := getStr("audio_base64"); b64 != "" {
		raw := b64
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:] // strip data:...;base64,
		}
		return base64.StdEncoding.DecodeString(raw)
	}

	url := getStr("audio_url")
	if url == "" {
		objectName := getStr("recording_path")
		if objectName == "" {
			return nil, errors.New("message carries no audio reference")
		}
		if p.Signer == nil {
			return nil, errors.New("recording_path given but no storage signer configured")
		}
		signed, err := p.Signer.SignedGetURL(ctx, objectName, 15*time.Minute)
		if err != nil {
			return nil, err
		}
		url = signed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("recording fetch returned status " + strconv.Itoa(resp.StatusCode))
	}

	const maxBytes = 50 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty recording body")
	}
	return body, nil
}

func (p *AssessmentWorkerPool) publishStatus(ctx context.Context, assessmentID string, status models.AssessmentStatus, message string) {
	payload, _ := json.Marshal(map[string]any{
		"type":          "status",
		"assessment_id": assessmentID,
		"status":        status,
		"message":       message,
	})
	_ = p.Redis.Publish(ctx, StatusChannel(assessmentID), string(payload)).Err()
}
