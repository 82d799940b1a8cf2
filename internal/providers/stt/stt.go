package stt

import (
	"context"

	"github.com/stageiq/stageiq/internal/metrics"
)

// Result is one finished transcription: full text, spoken duration, and
// per-word timings in transcript order.
type Result struct {
	Text            string
	DurationSeconds float64
	Confidence      float64
	Words           []metrics.WordTiming
}

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (*Result, error)
	Close() error
}
