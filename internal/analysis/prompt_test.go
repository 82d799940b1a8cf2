package analysis

import (
	"strings"
	"testing"

	"github.com/stageiq/stageiq/internal/metrics"
)

func sampleInput(mode Mode) Input {
	return Input{
		Mode:       mode,
		Transcript: "um so I think we should um go",
		Lexical: metrics.LexicalMetrics{
			SpeakingRateWPM: 160,
			WordCount:       8,
			FillerCount:     3,
			FillerRatePct:   37.5,
			HedgeCount:      1,
		},
		Pause: metrics.PauseMetrics{
			PauseCount:      2,
			AvgPauseSeconds: 0.55,
			PausesPerMinute: 50,
		},
	}
}

func TestBuildPrompt_EmbedsMetricsAndTranscript(t *testing.T) {
	p := BuildPrompt(sampleInput(ModeFull))

	for _, want := range []string{
		"160.0 words per minute",
		"filler words: 3",
		"hedging phrases: 1",
		"avg 0.55s",
		"um so I think we should um go",
		`"communication"`,
		`"storytelling"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_ScenarioSchema(t *testing.T) {
	p := BuildPrompt(sampleInput(ModeScenario))
	for _, want := range []string{"commanding_presence", "stakeholder_management", "strengths"} {
		if !strings.Contains(p, want) {
			t.Errorf("scenario prompt missing %q", want)
		}
	}
	if strings.Contains(p, `"storytelling"`) {
		t.Error("scenario prompt must not carry the full-assessment schema")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	if BuildPrompt(sampleInput(ModeFull)) != BuildPrompt(sampleInput(ModeFull)) {
		t.Error("same input must produce the same prompt")
	}
}
