package analysis

import (
	"fmt"
	"strings"

	"github.com/stageiq/stageiq/internal/metrics"
)

// Input is everything the prompt embeds: the transcript plus the metrics
// already computed from it. Giving the model the ground-truth numbers keeps
// it from guessing at rates it cannot measure.
type Input struct {
	Mode       Mode
	Transcript string
	Lexical    metrics.LexicalMetrics
	Pause      metrics.PauseMetrics
}

// BuildPrompt renders the deterministic prompt for one assessment. The same
// Input always yields the same prompt; variation comes only from the model.
func BuildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You are an executive-presence assessor scoring a short spoken-word recording.\n\n")

	b.WriteString("Measured signal metrics (ground truth, do not re-estimate):\n")
	fmt.Fprintf(&b, "- speaking rate: %.1f words per minute (%d words)\n", in.Lexical.SpeakingRateWPM, in.Lexical.WordCount)
	fmt.Fprintf(&b, "- filler words: %d (%.1f%% of words)\n", in.Lexical.FillerCount, in.Lexical.FillerRatePct)
	fmt.Fprintf(&b, "- hedging phrases: %d\n", in.Lexical.HedgeCount)
	fmt.Fprintf(&b, "- pauses over %.1fs: %d (avg %.2fs, %.1f per minute)\n\n",
		metrics.PauseThresholdSeconds, in.Pause.PauseCount, in.Pause.AvgPauseSeconds, in.Pause.PausesPerMinute)

	b.WriteString("Transcript:\n\"\"\"\n")
	b.WriteString(in.Transcript)
	b.WriteString("\n\"\"\"\n\n")

	switch in.Mode {
	case ModeScenario:
		b.WriteString(scenarioSchema)
	default:
		b.WriteString(fullSchema)
	}

	b.WriteString("\nRespond with the JSON document only. No markdown, no commentary, no fields beyond the schema. Every score is an integer from 0 to 100.\n")
	return b.String()
}

const fullSchema = `Score three buckets: "communication", "appearance" (nonverbal presence as far as it can be inferred from delivery), and "storytelling". Each bucket is an object:
{"overall_score": <0-100>, "parameters": {"<parameter_name>": {"score": <0-100>, "raw_value": "<measured value if applicable>", "observation": "<what you observed>", "coaching": "<one concrete improvement>"}}, "note": "<optional caveat>"}
Reply with:
{"communication": <bucket>, "appearance": <bucket>, "storytelling": <bucket>, "summary": "<2-3 sentence overall summary>"}`

const scenarioSchema = `Score the speaker's handling of an interactive leadership scenario. Reply with:
{"score": <0-100 overall>, "dimensions": {"commanding_presence": <dim>, "strategic_thinking": <dim>, "composure": <dim>, "decisiveness": <dim>, "stakeholder_management": <dim>}, "strengths": ["..."], "improvements": ["..."], "summary": "<2-3 sentences>"}
where each <dim> is {"score": <0-100>, "observation": "...", "coaching": "..."}. All five dimensions are required.`
