package metrics

import "fmt"

// PauseThresholdSeconds is the minimum silence between consecutive words
// that counts as a pause.
const PauseThresholdSeconds = 0.3

// WordTiming is one spoken word with its start/end offsets in seconds.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type PauseMetrics struct {
	PauseCount        int     `json:"pause_count"`
	TotalPauseSeconds float64 `json:"total_pause_seconds"`
	AvgPauseSeconds   float64 `json:"avg_pause_seconds"`
	PausesPerMinute   float64 `json:"pauses_per_minute"`
}

// AnalyzePauses counts silences longer than PauseThresholdSeconds between
// consecutive words. Out-of-order or overlapping timings are rejected rather
// than clamped; a transcription that produces them is broken upstream.
func AnalyzePauses(words []WordTiming) (PauseMetrics, error) {
	var m PauseMetrics
	if len(words) < 2 {
		return m, nil
	}

	for i, w := range words {
		if w.End < w.Start {
			return PauseMetrics{}, fmt.Errorf("word %d (%q): end %.3f before start %.3f", i, w.Word, w.End, w.Start)
		}
		if i == 0 {
			continue
		}
		prev := words[i-1]
		if w.Start < prev.Start {
			return PauseMetrics{}, fmt.Errorf("word %d (%q): start %.3f out of order", i, w.Word, w.Start)
		}
		gap := w.Start - prev.End
		if gap < 0 {
			return PauseMetrics{}, fmt.Errorf("word %d (%q): overlaps previous word by %.3fs", i, w.Word, -gap)
		}
		if gap > PauseThresholdSeconds {
			m.PauseCount++
			m.TotalPauseSeconds += gap
		}
	}

	if m.PauseCount > 0 {
		m.AvgPauseSeconds = m.TotalPauseSeconds / float64(m.PauseCount)
	}
	if span := words[len(words)-1].End - words[0].Start; span > 0 {
		m.PausesPerMinute = float64(m.PauseCount) / (span / 60)
	}
	return m, nil
}
