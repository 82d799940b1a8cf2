// Package metrics computes deterministic signal metrics from a transcript
// and its per-word timings. Everything here is pure: no I/O, no state.
package metrics

import "strings"

type LexicalMetrics struct {
	SpeakingRateWPM float64 `json:"speaking_rate_wpm"`
	WordCount       int     `json:"word_count"`
	FillerCount     int     `json:"filler_count"`
	FillerRatePct   float64 `json:"filler_rate_pct"`
	HedgeCount      int     `json:"hedge_count"`
	LexiconVersion  string  `json:"lexicon_version"`
}

// AnalyzeLexical computes speaking rate and filler/hedge density for a
// transcript spoken over durationSeconds. Filler and hedge matches are
// counted independently, so a word inside a matched hedge phrase can also
// count as a filler. That double-counting is an accepted approximation.
func AnalyzeLexical(transcript string, durationSeconds float64, lex Lexicon) LexicalMetrics {
	m := LexicalMetrics{LexiconVersion: lex.Version}

	m.WordCount = len(strings.Fields(transcript))
	if m.WordCount == 0 {
		return m
	}

	if durationSeconds > 0 {
		m.SpeakingRateWPM = float64(m.WordCount) / durationSeconds * 60
	}

	for _, re := range lex.fillerPatterns {
		m.FillerCount += len(re.FindAllStringIndex(transcript, -1))
	}
	for _, re := range lex.hedgePatterns {
		m.HedgeCount += len(re.FindAllStringIndex(transcript, -1))
	}

	m.FillerRatePct = float64(m.FillerCount) / float64(m.WordCount) * 100
	return m
}
