package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseReport decodes and exhaustively validates the model's structured
// reply for the given mode. The whole payload must be the JSON document;
// a markdown code fence around it is tolerated because generative models
// add one even when told not to, but any other surrounding commentary is an
// error.
func ParseReport(mode Mode, raw string) (*Report, error) {
	doc := stripFence(raw)

	switch mode {
	case ModeFull:
		full, err := parseFull(doc)
		if err != nil {
			return nil, err
		}
		return &Report{Mode: ModeFull, Full: full}, nil
	case ModeScenario:
		sc, err := parseScenario(doc)
		if err != nil {
			return nil, err
		}
		return &Report{Mode: ModeScenario, Scenario: sc}, nil
	default:
		return nil, fmt.Errorf("unknown analysis mode %q", mode)
	}
}

// fullPayload mirrors FullReport with pointer buckets so a missing bucket is
// distinguishable from an all-zero one.
type fullPayload struct {
	Communication *BucketAnalysis `json:"communication"`
	Appearance    *BucketAnalysis `json:"appearance"`
	Storytelling  *BucketAnalysis `json:"storytelling"`
	Summary       string          `json:"summary"`
}

func parseFull(doc string) (*FullReport, error) {
	var p fullPayload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("invalid analysis payload: %w", err)
	}
	for name, b := range map[string]*BucketAnalysis{
		"communication": p.Communication,
		"appearance":    p.Appearance,
		"storytelling":  p.Storytelling,
	} {
		if b == nil {
			return nil, fmt.Errorf("missing bucket %q", name)
		}
	}

	r := &FullReport{
		Communication: *p.Communication,
		Appearance:    *p.Appearance,
		Storytelling:  *p.Storytelling,
		Summary:       p.Summary,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

type scenarioPayload struct {
	Score        *int                      `json:"score"`
	Dimensions   map[string]DimensionScore `json:"dimensions"`
	Strengths    []string                  `json:"strengths"`
	Improvements []string                  `json:"improvements"`
	Summary      string                    `json:"summary"`
}

func parseScenario(doc string) (*ScenarioReport, error) {
	var p scenarioPayload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("invalid analysis payload: %w", err)
	}
	if p.Score == nil {
		return nil, fmt.Errorf("missing top-level score")
	}

	r := &ScenarioReport{
		Score:        *p.Score,
		Dimensions:   p.Dimensions,
		Strengths:    p.Strengths,
		Improvements: p.Improvements,
		Summary:      p.Summary,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
