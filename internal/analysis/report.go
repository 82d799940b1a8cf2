// Package analysis turns a transcript plus its computed metrics into
// qualitative scores by prompting an external generative model and parsing
// its structured reply. Anything malformed coming back is a hard failure;
// there is no best-effort fallback.
package analysis

import "fmt"

// ParameterScore is one scored sub-facet within a bucket. Immutable once
// parsed.
type ParameterScore struct {
	Score       int    `json:"score"`
	RawValue    string `json:"raw_value,omitempty"`
	Observation string `json:"observation"`
	Coaching    string `json:"coaching"`
}

// BucketAnalysis is one top-level scored dimension with its parameter map.
type BucketAnalysis struct {
	OverallScore float64                   `json:"overall_score"`
	Parameters   map[string]ParameterScore `json:"parameters"`
	Note         string                    `json:"note,omitempty"`
}

// FullReport is the three-bucket schema for a full assessment.
type FullReport struct {
	Communication BucketAnalysis `json:"communication"`
	Appearance    BucketAnalysis `json:"appearance"`
	Storytelling  BucketAnalysis `json:"storytelling"`
	Summary       string         `json:"summary"`
}

// DimensionScore is one of the five scenario-analysis dimensions.
type DimensionScore struct {
	Score       int    `json:"score"`
	Observation string `json:"observation"`
	Coaching    string `json:"coaching"`
}

// ScenarioDimensions are the required keys of a scenario report.
var ScenarioDimensions = []string{
	"commanding_presence",
	"strategic_thinking",
	"composure",
	"decisiveness",
	"stakeholder_management",
}

// ScenarioReport is the scenario-mode schema. Score is the model's own
// top-level judgment; it is reported as-is and never re-derived from the
// dimension scores.
type ScenarioReport struct {
	Score        int                       `json:"score"`
	Dimensions   map[string]DimensionScore `json:"dimensions"`
	Strengths    []string                  `json:"strengths"`
	Improvements []string                  `json:"improvements"`
	Summary      string                    `json:"summary"`
}

// Report is the tagged union of the two known response schemas. Exactly one
// of Full / Scenario is set, matching Mode.
type Report struct {
	Mode     Mode
	Full     *FullReport
	Scenario *ScenarioReport
}

type Mode string

const (
	ModeFull     Mode = "full"
	ModeScenario Mode = "scenario"
)

func validateBucket(name string, b BucketAnalysis) error {
	if b.OverallScore < 0 || b.OverallScore > 100 {
		return fmt.Errorf("bucket %q: overall_score %v outside [0,100]", name, b.OverallScore)
	}
	if len(b.Parameters) == 0 {
		return fmt.Errorf("bucket %q: no parameters", name)
	}
	for pname, p := range b.Parameters {
		if p.Score < 0 || p.Score > 100 {
			return fmt.Errorf("bucket %q parameter %q: score %d outside [0,100]", name, pname, p.Score)
		}
	}
	return nil
}

func (r *FullReport) validate() error {
	for name, b := range map[string]BucketAnalysis{
		"communication": r.Communication,
		"appearance":    r.Appearance,
		"storytelling":  r.Storytelling,
	} {
		if err := validateBucket(name, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *ScenarioReport) validate() error {
	if r.Score < 0 || r.Score > 100 {
		return fmt.Errorf("scenario score %d outside [0,100]", r.Score)
	}
	for _, name := range ScenarioDimensions {
		d, ok := r.Dimensions[name]
		if !ok {
			return fmt.Errorf("missing scenario dimension %q", name)
		}
		if d.Score < 0 || d.Score > 100 {
			return fmt.Errorf("scenario dimension %q: score %d outside [0,100]", name, d.Score)
		}
	}
	return nil
}
