package analysis

import (
	"context"
	"time"

	"github.com/stageiq/stageiq/internal/providers/llm"
	"github.com/stageiq/stageiq/internal/utils"
)

// Analyzer is the qualitative-analysis adapter: one model call per
// assessment, strict parsing of the reply. It does not retry; if a retry
// policy ever exists it belongs to the orchestration layer above.
type Analyzer struct {
	llm     llm.Provider
	timeout time.Duration
}

func NewAnalyzer(provider llm.Provider, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Analyzer{llm: provider, timeout: timeout}
}

// Analyze prompts the model and parses its structured reply. Any failure
// (call error, timeout, malformed payload, out-of-range score) is terminal
// for the assessment.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Report, error) {
	const op = "Analyzer.Analyze"

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.llm.Complete(ctx, BuildPrompt(in))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "qualitative analysis call failed", err)
	}

	report, err := ParseReport(in.Mode, raw)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "qualitative analysis returned malformed payload", err)
	}
	return report, nil
}
