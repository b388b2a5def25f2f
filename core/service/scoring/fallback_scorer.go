package scoring

import (
	"benchscope/core/domain"
	"benchscope/core/port/out"
)

// FallbackScorer produces a minimally-valid ScoreResult by deterministic
// rule when the LLM endpoint is unreachable after its own retries (spec
// §4.5 "Fallback", and §9 Open Question 2's decision: flat mid-scale scores
// rather than attempting heuristic scoring, since a wrong heuristic score is
// worse than an honestly-average one).
type FallbackScorer struct{}

func NewFallbackScorer() *FallbackScorer {
	return &FallbackScorer{}
}

const (
	fallbackScore     = 5.0
	fallbackReasoning = "Automated fallback score: the scoring model was unreachable for this candidate."
)

func (f *FallbackScorer) Score(c domain.RawCandidate) out.ScoreResult {
	return out.ScoreResult{
		ActivityScore:             fallbackScore,
		ActivityReasoning:         fallbackReasoning,
		ReproducibilityScore:      fallbackScore,
		ReproducibilityReasoning:  fallbackReasoning,
		LicenseScore:              fallbackScore,
		LicenseReasoning:          fallbackReasoning,
		NoveltyScore:              fallbackScore,
		NoveltyReasoning:          fallbackReasoning,
		RelevanceScore:            fallbackScore,
		RelevanceReasoning:        fallbackReasoning,
		HasBackendDimensions:      false,
		IsNotBenchmark:            false,
		TaskDomain:                c.TaskType,
		Metrics:                   c.EvaluationMetrics,
	}
}
