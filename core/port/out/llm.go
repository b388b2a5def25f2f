package out

import (
	"context"

	"benchscope/core/domain"
)

// ScoreRequest is one candidate's LLM scoring input.
type ScoreRequest struct {
	Candidate domain.RawCandidate
}

// ScoreResult is the LLM's structured judgment for one candidate.
type ScoreResult struct {
	ActivityScore            float64
	ActivityReasoning        string
	ReproducibilityScore     float64
	ReproducibilityReasoning string
	LicenseScore             float64
	LicenseReasoning         string
	NoveltyScore             float64
	NoveltyReasoning         string
	RelevanceScore           float64
	RelevanceReasoning       string

	HasBackendDimensions        bool
	BackendScalabilityScore     float64
	BackendScalabilityReasoning string
	BackendLatencyScore         float64
	BackendLatencyReasoning     string

	IsNotBenchmark       bool
	NonBenchmarkCategory domain.NonBenchmarkCategory
	ToolReasoning        string

	TaskDomain  string
	Metrics     []string
	Baselines   []string
	Institution string
	DatasetSize *int
}

// LLMClient is the outbound port to the structured-output scoring model.
// A single call scores one candidate; the scoring service
// fans this out under a bounded-concurrency semaphore.
type LLMClient interface {
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
}

// StructuredParser is the outbound port to the structured-parsing service
// that turns a PDF's bytes into section-block JSON.
type StructuredParser interface {
	Parse(ctx context.Context, pdfBytes []byte) (map[string]string, error)
}
