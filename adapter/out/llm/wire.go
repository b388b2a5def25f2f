package llm

import (
	"benchscope/core/domain"
	"benchscope/core/port/out"
)

// wireScoreResult mirrors the JSON schema embedded in the prompt's
// "Required JSON output schema" section.
type wireScoreResult struct {
	ActivityScore            float64  `json:"activity_score"`
	ActivityReasoning        string   `json:"activity_reasoning"`
	ReproducibilityScore     float64  `json:"reproducibility_score"`
	ReproducibilityReasoning string   `json:"reproducibility_reasoning"`
	LicenseScore             float64  `json:"license_score"`
	LicenseReasoning         string   `json:"license_reasoning"`
	NoveltyScore             float64  `json:"novelty_score"`
	NoveltyReasoning         string   `json:"novelty_reasoning"`
	RelevanceScore           float64  `json:"relevance_score"`
	RelevanceReasoning       string   `json:"relevance_reasoning"`

	HasBackendDimensions        bool    `json:"has_backend_dimensions"`
	BackendScalabilityScore     float64 `json:"backend_scalability_score"`
	BackendScalabilityReasoning string  `json:"backend_scalability_reasoning"`
	BackendLatencyScore         float64 `json:"backend_latency_score"`
	BackendLatencyReasoning     string  `json:"backend_latency_reasoning"`

	IsNotBenchmark       bool   `json:"is_not_benchmark"`
	NonBenchmarkCategory string `json:"non_benchmark_category"`
	ToolReasoning        string `json:"tool_reasoning"`

	TaskDomain  string   `json:"task_domain"`
	Metrics     []string `json:"metrics"`
	Baselines   []string `json:"baselines"`
	Institution string   `json:"institution"`
	DatasetSize *int     `json:"dataset_size"`
}

func (w wireScoreResult) toDomain() out.ScoreResult {
	return out.ScoreResult{
		ActivityScore:               w.ActivityScore,
		ActivityReasoning:           w.ActivityReasoning,
		ReproducibilityScore:        w.ReproducibilityScore,
		ReproducibilityReasoning:    w.ReproducibilityReasoning,
		LicenseScore:                w.LicenseScore,
		LicenseReasoning:            w.LicenseReasoning,
		NoveltyScore:                w.NoveltyScore,
		NoveltyReasoning:            w.NoveltyReasoning,
		RelevanceScore:              w.RelevanceScore,
		RelevanceReasoning:          w.RelevanceReasoning,
		HasBackendDimensions:        w.HasBackendDimensions,
		BackendScalabilityScore:     w.BackendScalabilityScore,
		BackendScalabilityReasoning: w.BackendScalabilityReasoning,
		BackendLatencyScore:         w.BackendLatencyScore,
		BackendLatencyReasoning:     w.BackendLatencyReasoning,
		IsNotBenchmark:              w.IsNotBenchmark,
		NonBenchmarkCategory:        nonBenchmarkCategoryFromWire(w.NonBenchmarkCategory),
		ToolReasoning:               w.ToolReasoning,
		TaskDomain:                  w.TaskDomain,
		Metrics:                     w.Metrics,
		Baselines:                   w.Baselines,
		Institution:                 w.Institution,
		DatasetSize:                 w.DatasetSize,
	}
}

func nonBenchmarkCategoryFromWire(s string) domain.NonBenchmarkCategory {
	switch domain.NonBenchmarkCategory(s) {
	case domain.CategoryAlgorithmPaper, domain.CategorySystemFramework, domain.CategoryToolSDK, domain.CategoryModelRelease:
		return domain.NonBenchmarkCategory(s)
	default:
		return domain.CategoryEmpty
	}
}
