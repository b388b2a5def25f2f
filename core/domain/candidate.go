// Package domain holds the tagged product types flowing through every
// stage of the pipeline: RawCandidate (collector output) and ScoredCandidate
// (scorer output), plus the enums and auxiliary-store row types.
package domain

import "time"

// Source identifies which collector produced a RawCandidate.
type Source string

const (
	SourceArxiv            Source = "arxiv"
	SourceGitHub            Source = "github"
	SourceHuggingFace        Source = "huggingface"
	SourceHELM              Source = "helm"
	SourceTechEmpower        Source = "techempower"
	SourceDBEngines          Source = "dbengines"
	SourceSemanticScholar    Source = "semantic_scholar"
)

// TrustedSources skip keyword/benchmark-feature prefilter rules.
var TrustedSources = map[Source]bool{
	SourceHELM:        true,
	SourceTechEmpower: true,
	SourceDBEngines:   true,
}

// AbstractLengthExempt sources skip the minimum-abstract-length rule.
var AbstractLengthExempt = map[Source]bool{
	SourceHELM:           true,
	SourceSemanticScholar: true,
	SourceHuggingFace:     true,
}

// NonBenchmarkCategory classifies why the LLM judged a candidate not to be a benchmark.
type NonBenchmarkCategory string

const (
	CategoryAlgorithmPaper  NonBenchmarkCategory = "algorithm_paper"
	CategorySystemFramework NonBenchmarkCategory = "system_framework"
	CategoryToolSDK         NonBenchmarkCategory = "tool_sdk"
	CategoryModelRelease    NonBenchmarkCategory = "model_release"
	CategoryEmpty           NonBenchmarkCategory = ""
)

// Priority is the derived three-level tag on every ScoredCandidate.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RawCandidate is produced by collectors and consumed by prefilter/enhancer/scorer.
type RawCandidate struct {
	// Identity
	URL    string
	Source Source

	// Bibliographic
	Title       string
	Abstract    string
	Authors     []string
	PublishDate time.Time

	// Source-specific
	GitHubStars       int
	GitHubURL         string
	DatasetURL        string
	PaperURL          string
	LicenseType       string
	TaskType          string
	EvaluationMetrics []string

	// GitHub-only quality-gate inputs (not persisted, used by prefilter only)
	IsFork   bool
	PushedAt time.Time
	ReadME   string
	Topics   []string

	// Enhancement (filled in by the PDF enhancer for arxiv candidates)
	RawMetadata   map[string]string
	HeroImageURL  string
	HeroImageKey  string
}

// CanonicalURL is computed on demand by callers via pkg/urlcanon; RawCandidate
// intentionally does not cache it so every consumer derives it the same way.

// ScoredCandidate is every field of RawCandidate plus the LLM scorer's output.
type ScoredCandidate struct {
	RawCandidate

	// Five required dimensions
	ActivityScore         float64
	ActivityReasoning     string
	ReproducibilityScore     float64
	ReproducibilityReasoning string
	LicenseScore          float64
	LicenseReasoning      string
	NoveltyScore          float64
	NoveltyReasoning      string
	RelevanceScore        float64
	RelevanceReasoning    string

	// Two optional backend-specific dimensions
	HasBackendDimensions   bool
	BackendScalabilityScore     float64
	BackendScalabilityReasoning string
	BackendLatencyScore         float64
	BackendLatencyReasoning     string

	// Classification fields
	IsNotBenchmark       bool
	NonBenchmarkCategory NonBenchmarkCategory
	ToolReasoning        string

	// Extraction fields
	TaskDomain  string
	Metrics     []string
	Baselines   []string
	Institution string
	DatasetSize *int

	// Derived
	TotalScore float64
	Priority   Priority

	// Fallback scorer marker
	Fallback bool
}

// FallbackRow mirrors ScoredCandidate for the local fallback store, plus
// sync bookkeeping.
type FallbackRow struct {
	ScoredCandidate
	CanonicalURL string
	Synced       bool
	CreatedAt    time.Time
}

// NotificationRecord is one row of the notification history store.
type NotificationRecord struct {
	CanonicalURL string
	NotifyCount  int
	FirstNotified time.Time
	LastNotified  time.Time
	Title         string
}
