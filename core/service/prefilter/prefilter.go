// Package prefilter implements the ordered, short-circuiting rule pipeline
// applied to each collected candidate before enhancement and scoring.
package prefilter

import (
	"strings"
	"time"

	"benchscope/core/domain"
)

// requiredKeywords are the ~30 terms covering code, web/GUI, agent, and
// backend/performance vocabulary. At least one must be
// present in title+abstract for a candidate to pass.
var requiredKeywords = []string{
	"benchmark", "evaluation", "eval", "leaderboard", "test set", "testbed",
	"baseline", "dataset", "code generation", "coding agent", "software engineering",
	"web agent", "gui agent", "browser agent", "computer use", "tool use",
	"agentic", "autonomous agent", "multi-agent", "reasoning benchmark",
	"instruction following", "planning benchmark", "task completion",
	"throughput", "latency", "scalability", "inference speed", "performance comparison",
	"ranking", "comparison study", "empirical study",
}

// excludedKeywords cover pure-NLP, pure-vision, curated-lists, tutorials, and
// SDK-wrapper content that should never pass.
var excludedKeywords = []string{
	"sentiment analysis", "named entity recognition", "part-of-speech",
	"image classification", "object detection", "image segmentation",
	"awesome list", "curated list", "tutorial", "getting started guide",
	"sdk wrapper", "api wrapper", "boilerplate template", "cheat sheet",
	"style transfer", "text-to-speech", "speech recognition model",
}

// benchmarkFeatureKeywords gate a GitHub README for evidence the repo is
// benchmark-shaped, not just a tool.
var benchmarkFeatureKeywords = []string{
	"benchmark", "evaluation", "test set", "dataset", "leaderboard",
	"baseline", "performance", "comparison", "ranking",
}

const (
	minTitleLength    = 10
	minAbstractLength = 20
	minReadmeLength   = 500
	githubMaxAge      = 90 * 24 * time.Hour
)

// EnabledSources is the configured set of sources the pipeline collects from.
// Supplied by the caller, driven by configuration.
type EnabledSources map[domain.Source]bool

// Result is the outcome of running one candidate through the pipeline.
type Result struct {
	Passed bool
	Reason string // filter_reason, set only when Passed is false
}

// Apply runs the ordered, short-circuiting eligibility checks against c.
func Apply(c domain.RawCandidate, enabled EnabledSources) Result {
	if len(strings.TrimSpace(c.Title)) < minTitleLength {
		return reject("title_too_short")
	}

	if !domain.AbstractLengthExempt[c.Source] && len(strings.TrimSpace(c.Abstract)) < minAbstractLength {
		return reject("abstract_too_short")
	}

	if !hasHTTPScheme(c.URL) {
		return reject("invalid_url_scheme")
	}

	if enabled != nil && !enabled[c.Source] {
		return reject("source_not_enabled")
	}

	if domain.TrustedSources[c.Source] {
		return Result{Passed: true}
	}

	haystack := strings.ToLower(c.Title + " " + c.Abstract)

	if containsAny(haystack, excludedKeywords) {
		return reject("excluded_keyword")
	}

	if !containsAny(haystack, requiredKeywords) {
		return reject("no_required_keyword")
	}

	if c.Source == domain.SourceGitHub {
		if reason, ok := githubQualityGate(c); !ok {
			return reject(reason)
		}
	}

	return Result{Passed: true}
}

func githubQualityGate(c domain.RawCandidate) (string, bool) {
	if c.IsFork {
		return "github_is_fork", false
	}

	age := time.Since(c.PushedAt)
	if age > githubMaxAge {
		return "github_stale", false
	}

	if c.GitHubStars < starsThresholdForAge(age) {
		return "github_insufficient_stars", false
	}

	if len(strings.TrimSpace(c.ReadME)) < minReadmeLength {
		return "github_readme_too_short", false
	}

	if !containsAny(strings.ToLower(c.ReadME), benchmarkFeatureKeywords) {
		return "github_readme_missing_benchmark_feature", false
	}

	return "", true
}

// starsThresholdForAge computes the dynamic minimum star count for a repo's age.
func starsThresholdForAge(age time.Duration) int {
	switch {
	case age <= 7*24*time.Hour:
		return 5
	case age <= 30*24*time.Hour:
		return 15
	case age <= 90*24*time.Hour:
		return 30
	default:
		return 50
	}
}

func hasHTTPScheme(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func reject(reason string) Result {
	return Result{Passed: false, Reason: reason}
}
