package llm

import (
	"fmt"
	"strings"

	"benchscope/core/domain"
)

// BuildPrompt constructs the taxonomy + rubric + schema prompt for one
// candidate. The taxonomy, examples, rubric, and schema sections are fixed
// text of about 4,300 characters (roughly 1,000 tokens); only the candidate
// section varies per call.
func BuildPrompt(c domain.RawCandidate) string {
	var b strings.Builder

	b.WriteString(taxonomySection)
	b.WriteString(rubricSection)
	b.WriteString("\n## Candidate\n\n")
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	fmt.Fprintf(&b, "Source: %s\n", c.Source)
	fmt.Fprintf(&b, "URL: %s\n", c.URL)
	fmt.Fprintf(&b, "Abstract: %s\n", c.Abstract)
	if c.GitHubStars > 0 {
		fmt.Fprintf(&b, "GitHub stars: %d\n", c.GitHubStars)
	}
	if len(c.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(c.Authors, ", "))
	}
	if c.LicenseType != "" {
		fmt.Fprintf(&b, "License: %s\n", c.LicenseType)
	}
	if c.TaskType != "" {
		fmt.Fprintf(&b, "Task type: %s\n", c.TaskType)
	}
	if len(c.EvaluationMetrics) > 0 {
		fmt.Fprintf(&b, "Evaluation metrics: %s\n", strings.Join(c.EvaluationMetrics, ", "))
	}
	if s, ok := c.RawMetadata["evaluation_summary"]; ok && s != "" {
		fmt.Fprintf(&b, "Evaluation summary: %s\n", s)
	}
	if s, ok := c.RawMetadata["dataset_summary"]; ok && s != "" {
		fmt.Fprintf(&b, "Dataset summary: %s\n", s)
	}
	if s, ok := c.RawMetadata["baselines_summary"]; ok && s != "" {
		fmt.Fprintf(&b, "Baselines summary: %s\n", s)
	}

	b.WriteString(schemaSection)

	return b.String()
}

const taxonomySection = `You are an expert research analyst judging whether a candidate item is a
genuine AI/ML benchmark: a resource combining a dataset, a defined task, a
measurable metric, and explicit intent that others use it to evaluate
systems.

## What IS a benchmark

- A dataset + task + metric triple intended for comparing systems
  (e.g. "SWE-bench: a dataset of real GitHub issues scored by whether an
  agent's patch makes the hidden test suite pass").
- A leaderboard or evaluation harness that ranks submissions against a fixed
  task and metric (e.g. HELM scenario pages, TechEmpower framework rounds).
- A benchmark methodology paper that proposes new evaluation protocol for an
  existing or new task (these ARE kept, unlike other "paper about X" cases).

## What is NOT a benchmark (classify into non_benchmark_category)

- algorithm_paper: proposes a new method/algorithm and reports results on
  EXISTING benchmarks, without contributing a new dataset/task/metric itself.
- system_framework: a runtime, training framework, or infrastructure project
  (e.g. an inference server, an orchestration library) with no evaluation
  dataset of its own.
- tool_sdk: a developer tool, SDK, CLI, or protocol library for building
  something, not for evaluating something.
- model_release: an announcement of a trained model's weights/API, absent a
  new dataset or evaluation protocol.

## Worked examples

POSITIVE: "GAIA: A Benchmark for General AI Assistants" — new dataset of
real-world questions, explicit scoring protocol, designed to compare
assistants. This is a benchmark.

POSITIVE: "WebArena: A Realistic Web Environment for Building Autonomous
Agents" — new environment + task suite + success-rate metric for web agents.
This is a benchmark.

NEGATIVE: "ReAct: Synergizing Reasoning and Acting in Language Models" —
proposes a prompting method and evaluates on existing benchmarks (HotpotQA,
ALFWorld). This is an algorithm_paper, not a benchmark.

NEGATIVE: "LangGraph: a library for building stateful multi-agent
applications" — a framework/SDK with no evaluation dataset of its own. This
is a tool_sdk, not a benchmark.

`

const rubricSection = `## Scoring rubric

Score each dimension 0.0-10.0. Every *_reasoning field must be at least 150
characters (200 characters for the two backend dimensions), explaining the
specific evidence behind the score — not a restatement of the score itself.

- activity_score: how actively maintained/adopted is this (commit recency,
  stars growth, citation velocity, community engagement).
- reproducibility_score: how easily could an independent team reproduce
  results (public code, public data, documented protocol, fixed splits).
- license_score: how permissive and clear is the license for research reuse.
- novelty_score: how much does this advance evaluation methodology versus
  prior benchmarks in the same task family.
- relevance_score: how relevant is this to coding agents, web/GUI agents,
  autonomous/multi-agent systems, or backend/systems performance evaluation.

If the candidate is a backend/systems performance benchmark (e.g. database,
web framework, inference server throughput), ALSO score:
- backend_scalability_score / backend_scalability_reasoning
- backend_latency_score / backend_latency_reasoning
and set has_backend_dimensions=true. Otherwise leave those four fields at
their zero value and has_backend_dimensions=false.

If is_not_benchmark=true, set non_benchmark_category to one of
algorithm_paper, system_framework, tool_sdk, model_release and explain in
tool_reasoning; dimension scores may be left low but must still be present.

`

const schemaSection = `
## Required JSON output schema

Respond with a single JSON object, no prose outside it:

{
  "activity_score": 0.0,
  "activity_reasoning": "",
  "reproducibility_score": 0.0,
  "reproducibility_reasoning": "",
  "license_score": 0.0,
  "license_reasoning": "",
  "novelty_score": 0.0,
  "novelty_reasoning": "",
  "relevance_score": 0.0,
  "relevance_reasoning": "",
  "has_backend_dimensions": false,
  "backend_scalability_score": 0.0,
  "backend_scalability_reasoning": "",
  "backend_latency_score": 0.0,
  "backend_latency_reasoning": "",
  "is_not_benchmark": false,
  "non_benchmark_category": "",
  "tool_reasoning": "",
  "task_domain": "",
  "metrics": [],
  "baselines": [],
  "institution": "",
  "dataset_size": null
}
`
