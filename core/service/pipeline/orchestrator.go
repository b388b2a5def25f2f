// Package pipeline implements the top-level run: collect, deduplicate,
// prefilter, enhance, score, filter by priority, persist, notify. Each
// stage's failure is isolated and logged; the run proceeds with whatever
// the previous stage produced, the same early-exit-per-item shape the
// classification score pipeline uses for its own multi-stage accumulation.
package pipeline

import (
	"context"
	"time"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/core/service/enhancer"
	"benchscope/core/service/notifier"
	"benchscope/core/service/prefilter"
	"benchscope/core/service/scoring"
	"benchscope/core/service/storage"
	"benchscope/pkg/logger"
	"benchscope/pkg/urlcanon"
)

// StageCounts records input/output sizes for one stage of a run.
type StageCounts struct {
	Input  int
	Output int
}

// RunResult accumulates per-stage and per-source counters for one pipeline run.
type RunResult struct {
	StartedAt  time.Time
	FinishedAt time.Time

	ByCollector map[domain.Source]int
	Collected   StageCounts
	Deduplicated StageCounts
	Prefiltered StageCounts
	Enhanced    StageCounts
	Scored      StageCounts
	PriorityFiltered StageCounts

	PersistErr error
	NotifyErr  error
}

// Duration is the wall-clock time the run took.
func (r RunResult) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Orchestrator wires every stage service together into one Run call.
type Orchestrator struct {
	collectors     []out.Collector
	enabledSources prefilter.EnabledSources
	enhancer       *enhancer.Enhancer
	scorer         *scoring.Scorer
	storageManager *storage.Manager
	notifier       *notifier.Notifier
	existingLookup func(ctx context.Context, source domain.Source, lookback time.Duration) (map[string]bool, error)
	lookbackFor    storage.LookbackFor
	runLogDir      string
}

// Deps holds every collaborator the orchestrator fans its stages out to.
type Deps struct {
	Collectors     []out.Collector
	EnabledSources prefilter.EnabledSources
	Enhancer       *enhancer.Enhancer
	Scorer         *scoring.Scorer
	StorageManager *storage.Manager
	Notifier       *notifier.Notifier
	ExistingLookup func(ctx context.Context, source domain.Source, lookback time.Duration) (map[string]bool, error)
	LookbackFor    storage.LookbackFor
	RunLogDir      string // if non-empty, one log file per run is written here
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		collectors:     deps.Collectors,
		enabledSources: deps.EnabledSources,
		enhancer:       deps.Enhancer,
		scorer:         deps.Scorer,
		storageManager: deps.StorageManager,
		notifier:       deps.Notifier,
		existingLookup: deps.ExistingLookup,
		lookbackFor:    deps.LookbackFor,
		runLogDir:      deps.RunLogDir,
	}
}

// Run executes one end-to-end pipeline pass.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	result := RunResult{StartedAt: time.Now(), ByCollector: map[domain.Source]int{}}

	detach := o.attachRunLog()
	if detach != nil {
		defer detach()
	}

	raw := o.collect(ctx, &result)
	result.Collected = StageCounts{Input: len(raw), Output: len(raw)}

	deduped := o.deduplicate(ctx, raw)
	result.Deduplicated = StageCounts{Input: len(raw), Output: len(deduped)}

	prefiltered := o.applyPrefilter(deduped)
	result.Prefiltered = StageCounts{Input: len(deduped), Output: len(prefiltered)}

	enhanced := o.enhance(ctx, prefiltered)
	result.Enhanced = StageCounts{Input: len(prefiltered), Output: len(enhanced)}

	scored := o.score(ctx, enhanced)
	result.Scored = StageCounts{Input: len(enhanced), Output: len(scored)}

	prioritized := filterLowPriority(scored)
	result.PriorityFiltered = StageCounts{Input: len(scored), Output: len(prioritized)}
	logger.WithField("dropped_low_priority", len(scored)-len(prioritized)).Info("pipeline: priority filter complete")

	if o.storageManager != nil {
		if err := o.storageManager.Save(ctx, prioritized); err != nil {
			logger.WithError(err).Error("pipeline: persist stage failed")
			result.PersistErr = err
		}
	}

	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, prioritized); err != nil {
			logger.WithError(err).Error("pipeline: notify stage failed")
			result.NotifyErr = err
		}
	}

	result.FinishedAt = time.Now()
	return result
}

// collect runs every collector sequentially (collectors are independent I/O
// calls against distinct upstreams; nothing is gained by racing them, and
// sequential execution keeps each source's rate limit predictable).
func (o *Orchestrator) collect(ctx context.Context, result *RunResult) []domain.RawCandidate {
	var all []domain.RawCandidate
	for _, c := range o.collectors {
		source := c.Source()
		if o.enabledSources != nil && !o.enabledSources[source] {
			continue
		}

		candidates, err := c.Collect(ctx)
		if err != nil {
			logger.WithError(err).WithField("source", string(source)).Warn("pipeline: collector failed, continuing with remaining sources")
			continue
		}
		result.ByCollector[source] = len(candidates)
		all = append(all, candidates...)
	}
	return all
}

// deduplicate runs the two-pass dedup: first within this run's batch
// (keeping the earliest-seen candidate per canonical URL), then against the
// primary store's recent history per source.
func (o *Orchestrator) deduplicate(ctx context.Context, candidates []domain.RawCandidate) []domain.RawCandidate {
	seen := make(map[string]bool, len(candidates))
	var inRun []domain.RawCandidate
	for _, c := range candidates {
		canonical := urlcanon.Canonicalize(c.URL)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		inRun = append(inRun, c)
	}

	if o.existingLookup == nil || o.lookbackFor == nil {
		return inRun
	}

	bySource := map[domain.Source][]domain.RawCandidate{}
	for _, c := range inRun {
		bySource[c.Source] = append(bySource[c.Source], c)
	}

	var out []domain.RawCandidate
	for source, group := range bySource {
		existing, err := o.existingLookup(ctx, source, o.lookbackFor(source))
		if err != nil {
			logger.WithError(err).WithField("source", string(source)).Warn("pipeline: cross-run dedup lookup failed, keeping candidates unfiltered for this source")
			out = append(out, group...)
			continue
		}
		for _, c := range group {
			if existing[urlcanon.Canonicalize(c.URL)] {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

func (o *Orchestrator) applyPrefilter(candidates []domain.RawCandidate) []domain.RawCandidate {
	passed := make([]domain.RawCandidate, 0, len(candidates))
	for _, c := range candidates {
		result := prefilter.Apply(c, o.enabledSources)
		if result.Passed {
			passed = append(passed, c)
		}
	}
	return passed
}

func (o *Orchestrator) enhance(ctx context.Context, candidates []domain.RawCandidate) []domain.RawCandidate {
	if o.enhancer == nil {
		return candidates
	}
	return o.enhancer.EnhanceBatch(ctx, candidates)
}

func (o *Orchestrator) score(ctx context.Context, candidates []domain.RawCandidate) []domain.ScoredCandidate {
	if o.scorer == nil {
		return nil
	}
	return o.scorer.ScoreBatch(ctx, candidates)
}

func filterLowPriority(scored []domain.ScoredCandidate) []domain.ScoredCandidate {
	kept := make([]domain.ScoredCandidate, 0, len(scored))
	for _, c := range scored {
		if c.Priority == domain.PriorityLow {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (o *Orchestrator) attachRunLog() func() {
	if o.runLogDir == "" {
		return nil
	}
	path := o.runLogDir + "/run-" + time.Now().UTC().Format("20060102T150405Z") + ".log"
	detach, err := logger.AttachRunFile(path)
	if err != nil {
		logger.WithError(err).Warn("pipeline: failed to attach per-run log file")
		return nil
	}
	return detach
}
