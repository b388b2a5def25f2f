// Package scoring implements the bounded-concurrency LLM scoring stage:
// cache lookup, prompt-driven structured scoring, the reasoning-length
// repair loop, and the non-benchmark penalty.
package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/logger"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/urlcanon"
)

const (
	minReasoningLength        = 150
	minBackendReasoningLength = 200
	maxRepairAttempts         = 2
)

// Repairer is implemented by LLM clients that support the reasoning-length
// repair loop. Clients that don't support it simply fail validation after
// the first attempt.
type Repairer interface {
	Repair(ctx context.Context, priorPrompt, priorResponse string, underLengthFields []string) (out.ScoreResult, string, error)
}

// PromptBuilder constructs the structured-output prompt for a candidate.
// Satisfied by adapter/out/llm.BuildPrompt.
type PromptBuilder func(domain.RawCandidate) string

type Config struct {
	Concurrency int // semaphore capacity, default 50
	Weights     domain.ScoreWeights
}

func DefaultConfig() Config {
	return Config{
		Concurrency: 50,
		Weights:     domain.DefaultScoreWeights(),
	}
}

// Scorer fans out LLM scoring over a batch under a bounded semaphore.
type Scorer struct {
	llm           out.LLMClient
	cache         out.ResultCache
	promptBuilder PromptBuilder
	fallback      *FallbackScorer
	sem           *ratelimit.Semaphore
	cfg           Config
}

func NewScorer(llm out.LLMClient, cache out.ResultCache, promptBuilder PromptBuilder, cfg Config) *Scorer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 50
	}
	return &Scorer{
		llm:           llm,
		cache:         cache,
		promptBuilder: promptBuilder,
		fallback:      NewFallbackScorer(),
		sem:           ratelimit.NewSemaphore(cfg.Concurrency),
		cfg:           cfg,
	}
}

// ScoreBatch scores every candidate concurrently, bounded by the semaphore.
// A candidate that fails after repair exhaustion is dropped from the result
// set, logged, and does not abort the batch. Result ordering follows
// completion order, not input order.
func (s *Scorer) ScoreBatch(ctx context.Context, candidates []domain.RawCandidate) []domain.ScoredCandidate {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []domain.ScoredCandidate
	)

	for _, c := range candidates {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := s.sem.Acquire(ctx); err != nil {
				logger.WithError(err).WithField("url", c.URL).Warn("scorer: semaphore acquire failed")
				return
			}
			defer s.sem.Release()

			scored, err := s.scoreOne(ctx, c)
			if err != nil {
				logger.WithError(err).WithField("url", c.URL).Warn("scorer: dropping candidate after scoring failure")
				return
			}

			mu.Lock()
			results = append(results, scored)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

func (s *Scorer) scoreOne(ctx context.Context, c domain.RawCandidate) (domain.ScoredCandidate, error) {
	fingerprint := Fingerprint(c.Title, canonicalURLOf(c))

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, fingerprint); err == nil && ok {
			return s.build(c, cached), nil
		}
	}

	prompt := s.promptBuilder(c)

	result, err := s.llm.Score(ctx, out.ScoreRequest{Candidate: c})
	if err != nil {
		return s.attemptFallback(ctx, c, fingerprint, err)
	}

	result, err = s.repairIfNeeded(ctx, prompt, result)
	if err != nil {
		return s.attemptFallback(ctx, c, fingerprint, err)
	}

	if s.cache != nil {
		if setErr := s.cache.Set(ctx, fingerprint, result); setErr != nil {
			logger.WithError(setErr).Warn("scorer: failed to write result cache")
		}
	}

	return s.build(c, result), nil
}

// repairIfNeeded validates reasoning-field lengths, and if only those
// fields are short, re-invokes the repairer up to maxRepairAttempts times.
func (s *Scorer) repairIfNeeded(ctx context.Context, prompt string, result out.ScoreResult) (out.ScoreResult, error) {
	repairer, canRepair := s.llm.(Repairer)

	underLength := underLengthFields(result)
	if len(underLength) == 0 {
		return result, nil
	}
	if !canRepair {
		return out.ScoreResult{}, apperr.Validation("reasoning_too_short", nil)
	}

	priorResponse := ""
	for attempt := 0; attempt < maxRepairAttempts; attempt++ {
		repaired, raw, err := repairer.Repair(ctx, prompt, priorResponse, underLength)
		if err != nil {
			return out.ScoreResult{}, err
		}
		priorResponse = raw

		underLength = underLengthFields(repaired)
		if len(underLength) == 0 {
			return repaired, nil
		}
		result = repaired
	}

	return out.ScoreResult{}, apperr.Validation("reasoning_too_short_after_repair", nil)
}

func (s *Scorer) attemptFallback(ctx context.Context, c domain.RawCandidate, fingerprint string, cause error) (domain.ScoredCandidate, error) {
	if !apperr.IsAppError(cause) || apperr.Code(cause) != apperr.CodeTransient {
		return domain.ScoredCandidate{}, cause
	}

	logger.WithField("url", c.URL).Warn("scorer: LLM unreachable, using rule-based fallback scorer")
	result := s.fallback.Score(c)

	if s.cache != nil {
		if setErr := s.cache.Set(ctx, fingerprint, result); setErr != nil {
			logger.WithError(setErr).Warn("scorer: failed to write fallback result to cache")
		}
	}

	scored := s.build(c, result)
	scored.Fallback = true
	return scored, nil
}

func (s *Scorer) build(c domain.RawCandidate, result out.ScoreResult) domain.ScoredCandidate {
	scored := domain.ScoredCandidate{
		RawCandidate:                c,
		ActivityScore:               result.ActivityScore,
		ActivityReasoning:           result.ActivityReasoning,
		ReproducibilityScore:        result.ReproducibilityScore,
		ReproducibilityReasoning:    result.ReproducibilityReasoning,
		LicenseScore:                result.LicenseScore,
		LicenseReasoning:            result.LicenseReasoning,
		NoveltyScore:                result.NoveltyScore,
		NoveltyReasoning:            result.NoveltyReasoning,
		RelevanceScore:              result.RelevanceScore,
		RelevanceReasoning:          result.RelevanceReasoning,
		HasBackendDimensions:        result.HasBackendDimensions,
		BackendScalabilityScore:     result.BackendScalabilityScore,
		BackendScalabilityReasoning: result.BackendScalabilityReasoning,
		BackendLatencyScore:         result.BackendLatencyScore,
		BackendLatencyReasoning:     result.BackendLatencyReasoning,
		IsNotBenchmark:              result.IsNotBenchmark,
		NonBenchmarkCategory:        result.NonBenchmarkCategory,
		ToolReasoning:               result.ToolReasoning,
		TaskDomain:                  result.TaskDomain,
		Metrics:                     result.Metrics,
		Baselines:                   result.Baselines,
		Institution:                 result.Institution,
		DatasetSize:                 result.DatasetSize,
	}
	return domain.ApplyScoring(scored, s.cfg.Weights)
}

func underLengthFields(r out.ScoreResult) []string {
	var bad []string
	if len(r.ActivityReasoning) < minReasoningLength {
		bad = append(bad, "activity_reasoning")
	}
	if len(r.ReproducibilityReasoning) < minReasoningLength {
		bad = append(bad, "reproducibility_reasoning")
	}
	if len(r.LicenseReasoning) < minReasoningLength {
		bad = append(bad, "license_reasoning")
	}
	if len(r.NoveltyReasoning) < minReasoningLength {
		bad = append(bad, "novelty_reasoning")
	}
	if len(r.RelevanceReasoning) < minReasoningLength {
		bad = append(bad, "relevance_reasoning")
	}
	if r.HasBackendDimensions {
		if len(r.BackendScalabilityReasoning) < minBackendReasoningLength {
			bad = append(bad, "backend_scalability_reasoning")
		}
		if len(r.BackendLatencyReasoning) < minBackendReasoningLength {
			bad = append(bad, "backend_latency_reasoning")
		}
	}
	return bad
}

// Fingerprint is hash(title + canonical_url), used as the result cache key.
func Fingerprint(title, canonicalURL string) string {
	sum := sha256.Sum256([]byte(title + "|" + canonicalURL))
	return hex.EncodeToString(sum[:])
}

func canonicalURLOf(c domain.RawCandidate) string {
	return urlcanon.Canonicalize(c.URL)
}
