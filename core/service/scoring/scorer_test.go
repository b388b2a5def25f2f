package scoring

import (
	"context"
	"errors"
	"testing"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
)

type fakeLLM struct {
	result out.ScoreResult
	err    error
	calls  int
}

func (f *fakeLLM) Score(ctx context.Context, req out.ScoreRequest) (out.ScoreResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeRepairer struct {
	fakeLLM
	repaired out.ScoreResult
	repairErr error
}

func (f *fakeRepairer) Repair(ctx context.Context, priorPrompt, priorResponse string, underLength []string) (out.ScoreResult, string, error) {
	return f.repaired, "{}", f.repairErr
}

type fakeCache struct {
	store map[string]out.ScoreResult
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]out.ScoreResult{}}
}

func (c *fakeCache) Get(ctx context.Context, fingerprint string) (out.ScoreResult, bool, error) {
	r, ok := c.store[fingerprint]
	return r, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, fingerprint string, result out.ScoreResult) error {
	c.store[fingerprint] = result
	return nil
}

func validResult() out.ScoreResult {
	long := "This is a sufficiently long reasoning string that exceeds one hundred fifty characters so it passes the minimum reasoning length validation rule used by the scorer tests here."
	return out.ScoreResult{
		ActivityScore: 8, ActivityReasoning: long,
		ReproducibilityScore: 7, ReproducibilityReasoning: long,
		LicenseScore: 9, LicenseReasoning: long,
		NoveltyScore: 6, NoveltyReasoning: long,
		RelevanceScore: 9, RelevanceReasoning: long,
	}
}

func candidate() domain.RawCandidate {
	return domain.RawCandidate{URL: "https://arxiv.org/abs/2401.00001", Title: "Some Benchmark", Source: domain.SourceArxiv}
}

func TestScorer_ScoreBatch_ValidResult(t *testing.T) {
	llm := &fakeLLM{result: validResult()}
	cache := newFakeCache()
	scorer := NewScorer(llm, cache, func(domain.RawCandidate) string { return "prompt" }, DefaultConfig())

	got := scorer.ScoreBatch(context.Background(), []domain.RawCandidate{candidate()})
	if len(got) != 1 {
		t.Fatalf("expected 1 scored candidate, got %d", len(got))
	}
	if got[0].TotalScore <= 0 {
		t.Errorf("expected positive total score, got %f", got[0].TotalScore)
	}
}

func TestScorer_ScoreBatch_CacheHitSkipsLLM(t *testing.T) {
	llm := &fakeLLM{result: validResult()}
	cache := newFakeCache()
	c := candidate()
	fp := Fingerprint(c.Title, c.URL)
	cache.store[fp] = validResult()

	scorer := NewScorer(llm, cache, func(domain.RawCandidate) string { return "prompt" }, DefaultConfig())
	got := scorer.ScoreBatch(context.Background(), []domain.RawCandidate{c})

	if len(got) != 1 {
		t.Fatalf("expected 1 scored candidate, got %d", len(got))
	}
	if llm.calls != 0 {
		t.Errorf("expected cache hit to skip the LLM call, got %d calls", llm.calls)
	}
}

func TestScorer_ScoreBatch_ShortReasoningWithoutRepairerDropsCandidate(t *testing.T) {
	short := out.ScoreResult{ActivityReasoning: "too short"}
	llm := &fakeLLM{result: short}
	scorer := NewScorer(llm, newFakeCache(), func(domain.RawCandidate) string { return "prompt" }, DefaultConfig())

	got := scorer.ScoreBatch(context.Background(), []domain.RawCandidate{candidate()})
	if len(got) != 0 {
		t.Errorf("expected candidate to be dropped after failed validation, got %d", len(got))
	}
}

func TestScorer_ScoreBatch_RepairLoopRecoversShortReasoning(t *testing.T) {
	repairer := &fakeRepairer{
		fakeLLM:  fakeLLM{result: out.ScoreResult{ActivityReasoning: "too short"}},
		repaired: validResult(),
	}
	scorer := NewScorer(repairer, newFakeCache(), func(domain.RawCandidate) string { return "prompt" }, DefaultConfig())

	got := scorer.ScoreBatch(context.Background(), []domain.RawCandidate{candidate()})
	if len(got) != 1 {
		t.Fatalf("expected repair loop to recover the candidate, got %d results", len(got))
	}
}

func TestScorer_ScoreBatch_TransientErrorUsesFallback(t *testing.T) {
	llm := &fakeLLM{err: apperr.Transient("llm_complete", errors.New("connection reset"))}
	scorer := NewScorer(llm, newFakeCache(), func(domain.RawCandidate) string { return "prompt" }, DefaultConfig())

	got := scorer.ScoreBatch(context.Background(), []domain.RawCandidate{candidate()})
	if len(got) != 1 {
		t.Fatalf("expected fallback scorer to produce a result, got %d", len(got))
	}
	if !got[0].Fallback {
		t.Errorf("expected Fallback=true marker on fallback-scored candidate")
	}
}

func TestScorer_ScoreBatch_NonTransientErrorDropsCandidate(t *testing.T) {
	llm := &fakeLLM{err: errors.New("boom")}
	scorer := NewScorer(llm, newFakeCache(), func(domain.RawCandidate) string { return "prompt" }, DefaultConfig())

	got := scorer.ScoreBatch(context.Background(), []domain.RawCandidate{candidate()})
	if len(got) != 0 {
		t.Errorf("expected candidate to be dropped on non-transient error, got %d", len(got))
	}
}
