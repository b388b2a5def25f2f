package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/core/service/notifier"
	"benchscope/core/service/prefilter"
	"benchscope/core/service/scoring"
	"benchscope/core/service/storage"
)

type fakeCollector struct {
	source     domain.Source
	candidates []domain.RawCandidate
	err        error
}

func (f *fakeCollector) Source() domain.Source { return f.source }

func (f *fakeCollector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	return f.candidates, f.err
}

type fakeLLM struct{}

func longReasoning(label string) string {
	return strings.Repeat(label+" ", 40)
}

func (fakeLLM) Score(ctx context.Context, req out.ScoreRequest) (out.ScoreResult, error) {
	return out.ScoreResult{
		ActivityScore: 8, ActivityReasoning: longReasoning("activity"),
		ReproducibilityScore: 8, ReproducibilityReasoning: longReasoning("repro"),
		LicenseScore: 8, LicenseReasoning: longReasoning("license"),
		NoveltyScore: 8, NoveltyReasoning: longReasoning("novelty"),
		RelevanceScore: 8, RelevanceReasoning: longReasoning("relevance"),
	}, nil
}

type fakeSpreadsheet struct{ written int }

func (f *fakeSpreadsheet) DiscoverFields(ctx context.Context) error { return nil }
func (f *fakeSpreadsheet) ExistingCanonicalURLs(ctx context.Context, source domain.Source, lookback time.Duration) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (f *fakeSpreadsheet) WriteBatch(ctx context.Context, rows []domain.ScoredCandidate) error {
	f.written += len(rows)
	return nil
}

type fakeFallbackStore struct{}

func (fakeFallbackStore) Insert(ctx context.Context, rows []domain.ScoredCandidate) error { return nil }
func (fakeFallbackStore) Unsynced(ctx context.Context) ([]domain.FallbackRow, error)       { return nil, nil }
func (fakeFallbackStore) MarkSynced(ctx context.Context, canonicalURLs []string) error     { return nil }
func (fakeFallbackStore) PurgeSyncedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type fakeHistoryStore struct{}

func (fakeHistoryStore) Get(ctx context.Context, canonicalURL string) (domain.NotificationRecord, bool, error) {
	return domain.NotificationRecord{}, false, nil
}
func (fakeHistoryStore) IncrementNotified(ctx context.Context, canonicalURL, title string, now time.Time) error {
	return nil
}

type fakeWebhook struct{ cards, summaries int }

func (f *fakeWebhook) PushCard(ctx context.Context, card out.Card) error {
	f.cards++
	return nil
}
func (f *fakeWebhook) PushSummary(ctx context.Context, summary out.Summary) error {
	f.summaries++
	return nil
}

func arxivCandidate(url, title string) domain.RawCandidate {
	return domain.RawCandidate{
		URL:      url,
		Source:   domain.SourceArxiv,
		Title:    title,
		Abstract: "A benchmark evaluation dataset for coding agents, with a leaderboard and baselines.",
	}
}

func buildOrchestrator(t *testing.T, collectors []out.Collector, spreadsheet *fakeSpreadsheet, webhook *fakeWebhook) *Orchestrator {
	t.Helper()

	scorer := scoring.NewScorer(fakeLLM{}, nil, func(domain.RawCandidate) string { return "prompt" }, scoring.DefaultConfig())
	storageManager := storage.NewManager(spreadsheet, fakeFallbackStore{}, func(domain.Source) time.Duration { return 7 * 24 * time.Hour })
	notify := notifier.New(fakeHistoryStore{}, webhook, notifier.DefaultConfig())

	enabled := prefilter.EnabledSources{domain.SourceArxiv: true, domain.SourceGitHub: true}

	return New(Deps{
		Collectors:     collectors,
		EnabledSources: enabled,
		Scorer:         scorer,
		StorageManager: storageManager,
		Notifier:       notify,
	})
}

func TestRun_EndToEndHappyPath(t *testing.T) {
	collectors := []out.Collector{
		&fakeCollector{source: domain.SourceArxiv, candidates: []domain.RawCandidate{
			arxivCandidate("https://arxiv.org/abs/1111.1111", "A Benchmark Evaluation Suite"),
			arxivCandidate("https://arxiv.org/abs/2222.2222", "Another Leaderboard Baseline Study"),
		}},
	}
	spreadsheet := &fakeSpreadsheet{}
	webhook := &fakeWebhook{}
	o := buildOrchestrator(t, collectors, spreadsheet, webhook)

	result := o.Run(context.Background())

	if result.Collected.Output != 2 {
		t.Fatalf("expected 2 collected candidates, got %d", result.Collected.Output)
	}
	if result.Prefiltered.Output != 2 {
		t.Fatalf("expected both candidates to pass prefilter, got %d", result.Prefiltered.Output)
	}
	if result.Scored.Output != 2 {
		t.Fatalf("expected 2 scored candidates, got %d", result.Scored.Output)
	}
	if spreadsheet.written == 0 {
		t.Error("expected candidates written to the primary store")
	}
	if result.PersistErr != nil {
		t.Errorf("expected no persist error, got %v", result.PersistErr)
	}
}

func TestRun_DeduplicatesWithinRunByCanonicalURL(t *testing.T) {
	collectors := []out.Collector{
		&fakeCollector{source: domain.SourceArxiv, candidates: []domain.RawCandidate{
			arxivCandidate("https://arxiv.org/abs/1111.1111", "A Benchmark Evaluation Suite"),
			arxivCandidate("https://arxiv.org/abs/1111.1111v2", "A Benchmark Evaluation Suite (v2)"),
		}},
	}
	o := buildOrchestrator(t, collectors, &fakeSpreadsheet{}, &fakeWebhook{})

	result := o.Run(context.Background())

	if result.Deduplicated.Output != 1 {
		t.Fatalf("expected version variants to collapse to 1 candidate, got %d", result.Deduplicated.Output)
	}
}

func TestRun_DropsCandidatesFailingPrefilter(t *testing.T) {
	collectors := []out.Collector{
		&fakeCollector{source: domain.SourceArxiv, candidates: []domain.RawCandidate{
			{URL: "https://arxiv.org/abs/3333.3333", Source: domain.SourceArxiv, Title: "short", Abstract: "too short"},
		}},
	}
	o := buildOrchestrator(t, collectors, &fakeSpreadsheet{}, &fakeWebhook{})

	result := o.Run(context.Background())

	if result.Prefiltered.Output != 0 {
		t.Fatalf("expected the under-length candidate to be rejected, got %d passed", result.Prefiltered.Output)
	}
	if result.Scored.Output != 0 {
		t.Errorf("expected nothing to reach the scorer, got %d", result.Scored.Output)
	}
}

func TestRun_SkipsDisabledSourceCollectors(t *testing.T) {
	collectors := []out.Collector{
		&fakeCollector{source: domain.SourceSemanticScholar, candidates: []domain.RawCandidate{
			{URL: "https://semanticscholar.org/p/1", Source: domain.SourceSemanticScholar, Title: "Should not be collected"},
		}},
	}
	o := buildOrchestrator(t, collectors, &fakeSpreadsheet{}, &fakeWebhook{})

	result := o.Run(context.Background())

	if result.Collected.Output != 0 {
		t.Fatalf("expected the disabled source's collector to be skipped, got %d", result.Collected.Output)
	}
}

func TestRun_ContinuesWhenOneCollectorFails(t *testing.T) {
	collectors := []out.Collector{
		&fakeCollector{source: domain.SourceArxiv, err: context.DeadlineExceeded},
		&fakeCollector{source: domain.SourceGitHub, candidates: []domain.RawCandidate{
			{
				URL: "https://github.com/example/bench", Source: domain.SourceGitHub,
				Title: "example/bench", Abstract: "a benchmark evaluation suite with leaderboard and baselines",
				GitHubStars: 100, PushedAt: time.Now(), ReadME: strings.Repeat("benchmark results comparison ", 40),
			},
		}},
	}
	o := buildOrchestrator(t, collectors, &fakeSpreadsheet{}, &fakeWebhook{})

	result := o.Run(context.Background())

	if result.Collected.Output != 1 {
		t.Fatalf("expected the surviving collector's candidate to still be collected, got %d", result.Collected.Output)
	}
}
