// Package notifier implements the notification stage: per-URL suppression,
// top-K individual card pushes, one aggregate summary, and notify-count
// bookkeeping.
package notifier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/logger"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/urlcanon"
)

const (
	defaultMaxNotifyCount = 3
	defaultTopK           = 3
)

type Config struct {
	MaxNotifyCount int
	TopK           int
	StorageURL     string // base URL for the storage backend action button
}

func DefaultConfig() Config {
	return Config{MaxNotifyCount: defaultMaxNotifyCount, TopK: defaultTopK}
}

type Notifier struct {
	history out.NotificationHistoryStore
	webhook out.Webhook
	cfg     Config
	nowFn   func() time.Time
}

func New(history out.NotificationHistoryStore, webhook out.Webhook, cfg Config) *Notifier {
	if cfg.MaxNotifyCount <= 0 {
		cfg.MaxNotifyCount = defaultMaxNotifyCount
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &Notifier{history: history, webhook: webhook, cfg: cfg, nowFn: time.Now}
}

// Notify applies suppression, ranking, and push limits over the to-save set.
func (n *Notifier) Notify(ctx context.Context, saved []domain.ScoredCandidate) error {
	eligible, err := n.dropAlreadyNotified(ctx, saved)
	if err != nil {
		return fmt.Errorf("notifier: dropAlreadyNotified: %w", err)
	}

	sorted := sortByTotalScoreDescending(eligible)

	highPriority := filterHighPriority(sorted)
	top := highPriority
	if len(top) > n.cfg.TopK {
		top = top[:n.cfg.TopK]
	}

	if err := n.pushSummary(ctx, sorted); err != nil {
		logger.WithError(err).Warn("notifier: aggregate summary push failed")
	}

	for i, c := range top {
		if i > 0 {
			ratelimit.Sleep(ctx, 500*time.Millisecond)
		}

		card := out.Card{
			Title:      c.Title,
			TotalScore: c.TotalScore,
			DimensionScores: map[string]float64{
				"activity":        c.ActivityScore,
				"reproducibility": c.ReproducibilityScore,
				"license":         c.LicenseScore,
				"novelty":         c.NoveltyScore,
				"relevance":       c.RelevanceScore,
			},
			Reasoning:    overallReasoning(c),
			CandidateURL: c.URL,
			StorageURL:   n.cfg.StorageURL,
			HeroImageURL: c.HeroImageURL,
		}

		if err := n.webhook.PushCard(ctx, card); err != nil {
			logger.WithError(err).WithField("url", c.URL).Warn("notifier: card push failed")
			continue
		}

		canonical := urlcanon.Canonicalize(c.URL)
		if err := n.history.IncrementNotified(ctx, canonical, c.Title, n.nowFn()); err != nil {
			logger.WithError(err).WithField("url", c.URL).Warn("notifier: failed to record notify count")
		}
	}

	return nil
}

func (n *Notifier) dropAlreadyNotified(ctx context.Context, candidates []domain.ScoredCandidate) ([]domain.ScoredCandidate, error) {
	var eligible []domain.ScoredCandidate
	for _, c := range candidates {
		canonical := urlcanon.Canonicalize(c.URL)
		record, found, err := n.history.Get(ctx, canonical)
		if err != nil {
			return nil, err
		}
		if found && record.NotifyCount >= n.cfg.MaxNotifyCount {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible, nil
}

func (n *Notifier) pushSummary(ctx context.Context, candidates []domain.ScoredCandidate) error {
	counts := map[domain.Priority]int{}
	for _, c := range candidates {
		counts[c.Priority]++
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%d new candidates (high=%d, medium=%d, low=%d)",
		len(candidates), counts[domain.PriorityHigh], counts[domain.PriorityMedium], counts[domain.PriorityLow]))

	top5 := candidates
	if len(top5) > 5 {
		top5 = top5[:5]
	}
	for i, c := range top5 {
		lines = append(lines, fmt.Sprintf("%d. %s (%.1f, %s)", i+1, c.Title, c.TotalScore, c.Priority))
	}

	return n.webhook.PushSummary(ctx, out.Summary{Text: strings.Join(lines, "\n")})
}

func sortByTotalScoreDescending(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	sorted := make([]domain.ScoredCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalScore > sorted[j].TotalScore
	})
	return sorted
}

func filterHighPriority(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	var high []domain.ScoredCandidate
	for _, c := range candidates {
		if c.Priority == domain.PriorityHigh {
			high = append(high, c)
		}
	}
	return high
}

func overallReasoning(c domain.ScoredCandidate) string {
	return strings.Join([]string{
		c.ActivityReasoning, c.ReproducibilityReasoning, c.LicenseReasoning,
		c.NoveltyReasoning, c.RelevanceReasoning,
	}, " ")
}
