package notifier

import (
	"context"
	"testing"
	"time"

	"benchscope/core/domain"
	"benchscope/core/port/out"
)

type fakeHistory struct {
	store map[string]domain.NotificationRecord
}

func newFakeHistory() *fakeHistory { return &fakeHistory{store: map[string]domain.NotificationRecord{}} }

func (f *fakeHistory) Get(ctx context.Context, canonicalURL string) (domain.NotificationRecord, bool, error) {
	r, ok := f.store[canonicalURL]
	return r, ok, nil
}

func (f *fakeHistory) IncrementNotified(ctx context.Context, canonicalURL, title string, now time.Time) error {
	r := f.store[canonicalURL]
	r.CanonicalURL = canonicalURL
	r.NotifyCount++
	r.LastNotified = now
	r.Title = title
	f.store[canonicalURL] = r
	return nil
}

type fakeWebhook struct {
	cards     []out.Card
	summaries []out.Summary
}

func (f *fakeWebhook) PushCard(ctx context.Context, card out.Card) error {
	f.cards = append(f.cards, card)
	return nil
}

func (f *fakeWebhook) PushSummary(ctx context.Context, summary out.Summary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

func candidate(url, title string, score float64, priority domain.Priority) domain.ScoredCandidate {
	return domain.ScoredCandidate{
		RawCandidate: domain.RawCandidate{URL: url, Title: title},
		TotalScore:   score,
		Priority:     priority,
	}
}

func TestNotify_SuppressesAlreadyNotifiedAtThreshold(t *testing.T) {
	history := newFakeHistory()
	history.store["https://arxiv.org/abs/2401.00001"] = domain.NotificationRecord{NotifyCount: 3}
	webhook := &fakeWebhook{}
	n := New(history, webhook, DefaultConfig())

	c := candidate("https://arxiv.org/abs/2401.00001", "Suppressed", 9.0, domain.PriorityHigh)
	if err := n.Notify(context.Background(), []domain.ScoredCandidate{c}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if len(webhook.cards) != 0 {
		t.Errorf("expected suppressed candidate to get no card push, got %d", len(webhook.cards))
	}
}

func TestNotify_PushesTopKHighPriorityCards(t *testing.T) {
	history := newFakeHistory()
	webhook := &fakeWebhook{}
	cfg := DefaultConfig()
	cfg.TopK = 2
	n := New(history, webhook, cfg)

	candidates := []domain.ScoredCandidate{
		candidate("https://a.example.com/1", "A", 9.5, domain.PriorityHigh),
		candidate("https://a.example.com/2", "B", 9.0, domain.PriorityHigh),
		candidate("https://a.example.com/3", "C", 8.5, domain.PriorityHigh),
		candidate("https://a.example.com/4", "D", 7.0, domain.PriorityMedium),
	}

	if err := n.Notify(context.Background(), candidates); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if len(webhook.cards) != 2 {
		t.Fatalf("expected top-2 high priority cards, got %d", len(webhook.cards))
	}
	if webhook.cards[0].Title != "A" || webhook.cards[1].Title != "B" {
		t.Errorf("expected highest-scoring candidates first, got %q then %q", webhook.cards[0].Title, webhook.cards[1].Title)
	}
}

func TestNotify_AlwaysPushesOneAggregateSummary(t *testing.T) {
	history := newFakeHistory()
	webhook := &fakeWebhook{}
	n := New(history, webhook, DefaultConfig())

	candidates := []domain.ScoredCandidate{
		candidate("https://a.example.com/1", "A", 9.5, domain.PriorityHigh),
	}

	if err := n.Notify(context.Background(), candidates); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(webhook.summaries) != 1 {
		t.Errorf("expected exactly one aggregate summary push, got %d", len(webhook.summaries))
	}
}

func TestNotify_IncrementsNotifyCountForPushedCandidates(t *testing.T) {
	history := newFakeHistory()
	webhook := &fakeWebhook{}
	n := New(history, webhook, DefaultConfig())

	c := candidate("https://arxiv.org/abs/2401.00099", "A", 9.5, domain.PriorityHigh)
	if err := n.Notify(context.Background(), []domain.ScoredCandidate{c}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	record, ok, err := history.Get(context.Background(), "https://arxiv.org/abs/2401.00099")
	if err != nil || !ok {
		t.Fatalf("expected notification record to exist, ok=%v err=%v", ok, err)
	}
	if record.NotifyCount != 1 {
		t.Errorf("expected notify count 1, got %d", record.NotifyCount)
	}
}
