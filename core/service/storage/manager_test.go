package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"benchscope/core/domain"
	"benchscope/pkg/apperr"
)

type fakePrimary struct {
	discoverErr     error
	existing        map[string]bool
	existingErr     error
	writeErr        error
	writtenBatches  [][]domain.ScoredCandidate
}

func (f *fakePrimary) DiscoverFields(ctx context.Context) error { return f.discoverErr }

func (f *fakePrimary) ExistingCanonicalURLs(ctx context.Context, source domain.Source, lookback time.Duration) (map[string]bool, error) {
	return f.existing, f.existingErr
}

func (f *fakePrimary) WriteBatch(ctx context.Context, rows []domain.ScoredCandidate) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writtenBatches = append(f.writtenBatches, rows)
	return nil
}

type fakeFallback struct {
	inserted   []domain.ScoredCandidate
	unsynced   []domain.FallbackRow
	marked     []string
	purgeCalls int
}

func (f *fakeFallback) Insert(ctx context.Context, rows []domain.ScoredCandidate) error {
	f.inserted = append(f.inserted, rows...)
	return nil
}

func (f *fakeFallback) Unsynced(ctx context.Context) ([]domain.FallbackRow, error) {
	return f.unsynced, nil
}

func (f *fakeFallback) MarkSynced(ctx context.Context, canonicalURLs []string) error {
	f.marked = append(f.marked, canonicalURLs...)
	return nil
}

func (f *fakeFallback) PurgeSyncedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	f.purgeCalls++
	return 0, nil
}

func candidate(url, title string) domain.ScoredCandidate {
	return domain.ScoredCandidate{RawCandidate: domain.RawCandidate{URL: url, Title: title, Source: domain.SourceArxiv}}
}

func lookback(domain.Source) time.Duration { return 7 * 24 * time.Hour }

func TestSave_WritesFreshCandidatesToPrimary(t *testing.T) {
	primary := &fakePrimary{existing: map[string]bool{}}
	fallback := &fakeFallback{}
	m := NewManager(primary, fallback, lookback)

	err := m.Save(context.Background(), []domain.ScoredCandidate{candidate("https://arxiv.org/abs/1", "A")})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if len(primary.writtenBatches) != 1 || len(primary.writtenBatches[0]) != 1 {
		t.Fatalf("expected one batch of one row written to primary, got %+v", primary.writtenBatches)
	}
	if len(fallback.inserted) != 0 {
		t.Errorf("expected nothing routed to fallback, got %d", len(fallback.inserted))
	}
}

func TestSave_DropsCandidatesAlreadyInPrimary(t *testing.T) {
	primary := &fakePrimary{existing: map[string]bool{"https://arxiv.org/abs/1": true}}
	fallback := &fakeFallback{}
	m := NewManager(primary, fallback, lookback)

	if err := m.Save(context.Background(), []domain.ScoredCandidate{candidate("https://arxiv.org/abs/1", "A")}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if len(primary.writtenBatches) != 0 {
		t.Errorf("expected zero batches written for a fully-deduplicated source, got %d", len(primary.writtenBatches))
	}
}

func TestSave_RoutesToFallbackOnSpreadsheetError(t *testing.T) {
	primary := &fakePrimary{
		existing: map[string]bool{},
		writeErr: apperr.NewSpreadsheetError("write_batch", 0, errors.New("boom")),
	}
	fallback := &fakeFallback{}
	m := NewManager(primary, fallback, lookback)

	if err := m.Save(context.Background(), []domain.ScoredCandidate{candidate("https://arxiv.org/abs/2", "B")}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if len(fallback.inserted) != 1 {
		t.Fatalf("expected the failed batch to land in fallback, got %d rows", len(fallback.inserted))
	}
}

func TestSave_BackfillsUnsyncedRowsAndMarksThemSynced(t *testing.T) {
	primary := &fakePrimary{existing: map[string]bool{}}
	fallback := &fakeFallback{
		unsynced: []domain.FallbackRow{
			{ScoredCandidate: candidate("https://arxiv.org/abs/3", "C"), CanonicalURL: "https://arxiv.org/abs/3"},
		},
	}
	m := NewManager(primary, fallback, lookback)

	if err := m.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if len(primary.writtenBatches) != 1 {
		t.Fatalf("expected the unsynced row to be backfilled to primary, got %d batches", len(primary.writtenBatches))
	}
	if len(fallback.marked) != 1 || fallback.marked[0] != "https://arxiv.org/abs/3" {
		t.Errorf("expected the backfilled row marked synced, got %v", fallback.marked)
	}
}

func TestSave_PurgesOldSyncedRowsEveryRun(t *testing.T) {
	primary := &fakePrimary{existing: map[string]bool{}}
	fallback := &fakeFallback{}
	m := NewManager(primary, fallback, lookback)

	if err := m.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if fallback.purgeCalls != 1 {
		t.Errorf("expected purge to run once per save, got %d calls", fallback.purgeCalls)
	}
}
