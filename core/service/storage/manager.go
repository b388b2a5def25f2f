// Package storage implements the primary-with-fallback storage manager:
// one save(candidates) call that guarantees every candidate lands in the
// spreadsheet store or, on spreadsheet failure, the local fallback store.
package storage

import (
	"context"
	"time"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/logger"
	"benchscope/pkg/urlcanon"
)

const fallbackPurgeAge = 7 * 24 * time.Hour

// LookbackFor returns the dedup-on-save window for source.
type LookbackFor func(source domain.Source) time.Duration

type Manager struct {
	primary  out.SpreadsheetStore
	fallback out.FallbackStore
	lookback LookbackFor
}

func NewManager(primary out.SpreadsheetStore, fallback out.FallbackStore, lookback LookbackFor) *Manager {
	return &Manager{primary: primary, fallback: fallback, lookback: lookback}
}

// Save guarantees every candidate in scored ends up in one of the two
// stores, with the primary preferred. Before writing, it backfills any
// previously-unsynced fallback rows and purges old synced rows.
func (m *Manager) Save(ctx context.Context, scored []domain.ScoredCandidate) error {
	if err := m.primary.DiscoverFields(ctx); err != nil {
		logger.WithError(err).Warn("storage manager: field discovery failed, routing this run's batch to fallback")
		return m.insertFallback(ctx, scored)
	}

	if err := m.backfillUnsynced(ctx); err != nil {
		logger.WithError(err).Warn("storage manager: fallback backfill failed")
	}

	if _, err := m.fallback.PurgeSyncedOlderThan(ctx, time.Now().Add(-fallbackPurgeAge)); err != nil {
		logger.WithError(err).Warn("storage manager: purge of old synced fallback rows failed")
	}

	bySource := groupBySource(scored)
	for source, candidates := range bySource {
		if err := m.saveSource(ctx, source, candidates); err != nil {
			logger.WithError(err).WithField("source", string(source)).Warn("storage manager: save failed for source, routing to fallback")
		}
	}
	return nil
}

func (m *Manager) saveSource(ctx context.Context, source domain.Source, candidates []domain.ScoredCandidate) error {
	existing, err := m.primary.ExistingCanonicalURLs(ctx, source, m.lookback(source))
	if err != nil {
		return m.insertFallback(ctx, candidates)
	}

	var fresh []domain.ScoredCandidate
	for _, c := range candidates {
		if existing[urlcanon.Canonicalize(c.URL)] {
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := m.primary.WriteBatch(ctx, fresh); err != nil {
		if apperr.IsAppError(err) {
			return m.insertFallback(ctx, fresh)
		}
		return err
	}
	return nil
}

func (m *Manager) insertFallback(ctx context.Context, candidates []domain.ScoredCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	return m.fallback.Insert(ctx, candidates)
}

func (m *Manager) backfillUnsynced(ctx context.Context) error {
	unsynced, err := m.fallback.Unsynced(ctx)
	if err != nil {
		return err
	}
	if len(unsynced) == 0 {
		return nil
	}

	bySource := map[domain.Source][]domain.ScoredCandidate{}
	urlsBySource := map[domain.Source][]string{}
	for _, row := range unsynced {
		bySource[row.Source] = append(bySource[row.Source], row.ScoredCandidate)
		urlsBySource[row.Source] = append(urlsBySource[row.Source], row.CanonicalURL)
	}

	for source, rows := range bySource {
		if err := m.primary.WriteBatch(ctx, rows); err != nil {
			logger.WithError(err).WithField("source", string(source)).Warn("storage manager: backfill batch failed, rows remain unsynced")
			continue
		}
		if err := m.fallback.MarkSynced(ctx, urlsBySource[source]); err != nil {
			logger.WithError(err).WithField("source", string(source)).Warn("storage manager: failed to mark backfilled rows synced")
		}
	}
	return nil
}

func groupBySource(candidates []domain.ScoredCandidate) map[domain.Source][]domain.ScoredCandidate {
	grouped := map[domain.Source][]domain.ScoredCandidate{}
	for _, c := range candidates {
		grouped[c.Source] = append(grouped[c.Source], c)
	}
	return grouped
}
