package out

import (
	"context"
	"time"

	"benchscope/core/domain"
)

// SpreadsheetStore is the primary storage backend. Implementations
// own the tenant_access_token lifecycle and the field-discovery cache
// internally; callers only see the operations below.
type SpreadsheetStore interface {
	// DiscoverFields caches the set of valid column names for this run.
	DiscoverFields(ctx context.Context) error

	// ExistingCanonicalURLs returns canonical URLs already present within
	// the given lookback window for source.
	ExistingCanonicalURLs(ctx context.Context, source domain.Source, lookback time.Duration) (map[string]bool, error)

	// WriteBatch writes up to 20 rows in one request. Returns a
	// *apperr.SpreadsheetError on failure; callers route the batch to the
	// fallback store on error rather than dropping it.
	WriteBatch(ctx context.Context, rows []domain.ScoredCandidate) error
}

// FallbackStore is the embedded relational backend.
type FallbackStore interface {
	// Insert stores candidates with synced=false.
	Insert(ctx context.Context, rows []domain.ScoredCandidate) error

	// Unsynced returns rows with synced=false, for re-push at the top of a run.
	Unsynced(ctx context.Context) ([]domain.FallbackRow, error)

	// MarkSynced flips synced=true for the given canonical URLs.
	MarkSynced(ctx context.Context, canonicalURLs []string) error

	// PurgeSyncedOlderThan deletes synced=true rows older than cutoff.
	PurgeSyncedOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// NotificationHistoryStore backs the notifier's per-URL suppression counter.
// Canonical URL is the primary key; rows are never expired.
type NotificationHistoryStore interface {
	Get(ctx context.Context, canonicalURL string) (domain.NotificationRecord, bool, error)
	IncrementNotified(ctx context.Context, canonicalURL, title string, now time.Time) error
}
