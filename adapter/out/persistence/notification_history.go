package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"benchscope/core/domain"
)

type notificationRow struct {
	CanonicalURL  string    `db:"canonical_url"`
	NotifyCount   int       `db:"notify_count"`
	FirstNotified time.Time `db:"first_notified"`
	LastNotified  time.Time `db:"last_notified"`
	Title         string    `db:"title"`
}

func (r notificationRow) toDomain() domain.NotificationRecord {
	return domain.NotificationRecord{
		CanonicalURL:  r.CanonicalURL,
		NotifyCount:   r.NotifyCount,
		FirstNotified: r.FirstNotified,
		LastNotified:  r.LastNotified,
		Title:         r.Title,
	}
}

// NotificationHistoryStore implements out.NotificationHistoryStore against a
// notification_history table keyed by canonical URL.
type NotificationHistoryStore struct {
	db *sqlx.DB
}

func NewNotificationHistoryStore(db *sqlx.DB) *NotificationHistoryStore {
	return &NotificationHistoryStore{db: db}
}

func (s *NotificationHistoryStore) Get(ctx context.Context, canonicalURL string) (domain.NotificationRecord, bool, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row, `
		SELECT canonical_url, notify_count, first_notified, last_notified, title
		FROM notification_history
		WHERE canonical_url = $1`, canonicalURL)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotificationRecord{}, false, nil
	}
	if err != nil {
		return domain.NotificationRecord{}, false, fmt.Errorf("notification history: get %s: %w", canonicalURL, err)
	}
	return row.toDomain(), true, nil
}

func (s *NotificationHistoryStore) IncrementNotified(ctx context.Context, canonicalURL, title string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_history (canonical_url, notify_count, first_notified, last_notified, title)
		VALUES ($1, 1, $2, $2, $3)
		ON CONFLICT (canonical_url) DO UPDATE SET
			notify_count  = notification_history.notify_count + 1,
			last_notified = EXCLUDED.last_notified,
			title         = EXCLUDED.title`,
		canonicalURL, now, title)
	if err != nil {
		return fmt.Errorf("notification history: increment %s: %w", canonicalURL, err)
	}
	return nil
}
