// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"benchscope/core/domain"
)

// =============================================================================
// Fallback Store (embedded relational backup for the spreadsheet backend)
// =============================================================================

const candidateSelectColumns = `
	canonical_url, url, source, title, abstract, authors, publish_date,
	github_stars, github_url, dataset_url, paper_url, license_type, task_type, evaluation_metrics,
	activity_score, activity_reasoning, reproducibility_score, reproducibility_reasoning,
	license_score, license_reasoning, novelty_score, novelty_reasoning,
	relevance_score, relevance_reasoning,
	has_backend_dimensions, backend_scalability_score, backend_scalability_reasoning,
	backend_latency_score, backend_latency_reasoning,
	is_not_benchmark, non_benchmark_category, tool_reasoning,
	task_domain, metrics, baselines, institution, dataset_size,
	total_score, priority, fallback, hero_image_key, synced, created_at`

// candidateRow is the fallback store's row mapping for domain.FallbackRow.
type candidateRow struct {
	CanonicalURL string         `db:"canonical_url"`
	URL          string         `db:"url"`
	Source       string         `db:"source"`
	Title        string         `db:"title"`
	Abstract     string         `db:"abstract"`
	Authors      pq.StringArray `db:"authors"`
	PublishDate  sql.NullTime   `db:"publish_date"`

	GitHubStars       int            `db:"github_stars"`
	GitHubURL         string         `db:"github_url"`
	DatasetURL        string         `db:"dataset_url"`
	PaperURL          string         `db:"paper_url"`
	LicenseType       string         `db:"license_type"`
	TaskType          string         `db:"task_type"`
	EvaluationMetrics pq.StringArray `db:"evaluation_metrics"`

	ActivityScore            float64 `db:"activity_score"`
	ActivityReasoning        string  `db:"activity_reasoning"`
	ReproducibilityScore     float64 `db:"reproducibility_score"`
	ReproducibilityReasoning string  `db:"reproducibility_reasoning"`
	LicenseScore             float64 `db:"license_score"`
	LicenseReasoning         string  `db:"license_reasoning"`
	NoveltyScore             float64 `db:"novelty_score"`
	NoveltyReasoning         string  `db:"novelty_reasoning"`
	RelevanceScore           float64 `db:"relevance_score"`
	RelevanceReasoning       string  `db:"relevance_reasoning"`

	HasBackendDimensions        bool    `db:"has_backend_dimensions"`
	BackendScalabilityScore     float64 `db:"backend_scalability_score"`
	BackendScalabilityReasoning string  `db:"backend_scalability_reasoning"`
	BackendLatencyScore         float64 `db:"backend_latency_score"`
	BackendLatencyReasoning     string  `db:"backend_latency_reasoning"`

	IsNotBenchmark       bool           `db:"is_not_benchmark"`
	NonBenchmarkCategory string         `db:"non_benchmark_category"`
	ToolReasoning        string         `db:"tool_reasoning"`

	TaskDomain  string         `db:"task_domain"`
	Metrics     pq.StringArray `db:"metrics"`
	Baselines   pq.StringArray `db:"baselines"`
	Institution string         `db:"institution"`
	DatasetSize sql.NullInt64  `db:"dataset_size"`

	TotalScore   float64 `db:"total_score"`
	Priority     string  `db:"priority"`
	Fallback     bool    `db:"fallback"`
	HeroImageKey string  `db:"hero_image_key"`

	Synced    bool      `db:"synced"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *candidateRow) toDomain() domain.FallbackRow {
	var datasetSize *int
	if r.DatasetSize.Valid {
		v := int(r.DatasetSize.Int64)
		datasetSize = &v
	}

	var publishDate time.Time
	if r.PublishDate.Valid {
		publishDate = r.PublishDate.Time
	}

	return domain.FallbackRow{
		ScoredCandidate: domain.ScoredCandidate{
			RawCandidate: domain.RawCandidate{
				URL:               r.URL,
				Source:            domain.Source(r.Source),
				Title:             r.Title,
				Abstract:          r.Abstract,
				Authors:           r.Authors,
				PublishDate:       publishDate,
				GitHubStars:       r.GitHubStars,
				GitHubURL:         r.GitHubURL,
				DatasetURL:        r.DatasetURL,
				PaperURL:          r.PaperURL,
				LicenseType:       r.LicenseType,
				TaskType:          r.TaskType,
				EvaluationMetrics: r.EvaluationMetrics,
				HeroImageKey:      r.HeroImageKey,
			},
			ActivityScore:               r.ActivityScore,
			ActivityReasoning:           r.ActivityReasoning,
			ReproducibilityScore:        r.ReproducibilityScore,
			ReproducibilityReasoning:    r.ReproducibilityReasoning,
			LicenseScore:                r.LicenseScore,
			LicenseReasoning:            r.LicenseReasoning,
			NoveltyScore:                r.NoveltyScore,
			NoveltyReasoning:            r.NoveltyReasoning,
			RelevanceScore:              r.RelevanceScore,
			RelevanceReasoning:          r.RelevanceReasoning,
			HasBackendDimensions:        r.HasBackendDimensions,
			BackendScalabilityScore:     r.BackendScalabilityScore,
			BackendScalabilityReasoning: r.BackendScalabilityReasoning,
			BackendLatencyScore:         r.BackendLatencyScore,
			BackendLatencyReasoning:     r.BackendLatencyReasoning,
			IsNotBenchmark:              r.IsNotBenchmark,
			NonBenchmarkCategory:        domain.NonBenchmarkCategory(r.NonBenchmarkCategory),
			ToolReasoning:               r.ToolReasoning,
			TaskDomain:                  r.TaskDomain,
			Metrics:                     r.Metrics,
			Baselines:                   r.Baselines,
			Institution:                 r.Institution,
			DatasetSize:                 datasetSize,
			TotalScore:                  r.TotalScore,
			Priority:                    domain.Priority(r.Priority),
			Fallback:                    r.Fallback,
		},
		CanonicalURL: r.CanonicalURL,
		Synced:       r.Synced,
		CreatedAt:    r.CreatedAt,
	}
}

// FallbackStore implements out.FallbackStore using PostgreSQL via sqlx.
type FallbackStore struct {
	db        *sqlx.DB
	canonical func(string) string
}

func NewFallbackStore(db *sqlx.DB, canonicalize func(string) string) *FallbackStore {
	return &FallbackStore{db: db, canonical: canonicalize}
}

func (s *FallbackStore) Insert(ctx context.Context, rows []domain.ScoredCandidate) error {
	const query = `
		INSERT INTO candidates (
			canonical_url, url, source, title, abstract, authors, publish_date,
			github_stars, github_url, dataset_url, paper_url, license_type, task_type, evaluation_metrics,
			activity_score, activity_reasoning, reproducibility_score, reproducibility_reasoning,
			license_score, license_reasoning, novelty_score, novelty_reasoning,
			relevance_score, relevance_reasoning,
			has_backend_dimensions, backend_scalability_score, backend_scalability_reasoning,
			backend_latency_score, backend_latency_reasoning,
			is_not_benchmark, non_benchmark_category, tool_reasoning,
			task_domain, metrics, baselines, institution, dataset_size,
			total_score, priority, fallback, hero_image_key, synced, created_at
		) VALUES (
			:canonical_url, :url, :source, :title, :abstract, :authors, :publish_date,
			:github_stars, :github_url, :dataset_url, :paper_url, :license_type, :task_type, :evaluation_metrics,
			:activity_score, :activity_reasoning, :reproducibility_score, :reproducibility_reasoning,
			:license_score, :license_reasoning, :novelty_score, :novelty_reasoning,
			:relevance_score, :relevance_reasoning,
			:has_backend_dimensions, :backend_scalability_score, :backend_scalability_reasoning,
			:backend_latency_score, :backend_latency_reasoning,
			:is_not_benchmark, :non_benchmark_category, :tool_reasoning,
			:task_domain, :metrics, :baselines, :institution, :dataset_size,
			:total_score, :priority, :fallback, :hero_image_key, false, now()
		)
		ON CONFLICT (canonical_url) DO NOTHING`

	for _, c := range rows {
		row := fromScoredCandidate(c, s.canonical(c.URL))
		if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("fallback store: insert %s: %w", c.URL, err)
		}
	}
	return nil
}

func (s *FallbackStore) Unsynced(ctx context.Context) ([]domain.FallbackRow, error) {
	query := "SELECT " + candidateSelectColumns + " FROM candidates WHERE synced = false"

	var rows []candidateRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("fallback store: query unsynced: %w", err)
	}

	result := make([]domain.FallbackRow, len(rows))
	for i := range rows {
		result[i] = rows[i].toDomain()
	}
	return result, nil
}

func (s *FallbackStore) MarkSynced(ctx context.Context, canonicalURLs []string) error {
	if len(canonicalURLs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE candidates SET synced = true WHERE canonical_url IN (?)`, canonicalURLs)
	if err != nil {
		return fmt.Errorf("fallback store: build mark-synced query: %w", err)
	}
	query = s.db.Rebind(query)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("fallback store: mark synced: %w", err)
	}
	return nil
}

func (s *FallbackStore) PurgeSyncedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE synced = true AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fallback store: purge: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fallback store: purge row count: %w", err)
	}
	return int(affected), nil
}

func fromScoredCandidate(c domain.ScoredCandidate, canonicalURL string) candidateRow {
	var datasetSize sql.NullInt64
	if c.DatasetSize != nil {
		datasetSize = sql.NullInt64{Int64: int64(*c.DatasetSize), Valid: true}
	}

	return candidateRow{
		CanonicalURL:                canonicalURL,
		URL:                         c.URL,
		Source:                      string(c.Source),
		Title:                       c.Title,
		Abstract:                    c.Abstract,
		Authors:                     pq.StringArray(c.Authors),
		PublishDate:                 sql.NullTime{Time: c.PublishDate, Valid: !c.PublishDate.IsZero()},
		GitHubStars:                 c.GitHubStars,
		GitHubURL:                   c.GitHubURL,
		DatasetURL:                  c.DatasetURL,
		PaperURL:                    c.PaperURL,
		LicenseType:                 c.LicenseType,
		TaskType:                    c.TaskType,
		EvaluationMetrics:           pq.StringArray(c.EvaluationMetrics),
		ActivityScore:               c.ActivityScore,
		ActivityReasoning:           c.ActivityReasoning,
		ReproducibilityScore:        c.ReproducibilityScore,
		ReproducibilityReasoning:    c.ReproducibilityReasoning,
		LicenseScore:                c.LicenseScore,
		LicenseReasoning:            c.LicenseReasoning,
		NoveltyScore:                c.NoveltyScore,
		NoveltyReasoning:            c.NoveltyReasoning,
		RelevanceScore:              c.RelevanceScore,
		RelevanceReasoning:          c.RelevanceReasoning,
		HasBackendDimensions:        c.HasBackendDimensions,
		BackendScalabilityScore:     c.BackendScalabilityScore,
		BackendScalabilityReasoning: c.BackendScalabilityReasoning,
		BackendLatencyScore:         c.BackendLatencyScore,
		BackendLatencyReasoning:     c.BackendLatencyReasoning,
		IsNotBenchmark:              c.IsNotBenchmark,
		NonBenchmarkCategory:        string(c.NonBenchmarkCategory),
		ToolReasoning:               c.ToolReasoning,
		TaskDomain:                  c.TaskDomain,
		Metrics:                     pq.StringArray(c.Metrics),
		Baselines:                   pq.StringArray(c.Baselines),
		Institution:                 c.Institution,
		DatasetSize:                 datasetSize,
		TotalScore:                  c.TotalScore,
		Priority:                    string(c.Priority),
		Fallback:                    c.Fallback,
		HeroImageKey:                c.HeroImageKey,
	}
}
