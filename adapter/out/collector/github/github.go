// Package github implements the code-host search-API collector: one
// search per configured topic/keyword, README fetch per result, bounded by
// a go-pkgz/pool worker pool and logged through a per-collector
// zerolog.Logger, the same per-job structured-logging shape the worker
// pool used for its own bounded fan-out.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/resilience"
	"benchscope/pkg/retry"
)

const (
	searchURL            = "https://api.github.com/search/repositories"
	sourceKey            = "github"
	defaultLookbackDays  = 30
	defaultPerTopic      = 30
	defaultMaxWorkers    = 5
	defaultTopicBatch    = 10
	defaultWorkerChanLen = 20
	protectorWait        = 5 * time.Second
)

// defaultTopicBlacklist excludes repos tagged as curated lists or tutorials,
// the same spirit as the prefilter's excluded-keyword list but applied to
// GitHub topics rather than title/abstract text.
var defaultTopicBlacklist = []string{"awesome-list", "tutorial", "boilerplate", "cheat-sheet", "starter-template"}

// Config configures the GitHub collector.
type Config struct {
	Token          string // optional; raises the unauthenticated rate limit
	Topics         []string
	TopicBlacklist []string
	LookbackDays   int
	MaxPerTopic    int
	MaxWorkers     int
}

func (c Config) withDefaults() Config {
	if c.LookbackDays <= 0 {
		c.LookbackDays = defaultLookbackDays
	}
	if c.MaxPerTopic <= 0 {
		c.MaxPerTopic = defaultPerTopic
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaultMaxWorkers
	}
	if c.TopicBlacklist == nil {
		c.TopicBlacklist = defaultTopicBlacklist
	}
	return c
}

type Collector struct {
	httpClient  *http.Client
	cfg         Config
	log         zerolog.Logger
	protect     *ratelimit.APIProtector
	breaker     *resilience.CircuitBreaker
	retryPolicy retry.Policy
}

func New(httpClient *http.Client, cfg Config, protect *ratelimit.APIProtector) *Collector {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("collector", "github").Logger()
	return &Collector{
		httpClient:  httpClient,
		cfg:         cfg.withDefaults(),
		log:         log,
		protect:     protect,
		breaker:     resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(sourceKey)),
		retryPolicy: retry.DefaultPolicy(),
	}
}

func (c *Collector) Source() domain.Source { return domain.SourceGitHub }

type repoItem struct {
	FullName    string   `json:"full_name"`
	HTMLURL     string   `json:"html_url"`
	Description string   `json:"description"`
	StargazersN int      `json:"stargazers_count"`
	Fork        bool     `json:"fork"`
	PushedAt    string   `json:"pushed_at"`
	Topics      []string `json:"topics"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type searchResponse struct {
	Items []repoItem `json:"items"`
}

// readmeWorker fetches one repo's README and appends a RawCandidate to the
// collector run's shared result slice. Side-effecting Do, mirroring the
// pool.Worker shape used elsewhere for per-item fan-out.
type readmeWorker struct {
	collector *Collector
	mu        *sync.Mutex
	out       *[]domain.RawCandidate
}

func (w *readmeWorker) Do(ctx context.Context, item repoItem) error {
	if item.Fork || intersectsBlacklist(item.Topics, w.collector.cfg.TopicBlacklist) {
		return nil
	}

	var readme string
	err := retry.Do(ctx, w.collector.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
		body, fetchErr := w.collector.fetchReadme(ctx, item.FullName)
		if fetchErr != nil {
			return fetchErr
		}
		readme = body
		return nil
	})
	if err != nil {
		w.collector.log.Warn().Err(err).Str("repo", item.FullName).Msg("readme fetch failed, skipping repo")
		return nil
	}

	pushedAt, _ := time.Parse(time.RFC3339, item.PushedAt)
	candidate := domain.RawCandidate{
		URL:         item.HTMLURL,
		Source:      domain.SourceGitHub,
		Title:       item.FullName,
		Abstract:    item.Description,
		GitHubStars: item.StargazersN,
		GitHubURL:   item.HTMLURL,
		IsFork:      item.Fork,
		PushedAt:    pushedAt,
		ReadME:      readme,
		Topics:      item.Topics,
		PublishDate: pushedAt,
	}

	w.mu.Lock()
	*w.out = append(*w.out, candidate)
	w.mu.Unlock()
	return nil
}

func (c *Collector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	result, release := c.protect.AcquireWithWait(ctx, sourceKey, protectorWait)
	if !result.Allowed {
		return nil, apperr.RateLimited("github_collect", errors.New(result.Reason))
	}
	defer release()

	since := time.Now().AddDate(0, 0, -c.cfg.LookbackDays).Format("2006-01-02")

	var allItems []repoItem
	for _, topic := range c.cfg.Topics {
		items, err := c.searchTopic(ctx, topic, since)
		if err != nil {
			c.log.Warn().Err(err).Str("topic", topic).Msg("search failed for topic, continuing with remaining topics")
			continue
		}
		allItems = append(allItems, items...)
	}

	var mu sync.Mutex
	results := make([]domain.RawCandidate, 0, len(allItems))
	worker := &readmeWorker{collector: c, mu: &mu, out: &results}

	workerPool := pool.New[repoItem](c.cfg.MaxWorkers, worker).
		WithBatchSize(defaultTopicBatch).
		WithWorkerChanSize(defaultWorkerChanLen).
		WithContinueOnError()

	if err := workerPool.Go(ctx); err != nil {
		return nil, apperr.Transient("github_pool_start", err)
	}
	for _, item := range allItems {
		workerPool.Submit(item)
	}
	if err := workerPool.Close(ctx); err != nil {
		c.log.Warn().Err(err).Msg("pool close reported an error")
	}

	return results[:c.protect.Guard().LimitSliceLen(len(results))], nil
}

func (c *Collector) searchTopic(ctx context.Context, topic, since string) ([]repoItem, error) {
	query := fmt.Sprintf("%s pushed:>=%s", topic, since)

	var items []repoItem
	breakerErr := c.breaker.Execute(func() error {
		return retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
			if err != nil {
				return err
			}
			q := req.URL.Query()
			q.Set("q", query)
			q.Set("sort", "stars")
			q.Set("order", "desc")
			q.Set("per_page", fmt.Sprintf("%d", c.cfg.MaxPerTopic))
			req.URL.RawQuery = q.Encode()
			req.Header.Set("Accept", "application/vnd.github+json")
			if c.cfg.Token != "" {
				req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return apperr.Transient("github_search", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusForbidden {
				return apperr.RateLimited("github_search", fmt.Errorf("status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return apperr.Transient("github_search", fmt.Errorf("status %d", resp.StatusCode))
			}

			var decoded searchResponse
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				return apperr.Transient("github_search", err)
			}
			items = decoded.Items
			return nil
		})
	})
	if breakerErr != nil {
		return nil, breakerErr
	}
	return items, nil
}

func (c *Collector) fetchReadme(ctx context.Context, fullName string) (string, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/readme", fullName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.raw")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Transient("github_readme", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.Transient("github_readme", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Transient("github_readme", err)
	}
	return string(body), nil
}

func intersectsBlacklist(topics, blacklist []string) bool {
	blocked := make(map[string]bool, len(blacklist))
	for _, b := range blacklist {
		blocked[strings.ToLower(b)] = true
	}
	for _, t := range topics {
		if blocked[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

var _ out.Collector = (*Collector)(nil)
