// Package semanticscholar implements the optional Semantic Scholar search
// collector. Disabled by default; enabled only via explicit configuration.
package semanticscholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/resilience"
	"benchscope/pkg/retry"
)

const searchURL = "https://api.semanticscholar.org/graph/v1/paper/search"

const (
	sourceKey     = "semanticscholar"
	defaultLimit  = 50
	protectorWait = 5 * time.Second
)

// Config configures the Semantic Scholar collector.
type Config struct {
	Query string
	Limit int
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = defaultLimit
	}
	if c.Query == "" {
		c.Query = "benchmark evaluation"
	}
	return c
}

type Collector struct {
	httpClient  *http.Client
	cfg         Config
	protect     *ratelimit.APIProtector
	breaker     *resilience.CircuitBreaker
	retryPolicy retry.Policy
}

func New(httpClient *http.Client, cfg Config, protect *ratelimit.APIProtector) *Collector {
	return &Collector{
		httpClient:  httpClient,
		cfg:         cfg.withDefaults(),
		protect:     protect,
		breaker:     resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(sourceKey)),
		retryPolicy: retry.DefaultPolicy(),
	}
}

func (c *Collector) Source() domain.Source { return domain.SourceSemanticScholar }

type paper struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	URL       string   `json:"url"`
	Year      int      `json:"year"`
	Authors   []author `json:"authors"`
	PublishedAt string `json:"publicationDate"`
}

type author struct {
	Name string `json:"name"`
}

type searchResponse struct {
	Data []paper `json:"data"`
}

func (c *Collector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	result, release := c.protect.AcquireWithWait(ctx, sourceKey, protectorWait)
	if !result.Allowed {
		return nil, apperr.RateLimited("semantic_scholar_collect", errors.New(result.Reason))
	}
	defer release()

	var decoded searchResponse
	breakerErr := c.breaker.Execute(func() error {
		return retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
			if err != nil {
				return err
			}
			q := req.URL.Query()
			q.Set("query", c.cfg.Query)
			q.Set("limit", fmt.Sprintf("%d", c.cfg.Limit))
			q.Set("fields", "title,abstract,url,year,authors,publicationDate")
			req.URL.RawQuery = q.Encode()

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return apperr.Transient("semantic_scholar_fetch", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return apperr.Transient("semantic_scholar_fetch", fmt.Errorf("status %d", resp.StatusCode))
			}

			var parsed searchResponse
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return apperr.Transient("semantic_scholar_fetch", err)
			}
			decoded = parsed
			return nil
		})
	})
	if breakerErr != nil {
		return nil, breakerErr
	}

	candidates := make([]domain.RawCandidate, 0, len(decoded.Data))
	for _, p := range decoded.Data {
		if p.URL == "" {
			continue
		}
		authors := make([]string, 0, len(p.Authors))
		for _, a := range p.Authors {
			authors = append(authors, a.Name)
		}
		publishDate, _ := time.Parse("2006-01-02", p.PublishedAt)

		candidates = append(candidates, domain.RawCandidate{
			URL:         p.URL,
			Source:      domain.SourceSemanticScholar,
			Title:       p.Title,
			Abstract:    p.Abstract,
			Authors:     authors,
			PublishDate: publishDate,
		})
	}
	return candidates[:c.protect.Guard().LimitSliceLen(len(candidates))], nil
}

var _ out.Collector = (*Collector)(nil)
