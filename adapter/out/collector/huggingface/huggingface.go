// Package huggingface implements the HuggingFace Hub models/datasets
// collector.
package huggingface

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

const (
	modelsURL          = "https://huggingface.co/api/models"
	datasetsURL        = "https://huggingface.co/api/datasets"
	sourceKey           = "huggingface"
	defaultLookbackDays = 14
	defaultMinDownloads = 100
	defaultLimit        = 100
	protectorWait       = 5 * time.Second
)

// Config configures the HuggingFace collector.
type Config struct {
	TaskCategories []string // e.g. "text-generation", "text-classification"
	MinDownloads   int
	LookbackDays   int
	Limit          int
}

func (c Config) withDefaults() Config {
	if c.LookbackDays <= 0 {
		c.LookbackDays = defaultLookbackDays
	}
	if c.MinDownloads <= 0 {
		c.MinDownloads = defaultMinDownloads
	}
	if c.Limit <= 0 {
		c.Limit = defaultLimit
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

func (c *Collector) Source() domain.Source { return domain.SourceHuggingFace }

type hubEntry struct {
	ID           string   `json:"id"`
	Downloads    int      `json:"downloads"`
	LastModified string   `json:"lastModified"`
	Tags         []string `json:"tags"`
	PipelineTag  string   `json:"pipeline_tag"`
}

func (c *Collector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	result, release := c.protect.AcquireWithWait(ctx, sourceKey, protectorWait)
	if !result.Allowed {
		return nil, apperr.RateLimited("huggingface_collect", errors.New(result.Reason))
	}
	defer release()

	since := time.Now().AddDate(0, 0, -c.cfg.LookbackDays)

	var candidates []domain.RawCandidate
	for _, endpoint := range []struct {
		url        string
		datasetURL bool
	}{{modelsURL, false}, {datasetsURL, true}} {
		for _, task := range c.taskFilters() {
			entries, err := c.fetch(ctx, endpoint.url, task)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.Downloads < c.cfg.MinDownloads {
					continue
				}
				publishDate, _ := time.Parse(time.RFC3339, e.LastModified)
				if publishDate.Before(since) {
					continue
				}

				hubURL := "https://huggingface.co/" + e.ID
				cand := domain.RawCandidate{
					URL:         hubURL,
					Source:      domain.SourceHuggingFace,
					Title:       e.ID,
					Abstract:    "",
					PublishDate: publishDate,
					TaskType:    e.PipelineTag,
				}
				if endpoint.datasetURL {
					cand.DatasetURL = hubURL
				}
				candidates = append(candidates, cand)
			}
		}
	}
	return candidates[:c.protect.Guard().LimitSliceLen(len(candidates))], nil
}

func (c *Collector) taskFilters() []string {
	if len(c.cfg.TaskCategories) == 0 {
		return []string{""}
	}
	return c.cfg.TaskCategories
}

func (c *Collector) fetch(ctx context.Context, url, task string) ([]hubEntry, error) {
	var entries []hubEntry
	breakerErr := c.breaker.Execute(func() error {
		return retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			q := req.URL.Query()
			q.Set("sort", "lastModified")
			q.Set("direction", "-1")
			q.Set("limit", fmt.Sprintf("%d", c.cfg.Limit))
			if task != "" {
				q.Set("pipeline_tag", task)
			}
			req.URL.RawQuery = q.Encode()

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return apperr.Transient("huggingface_fetch", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return apperr.Transient("huggingface_fetch", fmt.Errorf("status %d", resp.StatusCode))
			}

			var decoded []hubEntry
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				return apperr.Transient("huggingface_fetch", err)
			}
			entries = decoded
			return nil
		})
	})
	if breakerErr != nil {
		return nil, breakerErr
	}
	return entries, nil
}

var _ out.Collector = (*Collector)(nil)
