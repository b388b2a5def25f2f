// Package arxiv implements the arXiv search-API collector.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/logger"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/resilience"
	"benchscope/pkg/retry"
)

const (
	baseURL              = "http://export.arxiv.org/api/query"
	sourceKey            = "arxiv"
	defaultLookbackHours = 168
	defaultMaxResults    = 100
	defaultRetryAttempts = 2
	defaultTimeout       = 20 * time.Second
	protectorWait        = 5 * time.Second
)

// Config configures the arXiv collector. Keywords and Categories are
// OR-joined into a single search_query.
type Config struct {
	Keywords      []string
	Categories    []string
	LookbackHours int
	MaxResults    int
	RetryAttempts int
	Timeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.LookbackHours <= 0 {
		c.LookbackHours = defaultLookbackHours
	}
	if c.MaxResults <= 0 {
		c.MaxResults = defaultMaxResults
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Collector queries the arXiv Atom search API. Guarded by a Redis-backed
// APIProtector (cross-run rate coordination) and a circuit breaker
// (fail-fast once the endpoint is degraded).
type Collector struct {
	httpClient *http.Client
	cfg        Config
	protect    *ratelimit.APIProtector
	breaker    *resilience.CircuitBreaker
}

func New(httpClient *http.Client, cfg Config, protect *ratelimit.APIProtector) *Collector {
	return &Collector{
		httpClient: httpClient,
		cfg:        cfg.withDefaults(),
		protect:    protect,
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(sourceKey)),
	}
}

func (c *Collector) Source() domain.Source { return domain.SourceArxiv }

// feed mirrors the Atom response shape down to the fields this collector uses.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	ID        string   `xml:"id"`
	Authors   []author `xml:"author"`
	Links     []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

func (c *Collector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	result, release := c.protect.AcquireWithWait(ctx, sourceKey, protectorWait)
	if !result.Allowed {
		return nil, apperr.RateLimited("arxiv_collect", errors.New(result.Reason))
	}
	defer release()

	query := buildSearchQuery(c.cfg.Keywords, c.cfg.Categories)
	since := time.Now().Add(-time.Duration(c.cfg.LookbackHours) * time.Hour)

	var parsed feed
	timeout := c.cfg.Timeout
	policy := retry.Policy{MaxAttempts: c.cfg.RetryAttempts}

	breakerErr := c.breaker.Execute(func() error {
		return retry.Do(ctx, policy, retry.AlwaysRetry, func(attemptCtx context.Context) error {
			reqCtx, cancel := context.WithTimeout(attemptCtx, timeout)
			defer cancel()

			body, err := c.fetch(reqCtx, query)
			if err != nil {
				logger.WithError(err).WithField("timeout", timeout).Warn("arxiv collector: request failed, retrying with longer timeout")
				timeout *= 2
				return err
			}
			if unmarshalErr := xml.Unmarshal(body, &parsed); unmarshalErr != nil {
				return apperr.Transient("arxiv_unmarshal", unmarshalErr)
			}
			return nil
		})
	})
	if breakerErr != nil {
		return nil, apperr.Transient("arxiv_collect", breakerErr)
	}

	candidates := make([]domain.RawCandidate, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		published, _ := time.Parse(time.RFC3339, e.Published)
		if published.Before(since) {
			continue
		}

		authors := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			authors = append(authors, a.Name)
		}

		candidates = append(candidates, domain.RawCandidate{
			URL:         e.ID,
			Source:      domain.SourceArxiv,
			Title:       strings.TrimSpace(collapseWhitespace(e.Title)),
			Abstract:    strings.TrimSpace(collapseWhitespace(e.Summary)),
			Authors:     authors,
			PublishDate: published,
			PaperURL:    pdfLink(e.Links),
		})
	}
	return candidates[:c.protect.Guard().LimitSliceLen(len(candidates))], nil
}

func (c *Collector) fetch(ctx context.Context, query string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("search_query", query)
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")
	q.Set("max_results", fmt.Sprintf("%d", c.cfg.MaxResults))
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Transient("arxiv_fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Transient("arxiv_fetch", fmt.Errorf("status %d", resp.StatusCode))
	}

	buf := make([]byte, 0, 1<<20)
	chunk := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	return buf, nil
}

func buildSearchQuery(keywords, categories []string) string {
	var parts []string
	for _, k := range keywords {
		parts = append(parts, fmt.Sprintf("all:%q", k))
	}
	for _, cat := range categories {
		parts = append(parts, fmt.Sprintf("cat:%s", cat))
	}
	if len(parts) == 0 {
		return "all:benchmark"
	}
	return strings.Join(parts, " OR ")
}

func pdfLink(links []link) string {
	for _, l := range links {
		if l.Type == "application/pdf" {
			return l.Href
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ out.Collector = (*Collector)(nil)
