// Package techempower scrapes the TechEmpower framework benchmarks summary
// page. Trusted source: one candidate per qualifying framework row.
package techempower

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/resilience"
	"benchscope/pkg/retry"
)

const (
	summaryURL    = "https://www.techempower.com/benchmarks/"
	sourceKey     = "techempower"
	protectorWait = 5 * time.Second
)

type Config struct {
	MinRequestsPerSecond float64 // frameworks below this throughput are skipped; 0 disables the filter
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
		cfg:         cfg,
		protect:     protect,
		breaker:     resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(sourceKey)),
		retryPolicy: retry.DefaultPolicy(),
	}
}

func (c *Collector) Source() domain.Source { return domain.SourceTechEmpower }

func (c *Collector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	result, release := c.protect.AcquireWithWait(ctx, sourceKey, protectorWait)
	if !result.Allowed {
		return nil, apperr.RateLimited("techempower_collect", errors.New(result.Reason))
	}
	defer release()

	var doc *goquery.Document
	breakerErr := c.breaker.Execute(func() error {
		return retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, summaryURL, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return apperr.Transient("techempower_fetch", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return apperr.Transient("techempower_fetch", fmt.Errorf("status %d", resp.StatusCode))
			}

			parsed, parseErr := goquery.NewDocumentFromReader(resp.Body)
			if parseErr != nil {
				return apperr.Transient("techempower_parse", parseErr)
			}
			doc = parsed
			return nil
		})
	})
	if breakerErr != nil {
		return nil, breakerErr
	}

	var candidates []domain.RawCandidate
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		name := strings.TrimSpace(cells.Eq(0).Text())
		if name == "" {
			return
		}
		rps, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(cells.Eq(1).Text()), ",", ""), 64)
		if c.cfg.MinRequestsPerSecond > 0 && rps < c.cfg.MinRequestsPerSecond {
			return
		}

		candidates = append(candidates, domain.RawCandidate{
			URL:      summaryURL + "#" + strings.ToLower(name),
			Source:   domain.SourceTechEmpower,
			Title:    "TechEmpower: " + name,
			Abstract: fmt.Sprintf("%s: %.0f requests/sec in the TechEmpower framework benchmarks round.", name, rps),
		})
	})
	return candidates[:c.protect.Guard().LimitSliceLen(len(candidates))], nil
}

var _ out.Collector = (*Collector)(nil)
