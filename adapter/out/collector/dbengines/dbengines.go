// Package dbengines scrapes the DB-Engines ranking page. Trusted source:
// one candidate per ranked database.
package dbengines

import (
	"context"
	"errors"
	"fmt"
	"net/http"
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
	rankingURL    = "https://db-engines.com/en/ranking"
	sourceKey     = "dbengines"
	protectorWait = 5 * time.Second
)

type Config struct {
	MaxRank int // 0 means "no cap"
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

func (c *Collector) Source() domain.Source { return domain.SourceDBEngines }

func (c *Collector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	result, release := c.protect.AcquireWithWait(ctx, sourceKey, protectorWait)
	if !result.Allowed {
		return nil, apperr.RateLimited("dbengines_collect", errors.New(result.Reason))
	}
	defer release()

	var doc *goquery.Document
	breakerErr := c.breaker.Execute(func() error {
		return retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rankingURL, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return apperr.Transient("dbengines_fetch", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return apperr.Transient("dbengines_fetch", fmt.Errorf("status %d", resp.StatusCode))
			}

			parsed, parseErr := goquery.NewDocumentFromReader(resp.Body)
			if parseErr != nil {
				return apperr.Transient("dbengines_parse", parseErr)
			}
			doc = parsed
			return nil
		})
	})
	if breakerErr != nil {
		return nil, breakerErr
	}

	var candidates []domain.RawCandidate
	rank := 0
	doc.Find("table.dbi tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("a.engine_name").First().Text())
		if name == "" {
			return
		}
		rank++
		if c.cfg.MaxRank > 0 && rank > c.cfg.MaxRank {
			return
		}

		model := strings.TrimSpace(row.Find("td").Eq(2).Text())
		candidates = append(candidates, domain.RawCandidate{
			URL:      rankingURL + "/" + strings.ToLower(name),
			Source:   domain.SourceDBEngines,
			Title:    "DB-Engines ranking: " + name,
			Abstract: fmt.Sprintf("Rank #%d overall. Database model: %s.", rank, model),
		})
	})
	return candidates[:c.protect.Guard().LimitSliceLen(len(candidates))], nil
}

var _ out.Collector = (*Collector)(nil)
