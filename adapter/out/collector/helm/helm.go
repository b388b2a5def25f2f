// Package helm scrapes the HELM leaderboard index and its per-scenario
// pages. HELM is a trusted source: no keyword prefiltering applies
// downstream.
package helm

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
	"benchscope/pkg/logger"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/resilience"
	"benchscope/pkg/retry"
)

const (
	indexURL      = "https://crfm.stanford.edu/helm/latest/"
	sourceKey     = "helm"
	protectorWait = 5 * time.Second
)

// Config configures the HELM collector's scenario allowlist.
type Config struct {
	AllowedScenarios []string // empty means "all scraped scenarios allowed"
	BlockedScenarios []string
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

func (c *Collector) Source() domain.Source { return domain.SourceHELM }

type scenarioLink struct {
	name string
	href string
}

func (c *Collector) Collect(ctx context.Context) ([]domain.RawCandidate, error) {
	result, release := c.protect.AcquireWithWait(ctx, sourceKey, protectorWait)
	if !result.Allowed {
		return nil, apperr.RateLimited("helm_collect", errors.New(result.Reason))
	}
	defer release()

	doc, err := c.fetchDocument(ctx, indexURL)
	if err != nil {
		return nil, apperr.Transient("helm_index", err)
	}

	var scenarios []scenarioLink
	doc.Find("a[href*='scenario']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		scenarios = append(scenarios, scenarioLink{name: strings.TrimSpace(s.Text()), href: resolveURL(indexURL, href)})
	})

	candidates := make([]domain.RawCandidate, 0, len(scenarios))
	for _, sc := range scenarios {
		if !c.allowed(sc.name) {
			continue
		}

		scenarioDoc, err := c.fetchDocument(ctx, sc.href)
		if err != nil {
			logger.WithError(err).WithField("scenario", sc.name).Warn("helm collector: scenario page fetch failed, skipping")
			continue
		}

		description := strings.TrimSpace(scenarioDoc.Find("p").First().Text())
		candidates = append(candidates, domain.RawCandidate{
			URL:      sc.href,
			Source:   domain.SourceHELM,
			Title:    "HELM: " + sc.name,
			Abstract: description,
		})
	}
	return candidates[:c.protect.Guard().LimitSliceLen(len(candidates))], nil
}

func (c *Collector) allowed(scenario string) bool {
	lower := strings.ToLower(scenario)
	for _, b := range c.cfg.BlockedScenarios {
		if strings.Contains(lower, strings.ToLower(b)) {
			return false
		}
	}
	if len(c.cfg.AllowedScenarios) == 0 {
		return true
	}
	for _, a := range c.cfg.AllowedScenarios {
		if strings.Contains(lower, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

func (c *Collector) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document
	breakerErr := c.breaker.Execute(func() error {
		return retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return apperr.Transient("helm_fetch", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return apperr.Transient("helm_fetch", fmt.Errorf("status %d fetching %s", resp.StatusCode, url))
			}

			parsed, parseErr := goquery.NewDocumentFromReader(resp.Body)
			if parseErr != nil {
				return apperr.Transient("helm_parse", parseErr)
			}
			doc = parsed
			return nil
		})
	})
	if breakerErr != nil {
		return nil, breakerErr
	}
	return doc, nil
}

func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	trimmedBase := strings.TrimSuffix(base, "/")
	trimmedHref := strings.TrimPrefix(href, "/")
	return trimmedBase + "/" + trimmedHref
}

var _ out.Collector = (*Collector)(nil)
