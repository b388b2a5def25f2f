// Package enhancer implements the PDF-enhancement stage: for
// every arxiv candidate, fetch its PDF, submit it to the structured-parsing
// service, extract summary strings, and render a cover image.
package enhancer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/logger"
	"benchscope/pkg/ratelimit"
)

const maxSummaryLength = 1000

var arxivIDPattern = regexp.MustCompile(`(\d{4}\.\d{4,5})(v\d+)?`)

// headingKeywords maps each summary field to the heading keywords that
// identify its source section.
var headingKeywords = map[string][]string{
	"evaluation_summary": {"evaluation", "experiments", "results", "performance"},
	"dataset_summary":    {"dataset", "benchmark construction", "data collection"},
	"baselines_summary":  {"baselines", "comparison", "related work"},
}

type Config struct {
	Concurrency int // default 3
}

func DefaultConfig() Config {
	return Config{Concurrency: 3}
}

// Enhancer wires the PDF cache, fetcher, structured parser, renderer, image
// uploader, and image-key cache behind a single per-candidate pipeline.
type Enhancer struct {
	pdfCache    out.PDFCache
	fetcher     out.PDFFetcher
	parser      out.StructuredParser
	renderer    out.PDFRenderer
	uploader    out.ImageUploader
	imageCache  out.ImageKeyCache
	sem         *ratelimit.Semaphore
}

func New(pdfCache out.PDFCache, fetcher out.PDFFetcher, parser out.StructuredParser, renderer out.PDFRenderer, uploader out.ImageUploader, imageCache out.ImageKeyCache, cfg Config) *Enhancer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	return &Enhancer{
		pdfCache:   pdfCache,
		fetcher:    fetcher,
		parser:     parser,
		renderer:   renderer,
		uploader:   uploader,
		imageCache: imageCache,
		sem:        ratelimit.NewSemaphore(cfg.Concurrency),
	}
}

// EnhanceBatch enhances every arxiv candidate in place; non-arxiv candidates
// pass through untouched. Per-candidate failures are logged and leave that
// candidate with best-effort fields.
func (e *Enhancer) EnhanceBatch(ctx context.Context, candidates []domain.RawCandidate) []domain.RawCandidate {
	var wg sync.WaitGroup
	result := make([]domain.RawCandidate, len(candidates))
	copy(result, candidates)

	for i := range result {
		if result[i].Source != domain.SourceArxiv {
			continue
		}

		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.sem.Acquire(ctx); err != nil {
				return
			}
			defer e.sem.Release()

			enhanced, err := e.enhanceOne(ctx, result[i])
			if err != nil {
				logger.WithError(err).WithField("url", result[i].URL).Warn("enhancer: skipping enhancement for candidate")
				return
			}
			result[i] = enhanced
		}()
	}

	wg.Wait()
	return result
}

func (e *Enhancer) enhanceOne(ctx context.Context, c domain.RawCandidate) (domain.RawCandidate, error) {
	arxivID, ok := extractArxivID(c.URL)
	if !ok {
		return c, fmt.Errorf("enhancer: could not extract arxiv id from %q", c.URL)
	}

	pdfBytes, err := e.loadPDF(ctx, arxivID)
	if err != nil {
		return c, err
	}

	if sections, err := e.parser.Parse(ctx, pdfBytes); err == nil {
		if c.RawMetadata == nil {
			c.RawMetadata = map[string]string{}
		}
		for field, summary := range summariesFromSections(sections) {
			c.RawMetadata[field] = summary
		}
	} else {
		logger.WithError(err).WithField("arxiv_id", arxivID).Debug("enhancer: structured parsing failed")
	}

	if key, url, ok := e.coverImage(ctx, arxivID, pdfBytes); ok {
		c.HeroImageKey = key
		c.HeroImageURL = url
	}

	return c, nil
}

func (e *Enhancer) loadPDF(ctx context.Context, arxivID string) ([]byte, error) {
	if e.pdfCache != nil {
		if cached, ok := e.pdfCache.Get(arxivID); ok {
			return cached, nil
		}
	}

	pdfBytes, err := e.fetcher.Fetch(ctx, arxivID)
	if err != nil {
		return nil, err
	}

	if e.pdfCache != nil {
		if err := e.pdfCache.Put(arxivID, pdfBytes); err != nil {
			logger.WithError(err).Warn("enhancer: failed to write PDF cache")
		}
	}

	return pdfBytes, nil
}

func (e *Enhancer) coverImage(ctx context.Context, arxivID string, pdfBytes []byte) (key, url string, ok bool) {
	if e.imageCache != nil {
		if cachedKey, cachedURL, found, err := e.imageCache.Get(ctx, arxivID); err == nil && found {
			return cachedKey, cachedURL, true
		}
	}

	if e.renderer == nil {
		logger.WithField("arxiv_id", arxivID).Warn("enhancer: PDF rendering toolchain unavailable, skipping cover image")
		return "", "", false
	}

	png, err := e.renderer.RenderCoverImage(ctx, pdfBytes)
	if err != nil {
		logger.WithError(err).WithField("arxiv_id", arxivID).Warn("enhancer: cover image render failed")
		return "", "", false
	}

	uploadedKey, uploadedURL, err := e.uploader.Upload(ctx, png, arxivID+".png")
	if err != nil {
		logger.WithError(err).WithField("arxiv_id", arxivID).Warn("enhancer: cover image upload failed")
		return "", "", false
	}

	if e.imageCache != nil {
		if err := e.imageCache.Set(ctx, arxivID, uploadedKey, uploadedURL); err != nil {
			logger.WithError(err).Warn("enhancer: failed to write image-key cache")
		}
	}

	return uploadedKey, uploadedURL, true
}

func extractArxivID(rawURL string) (string, bool) {
	m := arxivIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func summariesFromSections(sections map[string]string) map[string]string {
	summaries := map[string]string{}
	for field, keywords := range headingKeywords {
		for heading, body := range sections {
			if containsAnyKeyword(strings.ToLower(heading), keywords) {
				summaries[field] = truncate(body, maxSummaryLength)
				break
			}
		}
	}
	return summaries
}

func containsAnyKeyword(haystack string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(haystack, k) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
