package out

import (
	"context"
)

// ResultCache memoizes LLM scoring results by fingerprint (title + canonical
// URL), TTL 7 days.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (ScoreResult, bool, error)
	Set(ctx context.Context, fingerprint string, result ScoreResult) error
}

// ImageKeyCache memoizes the uploaded cover-image key per arxiv id, TTL 30
// days.
type ImageKeyCache interface {
	Get(ctx context.Context, arxivID string) (key string, url string, ok bool, err error)
	Set(ctx context.Context, arxivID, key, url string) error
}

// PDFCache is the local on-disk PDF cache keyed by arxiv id.
type PDFCache interface {
	Get(arxivID string) ([]byte, bool)
	Put(arxivID string, pdfBytes []byte) error
}
