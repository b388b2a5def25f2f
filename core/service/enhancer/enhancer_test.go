package enhancer

import (
	"context"
	"testing"

	"benchscope/core/domain"
)

type fakePDFCache struct {
	store map[string][]byte
}

func newFakePDFCache() *fakePDFCache { return &fakePDFCache{store: map[string][]byte{}} }

func (c *fakePDFCache) Get(arxivID string) ([]byte, bool) {
	b, ok := c.store[arxivID]
	return b, ok
}

func (c *fakePDFCache) Put(arxivID string, pdfBytes []byte) error {
	c.store[arxivID] = pdfBytes
	return nil
}

type fakeFetcher struct{ calls int }

func (f *fakeFetcher) Fetch(ctx context.Context, arxivID string) ([]byte, error) {
	f.calls++
	return []byte("pdf-bytes"), nil
}

type fakeParser struct{}

func (fakeParser) Parse(ctx context.Context, pdfBytes []byte) (map[string]string, error) {
	return map[string]string{
		"Evaluation and Results": "we evaluate on five tasks and report strong results across the board",
		"Dataset Construction":   "we collect a new dataset from public repositories",
		"Related Work":           "we compare to several baselines from prior work",
	}, nil
}

type fakeRenderer struct{ called bool }

func (r *fakeRenderer) RenderCoverImage(ctx context.Context, pdfBytes []byte) ([]byte, error) {
	r.called = true
	return []byte("png-bytes"), nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, imageBytes []byte, fileName string) (string, string, error) {
	return "img-key-1", "https://images.example.com/img-key-1", nil
}

type fakeImageCache struct {
	store map[string][2]string
}

func newFakeImageCache() *fakeImageCache { return &fakeImageCache{store: map[string][2]string{}} }

func (c *fakeImageCache) Get(ctx context.Context, arxivID string) (string, string, bool, error) {
	v, ok := c.store[arxivID]
	return v[0], v[1], ok, nil
}

func (c *fakeImageCache) Set(ctx context.Context, arxivID, key, url string) error {
	c.store[arxivID] = [2]string{key, url}
	return nil
}

func TestEnhanceBatch_NonArxivPassesThroughUnchanged(t *testing.T) {
	e := New(newFakePDFCache(), &fakeFetcher{}, fakeParser{}, &fakeRenderer{}, fakeUploader{}, newFakeImageCache(), DefaultConfig())
	c := domain.RawCandidate{URL: "https://github.com/foo/bar", Source: domain.SourceGitHub}

	got := e.EnhanceBatch(context.Background(), []domain.RawCandidate{c})
	if got[0].URL != c.URL || got[0].HeroImageKey != "" || got[0].RawMetadata != nil {
		t.Errorf("expected non-arxiv candidate untouched, got %+v", got[0])
	}
}

func TestEnhanceBatch_ArxivCandidateGetsSummariesAndCoverImage(t *testing.T) {
	renderer := &fakeRenderer{}
	e := New(newFakePDFCache(), &fakeFetcher{}, fakeParser{}, renderer, fakeUploader{}, newFakeImageCache(), DefaultConfig())
	c := domain.RawCandidate{URL: "https://arxiv.org/abs/2401.00001", Source: domain.SourceArxiv}

	got := e.EnhanceBatch(context.Background(), []domain.RawCandidate{c})

	if got[0].RawMetadata["evaluation_summary"] == "" {
		t.Errorf("expected evaluation_summary to be set")
	}
	if got[0].RawMetadata["dataset_summary"] == "" {
		t.Errorf("expected dataset_summary to be set")
	}
	if got[0].RawMetadata["baselines_summary"] == "" {
		t.Errorf("expected baselines_summary to be set")
	}
	if got[0].HeroImageKey != "img-key-1" {
		t.Errorf("expected hero image key to be set, got %q", got[0].HeroImageKey)
	}
	if !renderer.called {
		t.Errorf("expected renderer to be invoked on cache miss")
	}
}

func TestEnhanceBatch_NoRendererLeavesImageFieldsEmpty(t *testing.T) {
	e := New(newFakePDFCache(), &fakeFetcher{}, fakeParser{}, nil, fakeUploader{}, newFakeImageCache(), DefaultConfig())
	c := domain.RawCandidate{URL: "https://arxiv.org/abs/2401.00002", Source: domain.SourceArxiv}

	got := e.EnhanceBatch(context.Background(), []domain.RawCandidate{c})
	if got[0].HeroImageKey != "" {
		t.Errorf("expected no hero image key when renderer is nil, got %q", got[0].HeroImageKey)
	}
}

func TestEnhanceBatch_PDFCacheHitSkipsFetch(t *testing.T) {
	pdfCache := newFakePDFCache()
	pdfCache.store["2401.00003"] = []byte("cached-pdf")
	fetcher := &fakeFetcher{}
	e := New(pdfCache, fetcher, fakeParser{}, &fakeRenderer{}, fakeUploader{}, newFakeImageCache(), DefaultConfig())
	c := domain.RawCandidate{URL: "https://arxiv.org/abs/2401.00003", Source: domain.SourceArxiv}

	e.EnhanceBatch(context.Background(), []domain.RawCandidate{c})
	if fetcher.calls != 0 {
		t.Errorf("expected PDF cache hit to skip fetch, got %d calls", fetcher.calls)
	}
}
