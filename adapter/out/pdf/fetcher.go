package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"benchscope/pkg/apperr"
	"benchscope/pkg/retry"
)

const arxivPDFURLTemplate = "https://arxiv.org/pdf/%s"

// Fetcher downloads an arxiv paper's PDF bytes.
type Fetcher struct {
	client      *http.Client
	retryPolicy retry.Policy
}

func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client, retryPolicy: retry.DefaultPolicy()}
}

func (f *Fetcher) Fetch(ctx context.Context, arxivID string) ([]byte, error) {
	url := fmt.Sprintf(arxivPDFURLTemplate, arxivID)

	var body []byte
	err := retry.Do(ctx, f.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("pdf fetcher: build request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return apperr.Transient("pdf_fetch", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperr.Transient("pdf_fetch", fmt.Errorf("%s returned status %d", arxivID, resp.StatusCode))
		}

		read, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperr.Transient("pdf_fetch", fmt.Errorf("read body for %s: %w", arxivID, err))
		}
		body = read
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
