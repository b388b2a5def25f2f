package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/goccy/go-json"

	"benchscope/pkg/retry"
)

// ParserClient calls the external structured-parsing service: the pipeline
// only consumes its JSON section-block output, it does no PDF text
// extraction itself.
type ParserClient struct {
	client     *http.Client
	endpoint   string
	retryPolicy retry.Policy
}

func NewParserClient(client *http.Client, endpoint string) *ParserClient {
	return &ParserClient{client: client, endpoint: endpoint, retryPolicy: retry.DefaultPolicy()}
}

// Parse implements out.StructuredParser. The response body is a flat JSON
// object mapping section heading to section text.
func (p *ParserClient) Parse(ctx context.Context, pdfBytes []byte) (map[string]string, error) {
	var sections map[string]string

	err := retry.Do(ctx, p.retryPolicy, retry.AlwaysRetry, func(ctx context.Context) error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "paper.pdf")
		if err != nil {
			return err
		}
		if _, err := part.Write(pdfBytes); err != nil {
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("structured-parsing service returned status %d", resp.StatusCode)
		}

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		return json.Unmarshal(respBody, &sections)
	})

	if err != nil {
		return nil, err
	}
	return sections, nil
}
