package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/goccy/go-json"

	"benchscope/pkg/apperr"
	"benchscope/pkg/retry"
)

// ImageUploader uploads a rendered cover image to the chat platform's image
// endpoint, returning the image_key the webhook card embeds.
type ImageUploader struct {
	httpClient  *http.Client
	endpoint    string
	retryPolicy retry.Policy
}

func NewImageUploader(httpClient *http.Client, endpoint string) *ImageUploader {
	return &ImageUploader{httpClient: httpClient, endpoint: endpoint, retryPolicy: retry.DefaultPolicy()}
}

type uploadResponse struct {
	ImageKey string `json:"image_key"`
	URL      string `json:"url"`
}

func (u *ImageUploader) Upload(ctx context.Context, imageBytes []byte, fileName string) (string, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", fileName)
	if err != nil {
		return "", "", fmt.Errorf("image uploader: create form file: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return "", "", fmt.Errorf("image uploader: write image bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", "", fmt.Errorf("image uploader: close multipart writer: %w", err)
	}

	contentType := writer.FormDataContentType()
	payload := body.Bytes()

	var parsed uploadResponse
	err = retry.Do(ctx, u.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(payload))
		if reqErr != nil {
			return fmt.Errorf("image uploader: build request: %w", reqErr)
		}
		req.Header.Set("Content-Type", contentType)

		resp, doErr := u.httpClient.Do(req)
		if doErr != nil {
			return apperr.Transient("image_upload", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperr.Transient("image_upload", fmt.Errorf("upload returned status %d", resp.StatusCode))
		}

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return apperr.Transient("image_upload", fmt.Errorf("read response: %w", readErr))
		}

		var decoded uploadResponse
		if unmarshalErr := json.Unmarshal(respBody, &decoded); unmarshalErr != nil {
			return apperr.Validation("image_upload_response", unmarshalErr)
		}
		parsed = decoded
		return nil
	})
	if err != nil {
		return "", "", err
	}

	return parsed.ImageKey, parsed.URL, nil
}
