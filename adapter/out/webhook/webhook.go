// Package webhook adapts the notifier's card/summary pushes onto an
// outbound HTTP webhook.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/retry"
)

type Client struct {
	httpClient  *http.Client
	url         string
	retryPolicy retry.Policy
}

func NewClient(httpClient *http.Client, url string, maxRetries int) *Client {
	policy := retry.DefaultPolicy()
	if maxRetries > 0 {
		policy.MaxAttempts = maxRetries
	}
	return &Client{httpClient: httpClient, url: url, retryPolicy: policy}
}

type cardPayload struct {
	Type            string             `json:"type"`
	Title           string             `json:"title"`
	TotalScore      float64            `json:"total_score"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	Reasoning       string             `json:"reasoning"`
	CandidateURL    string             `json:"candidate_url"`
	StorageURL      string             `json:"storage_url"`
	HeroImageURL    string             `json:"hero_image_url,omitempty"`
}

func (c *Client) PushCard(ctx context.Context, card out.Card) error {
	payload := cardPayload{
		Type:            "candidate_card",
		Title:           card.Title,
		TotalScore:      card.TotalScore,
		DimensionScores: card.DimensionScores,
		Reasoning:       card.Reasoning,
		CandidateURL:    card.CandidateURL,
		StorageURL:      card.StorageURL,
		HeroImageURL:    card.HeroImageURL,
	}
	return c.post(ctx, payload)
}

type summaryPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) PushSummary(ctx context.Context, summary out.Summary) error {
	return c.post(ctx, summaryPayload{Type: "summary", Text: summary.Text})
}

func (c *Client) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	return retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.Transient("webhook_push", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return apperr.RateLimited("webhook_push", fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 300 {
			return apperr.Transient("webhook_push", fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil
	})
}
