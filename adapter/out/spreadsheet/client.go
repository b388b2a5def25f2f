// Package spreadsheet adapts the collaborative-spreadsheet backend's REST
// API onto the storage manager's primary-store port.
package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/retry"
	"benchscope/pkg/urlcanon"
)

const (
	batchSize          = 20
	tokenRefreshBuffer = 5 * time.Minute
	defaultTokenTTL    = 2 * time.Hour
)

// lookbackBySource mirrors the dedup-on-save windows: tighter for
// fast-moving sources, looser for everything else.
var lookbackBySource = map[domain.Source]time.Duration{
	domain.SourceArxiv:       7 * 24 * time.Hour,
	domain.SourceHuggingFace: 14 * 24 * time.Hour,
	domain.SourceGitHub:      30 * 24 * time.Hour,
}

const defaultLookback = 60 * 24 * time.Hour

func LookbackFor(source domain.Source) time.Duration {
	if d, ok := lookbackBySource[source]; ok {
		return d
	}
	return defaultLookback
}

type Config struct {
	AppID      string
	AppSecret  string
	TableID    string
	BaseURL    string
}

// Client implements out.SpreadsheetStore against the collaborative
// spreadsheet backend's tenant_access_token / field-discovery / batch-write
// REST endpoints.
type Client struct {
	httpClient *http.Client
	cfg        Config
	retryCfg   retry.Policy

	mu     sync.Mutex
	token  *oauth2.Token
	fields map[string]bool
}

func NewClient(httpClient *http.Client, cfg Config) *Client {
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		retryCfg:   retry.DefaultPolicy(),
	}
}

func (c *Client) DiscoverFields(ctx context.Context) error {
	var fields map[string]bool

	err := retry.Do(ctx, c.retryCfg, apperr.IsTransientRetryable, func(ctx context.Context) error {
		token, tokenErr := c.accessToken(ctx)
		if tokenErr != nil {
			return tokenErr
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/tables/"+c.cfg.TableID+"/fields", nil)
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return apperr.Transient("discover_fields", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperr.Transient("discover_fields", fmt.Errorf("status %d", resp.StatusCode))
		}

		var body struct {
			Fields []string `json:"fields"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil {
			return apperr.Transient("discover_fields", decodeErr)
		}

		fields = make(map[string]bool, len(body.Fields))
		for _, f := range body.Fields {
			fields[f] = true
		}
		return nil
	})
	if err != nil {
		return apperr.NewSpreadsheetError("discover_fields", -1, err)
	}

	c.mu.Lock()
	c.fields = fields
	c.mu.Unlock()
	return nil
}

func (c *Client) ExistingCanonicalURLs(ctx context.Context, source domain.Source, lookback time.Duration) (map[string]bool, error) {
	since := time.Now().Add(-lookback)

	var urls []string
	err := retry.Do(ctx, c.retryCfg, apperr.IsTransientRetryable, func(ctx context.Context) error {
		token, tokenErr := c.accessToken(ctx)
		if tokenErr != nil {
			return tokenErr
		}

		body, marshalErr := json.Marshal(map[string]any{
			"source":     string(source),
			"since_unix": since.Unix(),
		})
		if marshalErr != nil {
			return marshalErr
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/tables/"+c.cfg.TableID+"/search", bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return apperr.Transient("search", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperr.Transient("search", fmt.Errorf("status %d", resp.StatusCode))
		}

		var decoded struct {
			URLs []string `json:"urls"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
			return apperr.Transient("search", decodeErr)
		}
		urls = decoded.URLs
		return nil
	})
	if err != nil {
		return nil, apperr.NewSpreadsheetError("search", -1, err)
	}

	existing := make(map[string]bool, len(urls))
	for _, u := range urls {
		existing[urlcanon.Canonicalize(u)] = true
	}
	return existing, nil
}

func (c *Client) WriteBatch(ctx context.Context, rows []domain.ScoredCandidate) error {
	c.mu.Lock()
	fields := c.fields
	c.mu.Unlock()

	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]

		if fields != nil {
			if missing := firstUnmappedField(batch, fields); missing != "" {
				return apperr.NewSpreadsheetError("write_batch", i/batchSize, apperr.Mapping(missing))
			}
		}

		if err := c.writeOneBatch(ctx, batch, i/batchSize); err != nil {
			return apperr.NewSpreadsheetError("write_batch", i/batchSize, err)
		}

		if end < len(rows) {
			ratelimit.Sleep(ctx, 600*time.Millisecond)
		}
	}
	return nil
}

func (c *Client) writeOneBatch(ctx context.Context, batch []domain.ScoredCandidate, batchIndex int) error {
	records := make([]map[string]any, len(batch))
	for i, row := range batch {
		records[i] = rowToRecord(row)
	}

	return retry.Do(ctx, c.retryCfg, apperr.IsTransientRetryable, func(ctx context.Context) error {
		token, tokenErr := c.accessToken(ctx)
		if tokenErr != nil {
			return tokenErr
		}

		body, marshalErr := json.Marshal(map[string]any{"records": records})
		if marshalErr != nil {
			return marshalErr
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/tables/"+c.cfg.TableID+"/records/batch_create", bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return apperr.Transient("write_batch", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperr.Transient("write_batch", fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil
	})
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && time.Now().Before(c.token.Expiry.Add(-tokenRefreshBuffer)) {
		return c.token.AccessToken, nil
	}

	body, err := json.Marshal(map[string]string{"app_id": c.cfg.AppID, "app_secret": c.cfg.AppSecret})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/tenant_access_token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.AuthFailed("spreadsheet", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.AuthFailed("spreadsheet", fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded struct {
		Token     string `json:"tenant_access_token"`
		ExpiresIn int    `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", apperr.AuthFailed("spreadsheet", err)
	}

	ttl := defaultTokenTTL
	if decoded.ExpiresIn > 0 {
		ttl = time.Duration(decoded.ExpiresIn) * time.Second
	}

	c.token = &oauth2.Token{
		AccessToken: decoded.Token,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(ttl),
	}
	return c.token.AccessToken, nil
}

func firstUnmappedField(batch []domain.ScoredCandidate, fields map[string]bool) string {
	required := []string{
		"title", "source", "url", "abstract",
		"activity_score", "reproducibility_score", "license_score", "novelty_score", "relevance_score", "total_score",
		"priority", "reasoning", "status", "paper_url", "github_stars", "authors", "publish_date",
		"dataset_url", "license", "task_type", "evaluation_metrics", "image_key",
	}
	for _, f := range required {
		if !fields[f] {
			return f
		}
	}
	return ""
}

func rowToRecord(row domain.ScoredCandidate) map[string]any {
	reasoning := row.ActivityReasoning + " " + row.ReproducibilityReasoning + " " + row.LicenseReasoning + " " +
		row.NoveltyReasoning + " " + row.RelevanceReasoning

	return map[string]any{
		"title":                  row.Title,
		"source":                 string(row.Source),
		"url":                    row.URL,
		"abstract":               row.Abstract,
		"activity_score":         row.ActivityScore,
		"reproducibility_score":  row.ReproducibilityScore,
		"license_score":          row.LicenseScore,
		"novelty_score":          row.NoveltyScore,
		"relevance_score":        row.RelevanceScore,
		"total_score":            row.TotalScore,
		"priority":               string(row.Priority),
		"reasoning":              reasoning,
		"status":                 "new",
		"paper_url":              row.PaperURL,
		"github_stars":           row.GitHubStars,
		"authors":                row.Authors,
		"publish_date":           row.PublishDate.Format(time.RFC3339),
		"dataset_url":            row.DatasetURL,
		"license":                row.LicenseType,
		"task_type":              row.TaskType,
		"evaluation_metrics":     row.EvaluationMetrics,
		"image_key":              row.HeroImageKey,
	}
}

var _ out.SpreadsheetStore = (*Client)(nil)
