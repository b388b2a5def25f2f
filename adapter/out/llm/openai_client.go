// Package llm adapts the structured-output scoring contract onto
// sashabaranov/go-openai's JSON response-format mode.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	openai "github.com/sashabaranov/go-openai"

	"benchscope/core/port/out"
	"benchscope/pkg/apperr"
	"benchscope/pkg/retry"
)

const DefaultModel = "gpt-4o-mini"

type ClientConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxRetries  int
}

// Client scores one candidate at a time via structured-output chat
// completion, guarded by a circuit breaker so a degraded endpoint fails
// fast instead of exhausting every caller's own retries in parallel, and by
// the shared retry combinator so transient failures inside one breaker-gated
// call still get bounded retries.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	breaker     *gobreaker.CircuitBreaker
	retryPolicy retry.Policy
}

func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm_scorer",
		MaxRequests: 5,
		Timeout:     30_000_000_000, // 30s, matches httputil.OpenAIClientConfig
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	policy := retry.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}

	return &Client{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		temperature: float32(cfg.Temperature),
		breaker:     breaker,
		retryPolicy: policy,
	}
}

// Score implements out.LLMClient. It does not itself apply the repair loop
// or the result cache — those belong to the scoring service, which owns the
// fingerprint/cache/retry policy and calls Score once per attempt.
func (c *Client) Score(ctx context.Context, req out.ScoreRequest) (out.ScoreResult, error) {
	prompt := BuildPrompt(req.Candidate)

	raw, err := c.completeJSON(ctx, prompt, nil)
	if err != nil {
		return out.ScoreResult{}, err
	}

	result, parseErr := parseScoreResult(raw)
	if parseErr != nil {
		return out.ScoreResult{}, parseErr
	}
	return result, nil
}

// Repair re-invokes the model with the prior assistant turn plus a repair
// request, feeding the reasoning-length repair loop.
func (c *Client) Repair(ctx context.Context, priorPrompt, priorResponse string, underLengthFields []string) (out.ScoreResult, string, error) {
	repairPrompt := fmt.Sprintf(
		"Your previous response had reasoning fields that were too short: %s. "+
			"Re-send the COMPLETE JSON object with those fields lengthened to meet the minimum character requirements. "+
			"Do not shorten any other field.",
		strings.Join(underLengthFields, ", "),
	)

	history := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: priorPrompt},
		{Role: openai.ChatMessageRoleAssistant, Content: priorResponse},
		{Role: openai.ChatMessageRoleUser, Content: repairPrompt},
	}

	raw, err := c.completeJSON(ctx, "", history)
	if err != nil {
		return out.ScoreResult{}, "", err
	}

	result, parseErr := parseScoreResult(raw)
	if parseErr != nil {
		return out.ScoreResult{}, raw, parseErr
	}
	return result, raw, nil
}

func (c *Client) completeJSON(ctx context.Context, prompt string, history []openai.ChatCompletionMessage) (string, error) {
	messages := history
	if messages == nil {
		messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var content string
		retryErr := retry.Do(ctx, c.retryPolicy, apperr.IsTransientRetryable, func(ctx context.Context) error {
			resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Temperature: c.temperature,
				Messages:    messages,
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
			})
			if err != nil {
				return apperr.Transient("llm_complete", err)
			}
			if len(resp.Choices) == 0 {
				return apperr.Validation("empty_llm_response", nil)
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
		return content, retryErr
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func parseScoreResult(raw string) (out.ScoreResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var wire wireScoreResult
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return out.ScoreResult{}, apperr.Validation("llm_response_not_json", err)
	}
	return wire.toDomain(), nil
}
