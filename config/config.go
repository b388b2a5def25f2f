// Package config loads configuration from the environment, flat-struct
// style, with one getEnv* helper per primitive type.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"benchscope/core/domain"
	"benchscope/pkg/apperr"
)

func generateRunID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "benchscope"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString())
}

// CollectorConfig is the shared per-source shape named in the
// configuration file: enabled toggle, result cap, timeouts, a lookback
// window, and a free-form keywords/topics list.
type CollectorConfig struct {
	Enabled       bool
	MaxResults    int
	TimeoutSec    int
	LookbackHours int
	Keywords      []string
}

type Config struct {
	Environment string
	RunID       string

	// Storage
	DatabaseURL   string
	RedisURL      string
	FallbackDBDSN string

	// Collectors
	Arxiv           CollectorConfig
	GitHub          CollectorConfig
	GitHubToken     string
	GitHubTopicBlacklist []string
	HuggingFace     CollectorConfig
	HuggingFaceMinDownloads int
	HELM            CollectorConfig
	HELMAllowedScenarios []string
	HELMBlockedScenarios []string
	TechEmpower     CollectorConfig
	DBEngines       CollectorConfig
	SemanticScholar CollectorConfig

	// LLM scoring
	OpenAIAPIKey    string
	LLMModel        string
	LLMMaxTokens    int
	LLMTemperature  float64
	LLMTimeoutSec   int
	LLMMaxRetries   int
	ScoreConcurrency int
	ScoreWeights    domain.ScoreWeights

	// PDF enhancer
	PDFCacheDir        string
	PDFParserURL       string
	EnhancerConcurrency int

	// Spreadsheet (primary store)
	SpreadsheetAppID     string
	SpreadsheetAppSecret string
	SpreadsheetTableID   string
	SpreadsheetBaseURL   string

	// Webhook (notifier)
	WebhookURL           string
	WebhookTimeoutSec    int
	WebhookMaxRetries    int
	NotifierTopK         int
	NotifierMaxNotifyCount int

	// Scheduling
	RunIntervalMin int
	RunLogDir      string

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		RunID:       getEnv("RUN_ID", generateRunID()),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		FallbackDBDSN: getEnv("FALLBACK_DB_DSN", ""),

		Arxiv: CollectorConfig{
			Enabled:       getEnvBool("ARXIV_ENABLED", true),
			MaxResults:    getEnvInt("ARXIV_MAX_RESULTS", 100),
			TimeoutSec:    getEnvInt("ARXIV_TIMEOUT_SEC", 20),
			LookbackHours: getEnvInt("ARXIV_LOOKBACK_HOURS", 168),
			Keywords:      getEnvSlice("ARXIV_KEYWORDS", []string{"benchmark", "evaluation", "agent"}),
		},
		GitHub: CollectorConfig{
			Enabled:       getEnvBool("GITHUB_ENABLED", true),
			MaxResults:    getEnvInt("GITHUB_MAX_RESULTS_PER_TOPIC", 30),
			TimeoutSec:    getEnvInt("GITHUB_TIMEOUT_SEC", 5),
			LookbackHours: getEnvInt("GITHUB_LOOKBACK_DAYS", 30) * 24,
			Keywords:      getEnvSlice("GITHUB_TOPICS", []string{"llm-benchmark", "agent-benchmark", "coding-benchmark"}),
		},
		GitHubToken:          getEnv("GITHUB_TOKEN", ""),
		GitHubTopicBlacklist: getEnvSlice("GITHUB_TOPIC_BLACKLIST", []string{"awesome-list", "tutorial", "boilerplate"}),

		HuggingFace: CollectorConfig{
			Enabled:       getEnvBool("HUGGINGFACE_ENABLED", true),
			MaxResults:    getEnvInt("HUGGINGFACE_LIMIT", 100),
			TimeoutSec:    getEnvInt("HUGGINGFACE_TIMEOUT_SEC", 15),
			LookbackHours: getEnvInt("HUGGINGFACE_LOOKBACK_DAYS", 14) * 24,
			Keywords:      getEnvSlice("HUGGINGFACE_TASK_CATEGORIES", []string{"text-generation"}),
		},
		HuggingFaceMinDownloads: getEnvInt("HUGGINGFACE_MIN_DOWNLOADS", 100),

		HELM: CollectorConfig{
			Enabled:    getEnvBool("HELM_ENABLED", true),
			TimeoutSec: getEnvInt("HELM_TIMEOUT_SEC", 20),
		},
		HELMAllowedScenarios: getEnvSlice("HELM_ALLOWED_SCENARIOS", nil),
		HELMBlockedScenarios: getEnvSlice("HELM_BLOCKED_SCENARIOS", nil),

		TechEmpower: CollectorConfig{
			Enabled:    getEnvBool("TECHEMPOWER_ENABLED", true),
			TimeoutSec: getEnvInt("TECHEMPOWER_TIMEOUT_SEC", 15),
		},
		DBEngines: CollectorConfig{
			Enabled:    getEnvBool("DBENGINES_ENABLED", true),
			TimeoutSec: getEnvInt("DBENGINES_TIMEOUT_SEC", 15),
		},
		SemanticScholar: CollectorConfig{
			Enabled:    getEnvBool("SEMANTIC_SCHOLAR_ENABLED", false),
			MaxResults: getEnvInt("SEMANTIC_SCHOLAR_LIMIT", 50),
			TimeoutSec: getEnvInt("SEMANTIC_SCHOLAR_TIMEOUT_SEC", 15),
			Keywords:   getEnvSlice("SEMANTIC_SCHOLAR_QUERY", []string{"benchmark evaluation"}),
		},

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		LLMModel:         getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:     getEnvInt("LLM_MAX_TOKENS", 4096),
		LLMTemperature:   getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeoutSec:    getEnvInt("LLM_TIMEOUT_SEC", 30),
		LLMMaxRetries:    getEnvInt("LLM_MAX_RETRIES", 2),
		ScoreConcurrency: getEnvInt("SCORE_CONCURRENCY", 50),
		ScoreWeights: domain.ScoreWeights{
			Activity:        getEnvFloat("SCORE_WEIGHT_ACTIVITY", 0.15),
			Reproducibility: getEnvFloat("SCORE_WEIGHT_REPRODUCIBILITY", 0.30),
			License:         getEnvFloat("SCORE_WEIGHT_LICENSE", 0.15),
			Novelty:         getEnvFloat("SCORE_WEIGHT_NOVELTY", 0.15),
			Relevance:       getEnvFloat("SCORE_WEIGHT_RELEVANCE", 0.25),
		},

		PDFCacheDir:         getEnv("PDF_CACHE_DIR", "./data/pdf_cache"),
		PDFParserURL:        getEnv("PDF_PARSER_URL", ""),
		EnhancerConcurrency: getEnvInt("ENHANCER_CONCURRENCY", 3),

		SpreadsheetAppID:     getEnv("SPREADSHEET_APP_ID", ""),
		SpreadsheetAppSecret: getEnv("SPREADSHEET_APP_SECRET", ""),
		SpreadsheetTableID:   getEnv("SPREADSHEET_TABLE_ID", ""),
		SpreadsheetBaseURL:   getEnv("SPREADSHEET_BASE_URL", ""),

		WebhookURL:             getEnv("WEBHOOK_URL", ""),
		WebhookTimeoutSec:      getEnvInt("WEBHOOK_TIMEOUT_SEC", 10),
		WebhookMaxRetries:      getEnvInt("WEBHOOK_MAX_RETRIES", 3),
		NotifierTopK:           getEnvInt("NOTIFIER_TOP_K", 3),
		NotifierMaxNotifyCount: getEnvInt("NOTIFIER_MAX_NOTIFY_COUNT", 3),

		RunIntervalMin: getEnvInt("RUN_INTERVAL_MIN", 60),
		RunLogDir:      getEnv("RUN_LOG_DIR", "./data/run_logs"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects a configuration unlikely to run correctly rather than
// failing deep inside a collector or the scorer.
func (c *Config) validate() error {
	const weightTolerance = 1e-6
	if sum := c.ScoreWeights.Sum(); sum < 1-weightTolerance || sum > 1+weightTolerance {
		return apperr.Config(fmt.Sprintf("score weights must sum to 1.0, got %f", sum))
	}
	if c.DatabaseURL == "" {
		return apperr.Config("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return apperr.Config("REDIS_URL is required")
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Environment == "development" }
func (c *Config) IsProduction() bool  { return c.Environment == "production" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
