// Package bootstrap wires every adapter and service into one Dependencies
// struct, the same sequential init-with-cleanup-closures shape as the
// teacher's own dependency wiring.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"benchscope/adapter/out/cache"
	"benchscope/adapter/out/collector/arxiv"
	"benchscope/adapter/out/collector/dbengines"
	"benchscope/adapter/out/collector/github"
	"benchscope/adapter/out/collector/helm"
	"benchscope/adapter/out/collector/huggingface"
	"benchscope/adapter/out/collector/semanticscholar"
	"benchscope/adapter/out/collector/techempower"
	"benchscope/adapter/out/llm"
	"benchscope/adapter/out/pdf"
	"benchscope/adapter/out/persistence"
	"benchscope/adapter/out/spreadsheet"
	"benchscope/adapter/out/webhook"
	"benchscope/config"
	"benchscope/core/domain"
	"benchscope/core/port/out"
	"benchscope/core/service/enhancer"
	"benchscope/core/service/notifier"
	"benchscope/core/service/pipeline"
	"benchscope/core/service/prefilter"
	"benchscope/core/service/scoring"
	"benchscope/core/service/storage"
	"benchscope/infra/database"
	pkgcache "benchscope/pkg/cache"
	"benchscope/pkg/httputil"
	"benchscope/pkg/ratelimit"
	"benchscope/pkg/urlcanon"
)

// Dependencies holds every wired collaborator for one pipeline run.
type Dependencies struct {
	Config *config.Config

	Redis    *redis.Client
	SQLDB    *sqlx.DB
	HTTPPool *httputil.Pool

	Collectors []out.Collector

	Enhancer       *enhancer.Enhancer
	Scorer         *scoring.Scorer
	StorageManager *storage.Manager
	Notifier       *notifier.Notifier

	Orchestrator *pipeline.Orchestrator
}

// NewDependencies wires every adapter for cfg and returns a cleanup
// function that releases pooled connections.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: redis: %w", err)
	}
	deps.Redis = redisClient
	cleanups = append(cleanups, func() { redisClient.Close() })

	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("bootstrap: postgres: %w", err)
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	if err := persistence.RunMigrations(sqlDB); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("bootstrap: migrations: %w", err)
	}

	deps.HTTPPool = httputil.NewPool()

	redisCache := pkgcache.NewRedisCache(redisClient)
	resultCache := cache.NewResultCache(redisCache)
	imageKeyCache := cache.NewImageKeyCache(redisCache)
	pdfCache := cache.NewPDFCache(cfg.PDFCacheDir)

	// Shared across every collector so the Redis-backed sliding window and
	// debouncer coordinate call rate across runs, not just within one.
	protector := ratelimit.NewAPIProtector(redisClient, ratelimit.DefaultConfig())

	deps.Collectors = buildCollectors(cfg, deps.HTTPPool, protector)

	deps.Enhancer = enhancer.New(
		pdfCache,
		pdf.NewFetcher(deps.HTTPPool.Client("pdf_fetch")),
		pdf.NewParserClient(deps.HTTPPool.Client("pdf_parser"), cfg.PDFParserURL),
		pdf.NewRenderer(),
		webhook.NewImageUploader(deps.HTTPPool.Client("webhook"), cfg.WebhookURL),
		imageKeyCache,
		enhancer.Config{Concurrency: cfg.EnhancerConcurrency},
	)

	llmClient := llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxRetries:  cfg.LLMMaxRetries,
	})
	deps.Scorer = scoring.NewScorer(llmClient, resultCache, llm.BuildPrompt, scoring.Config{
		Concurrency: cfg.ScoreConcurrency,
		Weights:     cfg.ScoreWeights,
	})

	spreadsheetClient := spreadsheet.NewClient(deps.HTTPPool.Client("spreadsheet"), spreadsheet.Config{
		AppID:     cfg.SpreadsheetAppID,
		AppSecret: cfg.SpreadsheetAppSecret,
		TableID:   cfg.SpreadsheetTableID,
		BaseURL:   cfg.SpreadsheetBaseURL,
	})
	fallbackStore := persistence.NewFallbackStore(sqlDB, urlcanon.Canonicalize)
	deps.StorageManager = storage.NewManager(spreadsheetClient, fallbackStore, spreadsheet.LookbackFor)

	historyStore := persistence.NewNotificationHistoryStore(sqlDB)
	webhookClient := webhook.NewClient(deps.HTTPPool.Client("webhook"), cfg.WebhookURL, cfg.WebhookMaxRetries)
	deps.Notifier = notifier.New(historyStore, webhookClient, notifier.Config{
		MaxNotifyCount: cfg.NotifierMaxNotifyCount,
		TopK:           cfg.NotifierTopK,
	})

	deps.Orchestrator = pipeline.New(pipeline.Deps{
		Collectors:     deps.Collectors,
		EnabledSources: enabledSources(cfg),
		Enhancer:       deps.Enhancer,
		Scorer:         deps.Scorer,
		StorageManager: deps.StorageManager,
		Notifier:       deps.Notifier,
		ExistingLookup: spreadsheetClient.ExistingCanonicalURLs,
		LookbackFor:    spreadsheet.LookbackFor,
		RunLogDir:      cfg.RunLogDir,
	})

	return deps, cleanup, nil
}

// buildCollectors constructs one collector per source, gated by its
// configured Enabled flag, each over its own pooled named HTTP client.
func buildCollectors(cfg *config.Config, pool *httputil.Pool, protect *ratelimit.APIProtector) []out.Collector {
	var collectors []out.Collector

	if cfg.Arxiv.Enabled {
		collectors = append(collectors, arxiv.New(pool.Client("arxiv"), arxiv.Config{
			Keywords:      cfg.Arxiv.Keywords,
			LookbackHours: cfg.Arxiv.LookbackHours,
			MaxResults:    cfg.Arxiv.MaxResults,
			Timeout:       time.Duration(cfg.Arxiv.TimeoutSec) * time.Second,
		}, protect))
	}
	if cfg.GitHub.Enabled {
		collectors = append(collectors, github.New(pool.Client("github"), github.Config{
			Token:          cfg.GitHubToken,
			Topics:         cfg.GitHub.Keywords,
			TopicBlacklist: cfg.GitHubTopicBlacklist,
			LookbackDays:   cfg.GitHub.LookbackHours / 24,
			MaxPerTopic:    cfg.GitHub.MaxResults,
		}, protect))
	}
	if cfg.HuggingFace.Enabled {
		collectors = append(collectors, huggingface.New(pool.Client("huggingface"), huggingface.Config{
			TaskCategories: cfg.HuggingFace.Keywords,
			MinDownloads:   cfg.HuggingFaceMinDownloads,
			LookbackDays:   cfg.HuggingFace.LookbackHours / 24,
			Limit:          cfg.HuggingFace.MaxResults,
		}, protect))
	}
	if cfg.HELM.Enabled {
		collectors = append(collectors, helm.New(pool.Client("helm"), helm.Config{
			AllowedScenarios: cfg.HELMAllowedScenarios,
			BlockedScenarios: cfg.HELMBlockedScenarios,
		}, protect))
	}
	if cfg.TechEmpower.Enabled {
		collectors = append(collectors, techempower.New(pool.Client("techempower"), techempower.Config{}, protect))
	}
	if cfg.DBEngines.Enabled {
		collectors = append(collectors, dbengines.New(pool.Client("dbengines"), dbengines.Config{}, protect))
	}
	if cfg.SemanticScholar.Enabled {
		query := "benchmark evaluation"
		if len(cfg.SemanticScholar.Keywords) > 0 {
			query = cfg.SemanticScholar.Keywords[0]
		}
		collectors = append(collectors, semanticscholar.New(pool.Client("semantic_scholar"), semanticscholar.Config{
			Query: query,
			Limit: cfg.SemanticScholar.MaxResults,
		}, protect))
	}

	return collectors
}

// enabledSources derives the pipeline-wide enabled set from the same flags
// buildCollectors used to decide which collectors to construct.
func enabledSources(cfg *config.Config) prefilter.EnabledSources {
	return prefilter.EnabledSources{
		domain.SourceArxiv:           cfg.Arxiv.Enabled,
		domain.SourceGitHub:          cfg.GitHub.Enabled,
		domain.SourceHuggingFace:     cfg.HuggingFace.Enabled,
		domain.SourceHELM:            cfg.HELM.Enabled,
		domain.SourceTechEmpower:     cfg.TechEmpower.Enabled,
		domain.SourceDBEngines:       cfg.DBEngines.Enabled,
		domain.SourceSemanticScholar: cfg.SemanticScholar.Enabled,
	}
}
