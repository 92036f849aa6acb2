package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/podbrief/podbrief-api/api/health"
	"github.com/podbrief/podbrief-api/api/middleware"
	"github.com/podbrief/podbrief-api/api/summaries"
	"github.com/podbrief/podbrief-api/api/transcripts"
	"github.com/podbrief/podbrief-api/api/types"
	"github.com/podbrief/podbrief-api/api/version"
	_ "github.com/podbrief/podbrief-api/docs/swagger"
	"github.com/podbrief/podbrief-api/internal/services/episodes"
	"github.com/podbrief/podbrief-api/internal/services/orchestrator"
	summaryService "github.com/podbrief/podbrief-api/internal/services/summaries"
	"github.com/podbrief/podbrief-api/internal/services/summarizer"
	"github.com/podbrief/podbrief-api/internal/services/transcriber"
	transcriptService "github.com/podbrief/podbrief-api/internal/services/transcripts"
	"github.com/podbrief/podbrief-api/pkg/config"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Initialize services if database is available
	if deps.DB != nil && deps.DB.DB != nil {
		if deps.TranscriptService == nil {
			deps.TranscriptService = transcriptService.NewService(transcriptService.NewRepository(deps.DB.DB))
		}
		if deps.SummaryService == nil {
			deps.SummaryService = summaryService.NewService(summaryService.NewRepository(deps.DB.DB))
		}
		if deps.Orchestrator == nil {
			deps.Orchestrator = buildOrchestrator(deps, cfg)
		}
		if deps.Gating.MaxClientChars <= 0 {
			deps.Gating = cfg.Gating
		}

		// Read endpoints share the general limit; generation endpoints get
		// a stricter one since each call can start external jobs.
		limiter := func(rps int) gin.HandlerFunc {
			if !cfg.RateLimiting.Enabled {
				return func(c *gin.Context) { c.Next() }
			}
			return PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, rps, rps*2)
		}

		episodeGroup := engine.Group("/api/v1/episodes")
		episodeGroup.Use(limiter(endpointLimit(cfg, "read", 120)))
		episodeGroup.Use(middleware.SessionTier(deps.Gating.MaxClientChars))

		generateMiddleware := limiter(endpointLimit(cfg, "generate", 10))

		transcripts.RegisterRoutes(episodeGroup, deps, generateMiddleware)
		summaries.RegisterRoutes(episodeGroup, deps, generateMiddleware)
	}

	return nil
}

// buildOrchestrator wires the generation pipeline from configuration.
func buildOrchestrator(deps *types.Dependencies, cfg *config.Config) *orchestrator.Service {
	transcriberClient := transcriber.NewClient(transcriber.Config{
		BaseURL:   cfg.Transcriber.BaseURL,
		UserAgent: cfg.Transcriber.UserAgent,
		Timeout:   cfg.Transcriber.Timeout,
	})

	return orchestrator.New(
		deps.TranscriptService,
		deps.SummaryService,
		transcriberClient,
		summarizer.New(cfg.Summarizer),
		episodes.New(cfg.Feeds),
		orchestrator.Options{
			PollInterval: cfg.Transcriber.PollInterval,
			JobTimeout:   cfg.Transcriber.JobTimeout,
		},
	)
}

// endpointLimit returns the configured requests-per-second for an endpoint
// class, falling back when unset.
func endpointLimit(cfg *config.Config, name string, fallback int) int {
	if limit, ok := cfg.RateLimiting.Endpoints[name]; ok && limit > 0 {
		return limit
	}
	return fallback
}
