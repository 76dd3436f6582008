package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"statement-backend/internal/analyses"
	"statement-backend/internal/llm"
	"statement-backend/internal/llm/gemini"
	"statement-backend/internal/services/health"
	"statement-backend/internal/shared/config"
	"statement-backend/internal/shared/metrics"
	"statement-backend/internal/shared/server/middleware"
	"statement-backend/internal/shared/server/respond"
	"statement-backend/internal/shared/storage/db"
	localstore "statement-backend/internal/shared/storage/object/local"
	"statement-backend/internal/shared/telemetry"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	telemetry.SetDebug(cfg.Debug)

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"SUBMIT": {Rate: 2, Burst: 10},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost {
					return "SUBMIT"
				}
				return ""
			},
		}),
	)

	// Dependencies
	store := localstore.New(cfg.UploadDir)
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var repo analyses.Repo
	if sqlDB != nil {
		repo = &analyses.PGRepo{DB: sqlDB}
	} else {
		repo = analyses.NewMemoryRepo()
	}

	var llmClient llm.Client
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("failed to init gemini client, insight generation disabled: %v", err)
			llmClient = llm.PlaceholderClient{}
		} else {
			llmClient = client
		}
	} else {
		log.Printf("GEMINI_API_KEY not set, insight generation disabled")
		llmClient = llm.PlaceholderClient{}
	}

	runner := analyses.NewRunner(cfg.MaxConcurrentAnalyses)
	metrics.SetInFlightSource(func() int { return runner.InFlight() })

	svc := &analyses.Service{Repo: repo, Store: store, LLM: llmClient, Runner: runner}
	handler := analyses.NewHandler(svc, cfg.MaxUploadBytes, time.Duration(cfg.PollWindowSeconds)*time.Second)
	healthSvc := health.NewService(cfg.GeminiAPIKey != "")

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	api.GET("/metrics", metrics.Handler())
	handler.RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
