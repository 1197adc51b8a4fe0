package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ajharbinger/tender-eligibility/internal/api"
	"github.com/ajharbinger/tender-eligibility/internal/auth"
	"github.com/ajharbinger/tender-eligibility/internal/database"
	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	"github.com/ajharbinger/tender-eligibility/internal/explainer"
	"github.com/ajharbinger/tender-eligibility/internal/extraction"
	"github.com/ajharbinger/tender-eligibility/internal/llm"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
	"github.com/ajharbinger/tender-eligibility/internal/services"
	"github.com/ajharbinger/tender-eligibility/pkg/config"
)

// importRequestsPerSecond caps fetches against procurement portals
const importRequestsPerSecond = 2

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()
	appLog := logger.NewStructured(cfg.LogLevel, cfg.LogFormat)

	if cfg.JWTSecret == "" {
		appLog.Fatal("JWT_SECRET is required", nil, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Failed to connect to database", err, nil)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		appLog.Fatal("Failed to run migrations", err, nil)
	}
	if names, err := database.Migrations(); err == nil {
		appLog.Info("Database migrated", map[string]interface{}{"migration_files": len(names)})
	}

	checks := map[string]api.HealthChecker{"database": db}
	deps := services.Dependencies{
		Repos:   repository.NewRepositories(db.DB),
		Config:  cfg,
		Logger:  appLog,
		Matcher: eligibility.NewMatcher(),
	}

	if cfg.HasGemini() {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			appLog.Fatal("Failed to create Gemini client", err, nil)
		}
		deps.Extractor = extraction.NewExtractor(gemini, appLog)
		deps.AIModel = gemini.Model()

		var exp explainer.Explainer = explainer.New(gemini, appLog)
		if cfg.HasRedis() {
			client, err := explainer.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				// explanations still work uncached
				appLog.Warn("Explanation cache unavailable", map[string]interface{}{"error": err.Error()})
			} else {
				defer client.Close()
				cached := explainer.NewCached(exp, client, cfg.ExplanationCacheTTL, appLog)
				checks["redis"] = cached
				exp = cached
			}
		}
		deps.Explainer = exp

		appLog.Info("LLM collaborators enabled", map[string]interface{}{"model": gemini.Model()})
	} else {
		appLog.Warn("GEMINI_API_KEY not set, uploads will fail extraction and verdicts use the fallback explanation", nil)
	}

	fetcher := extraction.NewFetcher(importRequestsPerSecond, cfg.MaxUploadSize)
	defer fetcher.Close()
	deps.Fetcher = fetcher

	svcs := services.NewServices(deps)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.NewRouter(cfg, appLog, svcs, auth.NewJWTService(cfg.JWTSecret), api.NewHealthHandler(checks))
	if err != nil {
		appLog.Fatal("Failed to set up router", err, nil)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// uploads wait for extraction
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
	}

	go func() {
		appLog.Info("Server starting", map[string]interface{}{
			"port":          cfg.Port,
			"environment":   cfg.Environment,
			"rules_version": cfg.RulesVersion,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", err, nil)
		}
	}()

	<-ctx.Done()
	appLog.Info("Shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Graceful shutdown failed", err, nil)
	}

	stats := db.GetStats()
	appLog.Info("Database pool at shutdown", map[string]interface{}{
		"open":          stats.OpenConnections,
		"in_use":        stats.InUse,
		"wait_count":    stats.WaitCount,
		"wait_duration": stats.WaitDuration.String(),
	})
}
