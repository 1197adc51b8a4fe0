package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajharbinger/tender-eligibility/internal/auth"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
	"github.com/ajharbinger/tender-eligibility/internal/middleware"
	"github.com/ajharbinger/tender-eligibility/internal/services"
	"github.com/ajharbinger/tender-eligibility/pkg/config"
)

// NewRouter builds the gin engine with the middleware chain and all routes
func NewRouter(cfg *config.Config, log logger.Logger, svcs *services.Services, jwtService *auth.JWTService, health *HealthHandler) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.GetTrustedProxies()); err != nil {
		return nil, err
	}

	r.Use(gin.Recovery())
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg))
	r.Use(middleware.InputValidationMiddleware(cfg.MaxRequestSize, cfg.MaxUploadSize))
	if cfg.EnableRateLimit {
		r.Use(middleware.RateLimitingMiddleware(cfg.RateLimitPerMin))
	}

	SetupRoutes(r, cfg, svcs, jwtService, health)
	return r, nil
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, cfg *config.Config, svcs *services.Services, jwtService *auth.JWTService, health *HealthHandler) {
	authHandler := NewAuthHandler(svcs.Auth)
	profileHandler := NewProfileHandler(svcs.Profile)
	tenderHandler := NewTenderHandler(svcs.Tender, cfg.MaxUploadSize)
	verdictHandler := NewVerdictHandler(svcs.Verdict)
	eligibilityHandler := NewEligibilityHandler(svcs.Eligibility, cfg.RulesVersion)

	if health != nil {
		r.GET("/health", health.Live)
		r.GET("/health/ready", health.Ready)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	public := r.Group("/api/v1")
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/refresh", authHandler.Refresh)
		public.POST("/auth/logout", authHandler.Logout)

		// The engine is pure, the dry run needs no account
		public.POST("/eligibility/evaluate", eligibilityHandler.Evaluate)
		public.GET("/eligibility/rules", eligibilityHandler.Rules)
	}

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(auth.JWTMiddleware(jwtService))
	protected.Use(auth.CSRFMiddleware())
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/profile", profileHandler.GetMine)
		protected.PUT("/profile", profileHandler.Save)
		protected.GET("/profiles/:id", profileHandler.Get)

		protected.POST("/tenders/upload", tenderHandler.Upload)
		protected.POST("/tenders/import", tenderHandler.Import)
		protected.GET("/tenders", tenderHandler.List)
		protected.GET("/tenders/:id", tenderHandler.Get)

		protected.POST("/verdicts/match", verdictHandler.Match)
		protected.GET("/verdicts", verdictHandler.List)
		protected.GET("/verdicts/export", verdictHandler.Export)
		protected.GET("/verdicts/:id", verdictHandler.Get)

		protected.GET("/dashboard/stats", tenderHandler.Stats)
	}
}
