package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	JWTSecret   string
	Port        string
	Environment string
	// Security configuration
	AllowedOrigins  string
	TrustedProxies  string
	EnableRateLimit bool
	RateLimitPerMin int
	MaxRequestSize  int64
	MaxUploadSize   int64
	// LLM configuration
	GeminiAPIKey string
	GeminiModel  string
	LLMTimeout   time.Duration
	// Explanation cache
	RedisURL            string
	ExplanationCacheTTL time.Duration
	// Logging
	LogLevel  string
	LogFormat string

	RulesVersion string
}

// New creates a new configuration instance from environment variables
func New() *Config {
	return &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("ENV", "development"),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", ""),
		TrustedProxies:      getEnv("TRUSTED_PROXIES", ""),
		EnableRateLimit:     getEnv("ENABLE_RATE_LIMIT", "true") == "true",
		RateLimitPerMin:     getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
		MaxRequestSize:      getEnvAsInt64("MAX_REQUEST_SIZE", 10*1024*1024), // 10MB default
		MaxUploadSize:       getEnvAsInt64("MAX_UPLOAD_SIZE", 50*1024*1024),  // 50MB default
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		RedisURL:            getEnv("REDIS_URL", ""),
		ExplanationCacheTTL: getEnvAsDuration("EXPLANATION_CACHE_TTL", 24*time.Hour),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		RulesVersion:        getEnv("RULES_VERSION", "1.0"),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasGemini returns true if an LLM key is configured
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasRedis returns true if the explanation cache is configured
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetAllowedOrigins returns a slice of allowed CORS origins
func (c *Config) GetAllowedOrigins() []string {
	if c.AllowedOrigins == "" {
		return []string{}
	}
	origins := strings.Split(c.AllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

// GetTrustedProxies returns a slice of trusted proxy IPs
func (c *Config) GetTrustedProxies() []string {
	if c.TrustedProxies == "" {
		return []string{} // No trusted proxies by default
	}
	return strings.Split(c.TrustedProxies, ",")
}
