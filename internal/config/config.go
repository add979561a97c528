package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Image generation provider
	ImagenAPIKey         string
	ImagenAPIBaseURL     string
	ImagenModel          string
	ImagenImageSize      string
	ImagenTimeoutSeconds int

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string
	SupabaseVariantsTable  string

	// Database
	DatabaseURL string

	// Generation
	GenerationMaxConcurrency int
	GenerationExclusive      bool
	CompositeDesignScale     float64
	// Requests untouched this long at startup are failed as interrupted.
	GenerationStaleAfterSeconds int

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := &Config{
		ImagenAPIKey:         getEnv("IMAGEN_API_KEY", ""),
		ImagenAPIBaseURL:     getEnv("IMAGEN_API_BASE_URL", "https://api.openai.com/v1/"),
		ImagenModel:          getEnv("IMAGEN_MODEL", "gpt-image-1"),
		ImagenImageSize:      getEnv("IMAGEN_IMAGE_SIZE", "1024x1024"),
		ImagenTimeoutSeconds: getEnvInt("IMAGEN_TIMEOUT_SECONDS", 180),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "design-lab"),
		SupabaseVariantsTable:  getEnv("SUPABASE_VARIANTS_TABLE", "product_variants"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		GenerationMaxConcurrency:    getEnvInt("GENERATION_MAX_CONCURRENCY", 0),
		GenerationExclusive:         getEnvBool("GENERATION_EXCLUSIVE", false),
		GenerationStaleAfterSeconds: getEnvInt("GENERATION_STALE_AFTER_SECONDS", 600),
		CompositeDesignScale:        getEnvFloat("COMPOSITE_DESIGN_SCALE", 0.45),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ImagenAPIKey == "" {
		return fmt.Errorf("IMAGEN_API_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.GenerationMaxConcurrency < 0 {
		return fmt.Errorf("GENERATION_MAX_CONCURRENCY must not be negative")
	}
	if c.GenerationStaleAfterSeconds <= c.ImagenTimeoutSeconds {
		return fmt.Errorf("GENERATION_STALE_AFTER_SECONDS must exceed IMAGEN_TIMEOUT_SECONDS")
	}
	if c.CompositeDesignScale <= 0 || c.CompositeDesignScale > 1 {
		return fmt.Errorf("COMPOSITE_DESIGN_SCALE must be in (0, 1]")
	}
	return nil
}

// StorageEnabled reports whether generated images can be pushed to Supabase Storage.
func (c *Config) StorageEnabled() bool {
	return c.SupabaseURL != "" && c.SupabasePublishableKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
