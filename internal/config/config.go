package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	Mode        string
	DatabaseDSN string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SwaggerHost string

	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	DocumentBucket    string
	ProfileBucket     string
	StoragePublicBase string
	StorageEmulator   string
	GCSCredentials    string

	EmbeddingAPIKey  string
	EmbeddingBaseURL string
	EmbeddingModel   string

	OTLPEndpoint string
	ServiceName  string

	SeedSuperadminEmail    string
	SeedSuperadminPassword string
	DraftMaxAge            time.Duration
}

// IsProd reports whether the service runs in production mode.
func (c *Config) IsProd() bool {
	return strings.HasPrefix(strings.ToLower(c.Mode), "prod")
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8002"),
		Mode:        getEnv("APP_MODE", "dev"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=smart_documents port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),

		JWTSecret:          getEnv("JWT_SECRET", "change-me"),
		AccessTokenExpiry:  time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_HOURS", 24*7)) * time.Hour,

		DocumentBucket:    getEnv("GCS_DOCUMENT_BUCKET", "documents_images"),
		ProfileBucket:     getEnv("GCS_PROFILE_BUCKET", "image_profile"),
		StoragePublicBase: os.Getenv("GCS_PUBLIC_BASE_URL"),
		StorageEmulator:   os.Getenv("GCS_EMULATOR_HOST"),
		GCSCredentials:    getEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:1234/v1"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-nomic-embed-text-v1.5"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "smartdocs"),

		SeedSuperadminEmail:    os.Getenv("SEED_SUPERADMIN_EMAIL"),
		SeedSuperadminPassword: os.Getenv("SEED_SUPERADMIN_PASSWORD"),
		DraftMaxAge:            getEnvDuration("DRAFT_MAX_AGE", 30*time.Minute),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
