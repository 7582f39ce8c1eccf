package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "please_change_this"

// Store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Blob backends
const (
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	NodeEnv     string
	Port        string
	JWTSecret   string
	StoreDriver string
	Mongo       MongoConfig
	Database    DatabaseConfig
	Blob        BlobConfig
	Log         LogConfig
	CORSOrigins []string
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string
	Database string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// BlobConfig holds object store configuration
type BlobConfig struct {
	Backend            string
	Bucket             string
	Region             string
	KeyPrefix          string
	AccessKeyID        string
	SecretAccessKey    string
	Endpoint           string
	GCSBucket          string
	GCSCredentialsFile string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	nodeEnv := getEnv("NODE_ENV", getEnv("APP_ENV", "development"))
	cfg := &Config{
		NodeEnv:     nodeEnv,
		Port:        getEnv("PORT", "4000"),
		JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", os.Getenv("DATABASE_URL")),
			Database: getEnv("MONGO_DB", "medirank"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "medirank"),
		},
		Blob: BlobConfig{
			Backend:            strings.ToLower(os.Getenv("BLOB_BACKEND")),
			Bucket:             os.Getenv("S3_BUCKET"),
			Region:             getEnv("AWS_REGION", getEnv("S3_REGION", "ap-south-1")),
			KeyPrefix:          os.Getenv("S3_KEY_PREFIX"),
			AccessKeyID:        os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:           os.Getenv("S3_ENDPOINT"),
			GCSBucket:          os.Getenv("GCS_BUCKET"),
			GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", defaultLogFormat(nodeEnv)),
		},
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if cfg.Blob.Backend == "" {
		cfg.Blob.Backend = inferBackend(cfg.Blob)
	}

	switch cfg.StoreDriver {
	case DriverMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("MONGO_URI (or DATABASE_URL) is required when STORE_DRIVER=mongo")
		}
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// IsProduction reports whether NODE_ENV is production.
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// UsesDefaultSecret reports whether JWT_SECRET was left unset.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// Configured reports whether an object store backend is usable.
func (c BlobConfig) Configured() bool {
	switch c.Backend {
	case BackendS3:
		return c.Bucket != ""
	case BackendGCS:
		return c.GCSBucket != ""
	case BackendMemory:
		return true
	}
	return false
}

func inferBackend(b BlobConfig) string {
	switch {
	case b.Bucket != "":
		return BackendS3
	case b.GCSBucket != "":
		return BackendGCS
	}
	return ""
}

func defaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
