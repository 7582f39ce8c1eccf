package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"NODE_ENV", "APP_ENV", "PORT", "JWT_SECRET", "STORE_DRIVER", "MONGO_URI", "DATABASE_URL",
		"MONGO_DB", "PG_HOST", "PG_PASSWORD", "BLOB_BACKEND", "S3_BUCKET", "AWS_REGION", "S3_REGION",
		"S3_KEY_PREFIX", "GCS_BUCKET", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "development", cfg.NodeEnv)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "medirank", cfg.Mongo.Database)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Equal(t, "ap-south-1", cfg.Blob.Region)
	assert.Equal(t, "", cfg.Blob.Backend)
	assert.False(t, cfg.Blob.Configured())
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_MongoRequiresURI(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "mongodb://db:27017")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
}

func TestLoad_PostgresAndS3(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("S3_BUCKET", "medirank-files")
	t.Setenv("S3_REGION", "eu-west-1")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, BackendS3, cfg.Blob.Backend)
	assert.Equal(t, "eu-west-1", cfg.Blob.Region)
	assert.True(t, cfg.Blob.Configured())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_UnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "redis")
	_, err := Load()
	assert.Error(t, err)
}
