package blobstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/config"
)

// Open builds the backend selected by cfg. An unconfigured backend yields the
// disabled store rather than an error, so the API still serves everything
// that does not touch files. The returned func releases the client.
func Open(ctx context.Context, cfg config.BlobConfig, log *zap.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Configured() {
		log.Warn("object store not configured; file endpoints will fail",
			zap.String("backend", cfg.Backend))
		return Disabled(), noop, nil
	}

	switch cfg.Backend {
	case config.BackendS3:
		s, err := NewS3Store(ctx, S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Prefix:          cfg.KeyPrefix,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Endpoint:        cfg.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("object store: s3", zap.String("bucket", cfg.Bucket), zap.String("region", cfg.Region))
		return s, noop, nil

	case config.BackendGCS:
		s, err := NewGCSStore(ctx, GCSConfig{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.KeyPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("object store: gcs", zap.String("bucket", cfg.GCSBucket))
		return s, s.Close, nil

	case config.BackendMemory:
		log.Warn("object store: in-memory; files are lost on exit")
		return NewMemoryStore("localhost", cfg.KeyPrefix), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
}
