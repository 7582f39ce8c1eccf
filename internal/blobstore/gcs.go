package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage backend. Without a
// credentials file the application default credentials are used.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// GCSStore stores objects in a GCS bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	now    func() time.Time
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return newGCSStore(client, cfg), nil
}

func newGCSStore(client *storage.Client, cfg GCSConfig) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		prefix: cfg.Prefix,
		now:    time.Now,
	}
}

func (s *GCSStore) Put(ctx context.Context, u Upload) (Object, error) {
	key := BuildKey(s.prefix, u.Filename, s.now())
	// Cancelling the writer context aborts the upload; Close would commit
	// whatever was buffered.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := s.bucket.Object(key).NewWriter(wctx)
	w.ContentType = u.ContentType

	if _, err := io.Copy(w, u.Body); err != nil {
		cancel()
		_ = w.Close()
		return Object{}, fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("gcs finalize %s: %w", key, err)
	}
	return Object{URL: s.PublicURL(key), Key: key}, nil
}

func (s *GCSStore) PresignPut(_ context.Context, filename, contentType string) (PresignedUpload, error) {
	key := BuildKey(s.prefix, filename, s.now())
	signed, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     s.now().Add(PutURLExpiry),
	})
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("gcs sign put %s: %w", key, err)
	}
	return PresignedUpload{UploadURL: signed, FileURL: s.PublicURL(key), Key: key}, nil
}

func (s *GCSStore) PresignGet(_ context.Context, key string) (PresignedDownload, error) {
	signed, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: s.now().Add(GetURLExpiry),
	})
	if err != nil {
		return PresignedDownload{}, fmt.Errorf("gcs sign get %s: %w", key, err)
	}
	return PresignedDownload{URL: signed, Key: key}, nil
}

// Delete removes key. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns https://<bucket>.storage.googleapis.com/<key>.
func (s *GCSStore) PublicURL(key string) string {
	return hostURL(s.name+".storage.googleapis.com", key)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
