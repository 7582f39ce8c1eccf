package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 backend. Static credentials are used only when
// both AccessKeyID and SecretAccessKey are set; otherwise the default AWS
// credential chain applies.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 API endpoint (MinIO, LocalStack).
	Endpoint string
}

// S3Store stores objects in an S3 bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
	prefix  string
	now     func() time.Time
}

// NewS3Store loads AWS configuration and builds the S3 client.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client *s3.Client, cfg S3Config) *S3Store {
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		prefix:  cfg.Prefix,
		now:     time.Now,
	}
}

func (s *S3Store) Put(ctx context.Context, u Upload) (Object, error) {
	key := BuildKey(s.prefix, u.Filename, s.now())
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        u.Body,
		ContentType: aws.String(u.ContentType),
	}
	if u.Size > 0 {
		in.ContentLength = aws.Int64(u.Size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Object{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return Object{URL: s.PublicURL(key), Key: key}, nil
}

func (s *S3Store) PresignPut(ctx context.Context, filename, contentType string) (PresignedUpload, error) {
	key := BuildKey(s.prefix, filename, s.now())
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PutURLExpiry))
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("s3 presign put %s: %w", key, err)
	}
	return PresignedUpload{UploadURL: req.URL, FileURL: s.PublicURL(key), Key: key}, nil
}

func (s *S3Store) PresignGet(ctx context.Context, key string) (PresignedDownload, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(GetURLExpiry))
	if err != nil {
		return PresignedDownload{}, fmt.Errorf("s3 presign get %s: %w", key, err)
	}
	return PresignedDownload{URL: req.URL, Key: key}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns https://<bucket>.s3.<region>.amazonaws.com/<key>.
func (s *S3Store) PublicURL(key string) string {
	return hostURL(fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucket, s.region), key)
}
