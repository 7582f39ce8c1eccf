package inspection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/apperr"
	"github.com/medirank/medirank-api/internal/blobstore"
)

const (
	msgUploadFieldsRequired = "filename and contentType required"
	msgKeyRequired          = "key or url required"
	msgInvalidURL           = "Invalid url"
)

// PresignUpload returns a URL the client can PUT the file to directly.
func (s *Service) PresignUpload(ctx context.Context, filename, contentType string) (blobstore.PresignedUpload, error) {
	if filename == "" || contentType == "" {
		return blobstore.PresignedUpload{}, apperr.New(apperr.ErrValidation, msgUploadFieldsRequired)
	}
	p, err := s.blobs.PresignPut(ctx, filename, contentType)
	if err != nil {
		return blobstore.PresignedUpload{}, fmt.Errorf("presign upload: %w", err)
	}
	return p, nil
}

// UploadFile stores a single file through the server.
func (s *Service) UploadFile(ctx context.Context, u blobstore.Upload) (blobstore.Object, error) {
	if u.Filename == "" {
		u.Filename = fmt.Sprintf("upload_%d", s.now().UnixMilli())
	}
	if u.ContentType == "" {
		u.ContentType = "application/octet-stream"
	}
	obj, err := s.blobs.Put(ctx, u)
	if err != nil {
		return blobstore.Object{}, fmt.Errorf("upload file: %w", err)
	}
	s.log.Debug("file uploaded", zap.String("key", obj.Key), zap.Int64("size", u.Size))
	return obj, nil
}

// PresignDownload returns a read URL for an explicit key or an object URL.
func (s *Service) PresignDownload(ctx context.Context, key, rawURL string) (blobstore.PresignedDownload, error) {
	k, err := blobstore.ResolveKey(key, rawURL)
	switch err {
	case nil:
	case blobstore.ErrKeyRequired:
		return blobstore.PresignedDownload{}, apperr.New(apperr.ErrValidation, msgKeyRequired)
	default:
		return blobstore.PresignedDownload{}, apperr.New(apperr.ErrValidation, msgInvalidURL)
	}

	p, err := s.blobs.PresignGet(ctx, k)
	if err != nil {
		return blobstore.PresignedDownload{}, fmt.Errorf("presign download: %w", err)
	}
	return p, nil
}
