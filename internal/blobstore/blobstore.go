// Package blobstore stores inspection attachments in an object store and
// hands out presigned URLs for direct client access.
package blobstore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/medirank/medirank-api/internal/attachment"
)

const (
	PutURLExpiry = 15 * time.Minute
	GetURLExpiry = 60 * time.Minute
)

var (
	// ErrNotConfigured is returned by every call on a store without a bucket.
	ErrNotConfigured = errors.New("object store not configured")
	// ErrKeyRequired is returned by ResolveKey when neither input names a key.
	ErrKeyRequired = errors.New("key or url required")
	// ErrInvalidURL is returned by ResolveKey for input that is not an
	// absolute hierarchical URL.
	ErrInvalidURL = errors.New("Invalid url")
)

// Upload is a file to store.
type Upload struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// Object is a stored file.
type Object struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignedUpload lets a client PUT a file directly to the store.
type PresignedUpload struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
	Key       string `json:"key"`
}

// PresignedDownload is a time-limited read URL.
type PresignedDownload struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Store is implemented by the S3, GCS, memory and disabled backends.
type Store interface {
	Put(ctx context.Context, u Upload) (Object, error)
	PresignPut(ctx context.Context, filename, contentType string) (PresignedUpload, error)
	PresignGet(ctx context.Context, key string) (PresignedDownload, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// BuildKey returns <prefix><unixMillis>_<filename>.
func BuildKey(prefix, filename string, now time.Time) string {
	return prefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + filename
}

// ResolveKey picks the object key from an explicit key or an object URL.
func ResolveKey(key, rawURL string) (string, error) {
	if k := strings.TrimSpace(key); k != "" {
		return k, nil
	}
	if strings.TrimSpace(rawURL) == "" {
		return "", ErrKeyRequired
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return "", ErrInvalidURL
	}
	k, ok := attachment.KeyFromURL(rawURL)
	if !ok {
		return "", ErrKeyRequired
	}
	return k, nil
}

// hostURL builds https://<host>/<key> with the key path-escaped, so
// attachment.KeyFromURL recovers the key unchanged.
func hostURL(host, key string) string {
	u := url.URL{Scheme: "https", Host: host, Path: "/" + key}
	return u.String()
}

type disabled struct{}

// Disabled returns a store whose every call fails with ErrNotConfigured.
func Disabled() Store {
	return disabled{}
}

func (disabled) Put(context.Context, Upload) (Object, error) {
	return Object{}, ErrNotConfigured
}

func (disabled) PresignPut(context.Context, string, string) (PresignedUpload, error) {
	return PresignedUpload{}, ErrNotConfigured
}

func (disabled) PresignGet(context.Context, string) (PresignedDownload, error) {
	return PresignedDownload{}, ErrNotConfigured
}

func (disabled) Delete(context.Context, string) error {
	return ErrNotConfigured
}

func (disabled) PublicURL(string) string {
	return ""
}
