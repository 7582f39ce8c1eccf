package blobstore

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medirank/medirank-api/internal/attachment"
)

func TestBuildKey(t *testing.T) {
	now := time.UnixMilli(1717000000123)
	assert.Equal(t, "uploads/1717000000123_photo.jpg", BuildKey("uploads/", "photo.jpg", now))
	assert.Equal(t, "1717000000123_a b.png", BuildKey("", "a b.png", now))
}

func TestResolveKey(t *testing.T) {
	k, err := ResolveKey("explicit/key.jpg", "https://b.s3.ap-south-1.amazonaws.com/other.jpg")
	require.NoError(t, err)
	assert.Equal(t, "explicit/key.jpg", k)

	k, err = ResolveKey("", "https://b.s3.ap-south-1.amazonaws.com/prefix123_file.jpg")
	require.NoError(t, err)
	assert.Equal(t, "prefix123_file.jpg", k)

	_, err = ResolveKey("  ", "")
	assert.ErrorIs(t, err, ErrKeyRequired)

	_, err = ResolveKey("", "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = ResolveKey("", "data:image/png;base64,AAAA")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = ResolveKey("", "https://b.s3.ap-south-1.amazonaws.com/")
	assert.ErrorIs(t, err, ErrKeyRequired)

	k, err = ResolveKey("", "file:///k")
	require.NoError(t, err)
	assert.Equal(t, "k", k)
}

func TestDisabledStore(t *testing.T) {
	ctx := context.Background()
	s := Disabled()

	_, err := s.Put(ctx, Upload{Body: strings.NewReader("x"), Filename: "a"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.PresignPut(ctx, "a", "image/png")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.PresignGet(ctx, "a")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotConfigured)
	assert.Empty(t, s.PublicURL("a"))
}

func newTestS3Store(t *testing.T) *S3Store {
	t.Helper()
	client := s3.New(s3.Options{
		Region:      "ap-south-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	})
	s := newS3Store(client, S3Config{Bucket: "medirank", Region: "ap-south-1", Prefix: "insp/"})
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestS3Store_PublicURLRoundTripsKey(t *testing.T) {
	s := newTestS3Store(t)

	u := s.PublicURL("insp/1700000000000_photo one.jpg")
	assert.True(t, strings.HasPrefix(u, "https://medirank.s3.ap-south-1.amazonaws.com/insp/1700000000000_photo"))

	key, ok := attachment.KeyFromURL(u)
	require.True(t, ok)
	assert.Equal(t, "insp/1700000000000_photo one.jpg", key)
}

func TestS3Store_PresignPut(t *testing.T) {
	s := newTestS3Store(t)

	p, err := s.PresignPut(context.Background(), "report.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "insp/1700000000000_report.pdf", p.Key)
	assert.Equal(t, "https://medirank.s3.ap-south-1.amazonaws.com/insp/1700000000000_report.pdf", p.FileURL)

	u, err := url.Parse(p.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Path, "1700000000000_report.pdf")
}

func TestS3Store_PresignGet(t *testing.T) {
	s := newTestS3Store(t)

	p, err := s.PresignGet(context.Background(), "insp/k1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "insp/k1.jpg", p.Key)

	u, err := url.Parse(p.URL)
	require.NoError(t, err)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("files.test", "p/")

	a, err := s.Put(ctx, Upload{Body: bytes.NewReader([]byte("one")), Filename: "a.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	b, err := s.Put(ctx, Upload{Body: bytes.NewReader([]byte("two")), Filename: "a.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
	assert.True(t, strings.HasPrefix(a.Key, "p/"))
	assert.Equal(t, "https://files.test/"+a.Key, a.URL)

	obj, ok := s.Object(a.Key)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), obj.Data)

	s.FailDelete[b.Key] = errors.New("denied")
	assert.Error(t, s.Delete(ctx, b.Key))
	require.NoError(t, s.Delete(ctx, a.Key))
	assert.Equal(t, 1, s.Len())
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	var ops []string
	var failures int
	s := Instrument(Disabled(), func(op string, err error) {
		ops = append(ops, op)
		if err != nil {
			failures++
		}
	})

	_, _ = s.Put(ctx, Upload{})
	_, _ = s.PresignPut(ctx, "a", "b")
	_, _ = s.PresignGet(ctx, "a")
	_ = s.Delete(ctx, "a")

	assert.Equal(t, []string{"put", "presign_put", "presign_get", "delete"}, ops)
	assert.Equal(t, 4, failures)
}
