package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It backs BLOB_BACKEND=memory
// for local development and the tests of the packages above.
type MemoryStore struct {
	mu      sync.Mutex
	host    string
	prefix  string
	objects map[string]MemoryObject
	now     func() time.Time
	seq     int64

	// FailDelete makes Delete fail for the listed keys.
	FailDelete map[string]error
}

// MemoryObject is a stored object.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

func NewMemoryStore(host, prefix string) *MemoryStore {
	return &MemoryStore{
		host:       host,
		prefix:     prefix,
		objects:    map[string]MemoryObject{},
		now:        time.Now,
		FailDelete: map[string]error{},
	}
}

func (s *MemoryStore) Put(_ context.Context, u Upload) (Object, error) {
	data, err := io.ReadAll(u.Body)
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextKey(u.Filename)
	s.objects[key] = MemoryObject{Data: data, ContentType: u.ContentType}
	return Object{URL: s.PublicURL(key), Key: key}, nil
}

func (s *MemoryStore) PresignPut(_ context.Context, filename, contentType string) (PresignedUpload, error) {
	s.mu.Lock()
	key := s.nextKey(filename)
	s.mu.Unlock()

	q := url.Values{"expires": {fmt.Sprint(int(PutURLExpiry.Seconds()))}, "content-type": {contentType}}
	return PresignedUpload{UploadURL: s.PublicURL(key) + "?" + q.Encode(), FileURL: s.PublicURL(key), Key: key}, nil
}

func (s *MemoryStore) PresignGet(_ context.Context, key string) (PresignedDownload, error) {
	q := url.Values{"expires": {fmt.Sprint(int(GetURLExpiry.Seconds()))}}
	return PresignedDownload{URL: s.PublicURL(key) + "?" + q.Encode(), Key: key}, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailDelete[key]; ok {
		return err
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return hostURL(s.host, key)
}

// Object returns the stored object for key.
func (s *MemoryStore) Object(key string) (MemoryObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// nextKey keeps keys unique when two uploads land in the same millisecond.
func (s *MemoryStore) nextKey(filename string) string {
	for {
		key := BuildKey(s.prefix, filename, s.now().Add(time.Duration(s.seq)*time.Millisecond))
		if _, taken := s.objects[key]; !taken {
			return key
		}
		s.seq++
	}
}
