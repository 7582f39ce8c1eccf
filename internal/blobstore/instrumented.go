package blobstore

import "context"

// ObserveFunc records the outcome of one store operation.
type ObserveFunc func(op string, err error)

type instrumented struct {
	next    Store
	observe ObserveFunc
}

// Instrument wraps s so every call is reported to observe.
func Instrument(s Store, observe ObserveFunc) Store {
	return &instrumented{next: s, observe: observe}
}

func (s *instrumented) Put(ctx context.Context, u Upload) (Object, error) {
	obj, err := s.next.Put(ctx, u)
	s.observe("put", err)
	return obj, err
}

func (s *instrumented) PresignPut(ctx context.Context, filename, contentType string) (PresignedUpload, error) {
	p, err := s.next.PresignPut(ctx, filename, contentType)
	s.observe("presign_put", err)
	return p, err
}

func (s *instrumented) PresignGet(ctx context.Context, key string) (PresignedDownload, error) {
	p, err := s.next.PresignGet(ctx, key)
	s.observe("presign_get", err)
	return p, err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	s.observe("delete", err)
	return err
}

func (s *instrumented) PublicURL(key string) string {
	return s.next.PublicURL(key)
}
