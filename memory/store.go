package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/serjogas/galleria"
)

type object struct {
	contentType string
	data        []byte
}

// Store is an in-memory ObjectStore. Signed URLs are shaped like real
// presigned URLs (base/key plus signature query parameters) so callers
// exercise the same canonicalization path they would against S3.
type Store struct {
	mu      sync.RWMutex
	baseURL string
	expiry  int
	objects map[string]object
}

// NewStore creates a store whose signed URLs are rooted at baseURL, for
// example "http://localhost:9000/galleria".
func NewStore(baseURL string, expirySeconds int) *Store {
	if expirySeconds <= 0 {
		expirySeconds = 900
	}
	return &Store{
		baseURL: baseURL,
		expiry:  expirySeconds,
		objects: make(map[string]object),
	}
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[key]
	return ok, nil
}

func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{contentType: contentType, data: data}
	return nil
}

func (s *Store) Head(ctx context.Context, key string) (galleria.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return galleria.ObjectInfo{}, fmt.Errorf("head %s: %w", key, galleria.ErrNotFound)
	}
	return galleria.ObjectInfo{
		ContentType:   obj.contentType,
		ContentLength: int64(len(obj.data)),
	}, nil
}

func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	return s.signedURL(key), nil
}

func (s *Store) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	return s.signedURL(key), nil
}

func (s *Store) signedURL(key string) string {
	return fmt.Sprintf("%s/%s?X-Amz-Expires=%d&X-Amz-Signature=stub", s.baseURL, key, s.expiry)
}
