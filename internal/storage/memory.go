package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"policydesk/pkg/platform/sentinel"
)

// InMemoryBlobStore keeps content for the process lifetime.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
	bytes int64
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string]Blob)}
}

func (s *InMemoryBlobStore) Put(_ context.Context, contentType string, data []byte) (string, error) {
	ref := "blob-" + uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = Blob{
		Ref:         ref,
		ContentType: contentType,
		Data:        slices.Clone(data),
		CreatedAt:   time.Now(),
	}
	s.bytes += int64(len(data))
	return ref, nil
}

func (s *InMemoryBlobStore) Get(_ context.Context, ref string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	b.Data = slices.Clone(b.Data)
	return &b, nil
}

// Delete is idempotent.
func (s *InMemoryBlobStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[ref]; ok {
		s.bytes -= int64(len(b.Data))
		delete(s.blobs, ref)
	}
	return nil
}

// Size reports the number of blobs and their total bytes.
func (s *InMemoryBlobStore) Size() (count int, bytes int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs), s.bytes
}
