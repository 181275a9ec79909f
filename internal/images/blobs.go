package images

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const blobPrefix = "blob:"

type blob struct {
	data    []byte
	created time.Time
}

// BlobStore keeps uploaded image bytes in memory and hands out blob: ids
type BlobStore struct {
	blobs map[string]blob
	mu    sync.RWMutex
	now   func() time.Time
}

func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string]blob),
		now:   time.Now,
	}
}

// Put stores data and returns its blob: source string
func (s *BlobStore) Put(data []byte) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = blob{data: data, created: s.now()}
	return blobPrefix + id
}

func (s *BlobStore) Get(source string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, exists := s.blobs[strings.TrimPrefix(source, blobPrefix)]
	return b.data, exists
}

func (s *BlobStore) Delete(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, strings.TrimPrefix(source, blobPrefix))
}

// Len reports how many blobs are held
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Prune drops blobs older than maxAge and returns how many went
func (s *BlobStore) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, b := range s.blobs {
		if b.created.Before(cutoff) {
			delete(s.blobs, id)
			removed++
		}
	}
	return removed
}
