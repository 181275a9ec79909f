package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/printshop-tools/kdpcover/internal/models"
)

// DefaultHistoryLimit is how many records List returns when limit <= 0
const DefaultHistoryLimit = 50

var ErrNotFound = errors.New("history record not found")

// HistoryStore persists generated covers
type HistoryStore interface {
	Save(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error)
	Get(ctx context.Context, id string) (models.HistoryRecord, error)
	// List returns the newest records first
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// prepare assigns an ID and timestamp when missing
func prepare(rec models.HistoryRecord) models.HistoryRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Colors == nil {
		rec.Colors = []string{}
	}
	return rec
}

// MemoryStore is a HistoryStore that forgets everything on restart
type MemoryStore struct {
	records map[string]models.HistoryRecord
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.HistoryRecord)}
}

func (s *MemoryStore) Save(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error) {
	rec = prepare(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return models.HistoryRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.mu.RLock()
	out := make([]models.HistoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
