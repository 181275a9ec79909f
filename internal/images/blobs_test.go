package images

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePrune(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewBlobStore()
	s.now = func() time.Time { return clock }

	old := s.Put([]byte("old"))
	clock = clock.Add(90 * time.Minute)
	fresh := s.Put([]byte("fresh"))

	clock = clock.Add(45 * time.Minute)
	assert.Equal(t, 1, s.Prune(2*time.Hour))
	assert.Equal(t, 1, s.Len())

	_, ok := s.Get(old)
	assert.False(t, ok)
	data, ok := s.Get(fresh)
	require.True(t, ok)
	assert.Equal(t, "fresh", string(data))
}
