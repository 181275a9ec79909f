package covers

import (
	"context"
	"errors"
	"sync"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/models"
)

// ErrStale is returned for a build whose book spec or front image was
// replaced while it ran. Its result is discarded.
var ErrStale = errors.New("cover build superseded by a newer request")

// Session tracks one user's cover in progress. Every change to the book spec
// or front image starts a new generation; only builds of the current
// generation are applied.
type Session struct {
	mu       sync.Mutex
	workflow *Workflow

	generation uint64
	spec       models.BookSpec
	front      string
	current    *Cover

	// builds of the current generation, cancelled when it is superseded
	inflight map[int]context.CancelFunc
	nextID   int
}

func NewSession(w *Workflow) *Session {
	return &Session{workflow: w, inflight: make(map[int]context.CancelFunc)}
}

// Update records the inputs a build depends on and returns the generation
// they belong to. Unchanged inputs keep the current generation.
func (s *Session) Update(spec models.BookSpec, front string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == 0 || spec != s.spec || front != s.front {
		s.generation++
		s.spec = spec
		s.front = front
		s.current = nil
		for id, cancel := range s.inflight {
			cancel()
			delete(s.inflight, id)
		}
	}
	return s.generation
}

// Generation returns the current generation
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Current returns the last applied cover without its bitmap, or nil
func (s *Session) Current() *Cover {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Build runs the workflow for generation gen and applies the result only if
// gen is still current when it finishes.
func (s *Session) Build(ctx context.Context, gen uint64, p compositor.Params) (*Cover, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil, ErrStale
	}
	id := s.nextID
	s.nextID++
	s.inflight[id] = cancel
	s.mu.Unlock()

	cover, err := s.workflow.Build(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
	if gen != s.generation {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	cover.Generation = gen
	s.current = cover.summary()
	return cover, nil
}
