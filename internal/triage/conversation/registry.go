package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/metrics"
)

// Factory builds a controller for a new session id.
type Factory func(id string) *Controller

// Registry holds live sessions keyed by id. Sessions never share state;
// the registry lock only guards the map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
	factory  Factory
	now      func() time.Time
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Controller),
		factory:  factory,
		now:      time.Now,
	}
}

// Create registers a new controller under a fresh UUID.
func (r *Registry) Create() *Controller {
	c := r.factory(uuid.NewString())

	r.mu.Lock()
	r.sessions[c.ID()] = c
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return c
}

func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	c, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return c, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.SessionsActive.Set(float64(n))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	removed := 0
	for id, c := range r.sessions {
		if c.LastActive().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return removed
}
