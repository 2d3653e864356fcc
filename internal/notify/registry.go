package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/deeptube/deeptube/internal/model"
)

// Registry fans notifications out to every registered sink.
type Registry struct {
	sinks map[string]Sink
	mu    sync.RWMutex
}

// NewRegistry creates a new sink registry.
func NewRegistry(sinks ...Sink) (*Registry, error) {
	r := &Registry{
		sinks: make(map[string]Sink),
	}
	for _, s := range sinks {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a new sink.
func (r *Registry) Register(s Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[s.ID()]; exists {
		return fmt.Errorf("sink with ID '%s' already registered", s.ID())
	}

	r.sinks[s.ID()] = s
	return nil
}

// Get returns sink by ID.
func (r *Registry) Get(id string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sinks[id]
	return s, ok
}

// All returns all registered sinks ordered by ID.
func (r *Registry) All() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		result = append(result, s)
	}
	slices.SortFunc(result, func(a, b Sink) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return result
}

// Remove removes a sink by ID.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[id]; !exists {
		return fmt.Errorf("sink '%s' not found", id)
	}

	delete(r.sinks, id)
	return nil
}

// Publish delivers n to every sink. A failing sink does not stop delivery
// to the others; all failures are joined into the returned error.
func (r *Registry) Publish(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, s := range r.All() {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}
