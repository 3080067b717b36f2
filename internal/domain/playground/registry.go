package playground

import (
	"sync"

	"github.com/xtdb/xtdocs/internal/infrastructure/dom"
)

// Factory builds the coordinator for a container element.
type Factory func(container *dom.Element) (*Coordinator, error)

// Registry maps widget ids to their coordinators. A coordinator is created
// on the first lookup from any element inside its container and reused by
// every later lookup, whatever order the shells attach in.
type Registry struct {
	mu           sync.Mutex
	factory      Factory
	coordinators map[string]*Coordinator
	order        []string
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:      factory,
		coordinators: make(map[string]*Coordinator),
	}
}

// Get returns the coordinator of el's enclosing container, creating it on
// first use.
func (r *Registry) Get(el *dom.Element) (*Coordinator, error) {
	container := el.Closest(TagEmbed)
	if container == nil {
		return nil, &ConfigError{Tag: el.Tag(), Err: ErrNoContainer}
	}
	id := container.Dataset("id")
	if id == "" {
		return nil, &ConfigError{Tag: el.Tag(), Err: ErrMissingID}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.coordinators[id]; ok {
		return c, nil
	}
	c, err := r.factory(container)
	if err != nil {
		return nil, err
	}
	r.coordinators[id] = c
	r.order = append(r.order, id)
	return c, nil
}

// Lookup returns an existing coordinator by widget id.
func (r *Registry) Lookup(id string) (*Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coordinators[id]
	return c, ok
}

// Coordinators returns every coordinator in creation order.
func (r *Registry) Coordinators() []*Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Coordinator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.coordinators[id])
	}
	return out
}

// Len returns the number of coordinators.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.coordinators)
}

// Clear forgets every coordinator.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coordinators = make(map[string]*Coordinator)
	r.order = nil
}
