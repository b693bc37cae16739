package rack

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Factory builds one fresh, unprepared unit.
type Factory func() (Unit, error)

// Registry maps display names to unit factories. It is safe for concurrent
// use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var errDuplicateEffect = errors.New("duplicate effect name")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("empty effect name")
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateEffect, name)
	}

	r.factories[name] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	err := r.Register(name, factory)
	if err != nil {
		panic("rack registry: " + err.Error())
	}
}

// Lookup returns the factory registered under name, or nil.
func (r *Registry) Lookup(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.factories[name]
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// New builds a unit by name. The unit's Name must match the registry key.
func (r *Registry) New(name string) (Unit, error) {
	factory := r.Lookup(name)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, name)
	}

	u, err := factory()
	if err != nil {
		return nil, fmt.Errorf("rack: build %s: %w", name, err)
	}
	if u == nil {
		return nil, fmt.Errorf("rack: build %s: factory returned nil", name)
	}
	if u.Name() != name {
		return nil, fmt.Errorf("rack: build %s: unit reports name %q", name, u.Name())
	}

	return u, nil
}
