package flow

import (
	"fmt"
	"sync"

	prompta "github.com/synzen/prompt-anything-sub000"
)

// Registry holds the named transforms and conditions a definition may
// reference. Registering under an existing name overwrites it.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]prompta.Transform[Data]
	conditions map[string]prompta.Condition[Data]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[string]prompta.Transform[Data]),
		conditions: make(map[string]prompta.Condition[Data]),
	}
}

// RegisterTransform adds a transform under name.
func (r *Registry) RegisterTransform(name string, fn prompta.Transform[Data]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms[name] = fn
}

// RegisterCondition adds a condition under name.
func (r *Registry) RegisterCondition(name string, fn prompta.Condition[Data]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[name] = fn
}

// Transform looks up a transform by name.
func (r *Registry) Transform(name string) (prompta.Transform[Data], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.transforms[name]
	if !ok {
		return nil, fmt.Errorf("transform not found: %s", name)
	}
	return fn, nil
}

// Condition looks up a condition by name.
func (r *Registry) Condition(name string) (prompta.Condition[Data], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.conditions[name]
	if !ok {
		return nil, fmt.Errorf("condition not found: %s", name)
	}
	return fn, nil
}
