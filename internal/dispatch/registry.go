package dispatch

import (
	"context"
	"fmt"
	"sync"

	"pushflow/pkg/models"
)

// Variant is one sender capability: a named handler bound to a delivery
// queue. New variants plug in through the registry without touching the
// dispatcher loop.
type Variant interface {
	Name() string
	Queue() string
	Handle(ctx context.Context, task models.PushTask) error
}

type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
}

func NewRegistry() *Registry {
	return &Registry{
		variants: make(map[string]Variant),
	}
}

func (r *Registry) Register(v Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.variants[v.Name()]; exists {
		return fmt.Errorf("sender variant %q is already registered", v.Name())
	}
	r.variants[v.Name()] = v
	return nil
}

func (r *Registry) Get(name string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[name]
	if !ok {
		return nil, fmt.Errorf("unknown sender variant: %s", name)
	}
	return v, nil
}
