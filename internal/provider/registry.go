package provider

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Registry routes provider names to providers
type Registry struct {
	providers map[string]Provider
	fallback  string
	mu        sync.RWMutex
}

// NewRegistry creates a registry. Requests that name no provider go to fallback.
func NewRegistry(fallback string, providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		fallback:  fallback,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[p.Name()] = p
}

// Get returns the provider registered under name, or the fallback when name is empty
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.fallback
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("unsupported provider: %q", name)
	}
	return p, nil
}

// Names returns all registered provider names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Close releases providers that hold resources
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				return err
			}
		}
	}

	return nil
}
