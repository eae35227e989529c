package carrier

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/99minutos/tracking-service/internal/core/domain"
	"github.com/99minutos/tracking-service/internal/core/ports"
)

// Registry resolves provider names to providers. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ports.CarrierProvider
}

// NewRegistry returns a registry holding the given providers.
func NewRegistry(providers ...ports.CarrierProvider) *Registry {
	r := &Registry{providers: make(map[string]ports.CarrierProvider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider registered under the same name.
func (r *Registry) Register(p ports.CarrierProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[normalizeName(p.Name())] = p
}

// Resolve returns the provider registered as name.
func (r *Registry) Resolve(name string) (ports.CarrierProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists the registered provider names in sorted order.
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

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
