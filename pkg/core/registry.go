package core

import (
	"fmt"
	"sort"
	"sync"
)

// Global registry for provider self-registration
var globalRegistry = &Registry{
	prototypes: make(map[string]Provider),
	providers:  make(map[string]Provider),
}

type Registry struct {
	prototypes map[string]Provider
	providers  map[string]Provider
	mu         sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		prototypes: make(map[string]Provider),
		providers:  make(map[string]Provider),
	}
}

// RegisterProviderPrototype allows providers to register themselves during init()
func RegisterProviderPrototype(name string, prototype Provider) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.prototypes[name] = prototype
}

// GetGlobalRegistry returns a registry seeded with all self-registered
// provider prototypes.
func GetGlobalRegistry() *Registry {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	registry := NewRegistry()
	for name, prototype := range globalRegistry.prototypes {
		registry.prototypes[name] = prototype
	}
	return registry
}

func (r *Registry) RegisterPrototype(name string, prototype Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prototypes[name]; exists {
		return fmt.Errorf("provider prototype %s already registered", name)
	}

	r.prototypes[name] = prototype
	return nil
}

// CreateProvider instantiates a provider from a registered prototype.
// Replacing an existing instance closes the old one first.
func (r *Registry) CreateProvider(instanceName string, providerType string, config interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prototype, exists := r.prototypes[providerType]
	if !exists {
		return fmt.Errorf("provider prototype %s not found", providerType)
	}

	if validator, ok := config.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("invalid config for provider %s: %w", instanceName, err)
		}
	}

	provider, err := prototype.Factory(instanceName, config)
	if err != nil {
		return fmt.Errorf("creating provider %s: %w", instanceName, err)
	}

	if existing, exists := r.providers[instanceName]; exists {
		if err := existing.Close(); err != nil {
			return fmt.Errorf("closing existing provider %s: %w", instanceName, err)
		}
	}

	r.providers[instanceName] = provider
	return nil
}

func (r *Registry) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}

	return provider, nil
}

// GetAllProviders returns the active provider instances keyed by name.
func (r *Registry) GetAllProviders() map[string]Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Provider)
	for name, p := range r.providers {
		result[name] = p
	}
	return result
}

// ListProviders returns the active provider names in sorted order. Merge
// bookkeeping iterates providers in this order so tie-breaking is
// deterministic.
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OrderedProviders returns the active provider instances sorted by name.
func (r *Registry) OrderedProviders() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		providers = append(providers, r.providers[name])
	}
	return providers
}

// SourceFilters returns the union of all providers' source kinds, sorted.
func (r *Registry) SourceFilters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, p := range r.providers {
		for _, source := range p.Sources() {
			seen[source] = true
		}
	}

	filters := make([]string, 0, len(seen))
	for source := range seen {
		filters = append(filters, source)
	}
	sort.Strings(filters)
	return filters
}

func (r *Registry) RemoveProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider, exists := r.providers[name]
	if !exists {
		return fmt.Errorf("provider %s not found", name)
	}

	if err := provider.Close(); err != nil {
		return fmt.Errorf("closing provider %s: %w", name, err)
	}

	delete(r.providers, name)
	return nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, provider := range r.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing provider %s: %w", name, err))
		}
	}

	r.providers = make(map[string]Provider)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %v", errs)
	}

	return nil
}
