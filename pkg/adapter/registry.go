package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// Factory creates an unconnected adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

// Registry maps adapter type names to factories. It is safe for concurrent
// use; registering while other goroutines look up adapters is allowed.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get retrieves an adapter factory by name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// New creates a new adapter instance based on config type.
func (r *Registry) New(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, errors.New("adapter type not specified")
	}

	factory, ok := r.Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: r.List(),
		}
	}
	return factory(logger), nil
}

// Open creates the adapter for cfg and connects it.
func (r *Registry) Open(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	a, err := r.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}
	return a, nil
}

// List returns all registered adapter names (sorted).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

var defaultRegistry = NewRegistry()

// Default returns the registry populated by adapter packages' init() functions.
func Default() *Registry { return defaultRegistry }

// Register adds an adapter factory to the default registry.
// Called by adapter implementations in their init() functions.
func Register(name string, factory Factory) { defaultRegistry.Register(name, factory) }

// Get retrieves a factory from the default registry.
func Get(name string) (Factory, bool) { return defaultRegistry.Get(name) }

// NewAdapter creates an adapter from the default registry.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	return defaultRegistry.New(cfg, logger)
}

// ListAdapters returns the names in the default registry.
func ListAdapters() []string { return defaultRegistry.List() }

// IsRegistered checks the default registry.
func IsRegistered(name string) bool { return defaultRegistry.IsRegistered(name) }

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check your target.type in leapstream.yaml", e.Type, e.Available)
}
