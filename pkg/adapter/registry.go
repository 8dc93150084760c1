package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// normalize folds an adapter name so "SQLite" and "sqlite" select the same target.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register makes an adapter available under name. Adapter packages call it
// from init. Registering the same name twice panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := normalize(name)
	if factory == nil {
		panic("adapter: Register factory is nil for " + key)
	}
	if _, dup := factories[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	factories[key] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[normalize(name)]
	return f, ok
}

// NewAdapter builds the adapter selected by cfg.Type. It does not connect.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if normalize(cfg.Type) == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger.With("adapter", normalize(cfg.Type))), nil
}

// ListAdapters returns the registered adapter names in sorted order.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether an adapter is registered under name.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when target.type names no registered adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown staging target type %q (available: %s); check target.type in leapingest.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
