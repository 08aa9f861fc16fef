package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is what the remember/recall tools need from the persistence
// layer. Nil disables those tools.
type MemoryStore interface {
	Remember(ctx context.Context, text string) (string, error)
	Recall(ctx context.Context, query string, limit int, minSimilarity float64) ([]MemoryHit, error)
}

type MemoryHit struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// BuiltinOptions carries runtime dependencies needed by built-in tool
// factories.
type BuiltinOptions struct {
	WeatherBaseURL string
	WeatherTimeout time.Duration
	Memory         MemoryStore
	RecallLimit    int
	RecallMinSim   float64
}

const DefaultBuiltinWebTimeout = 10 * time.Second

type BuiltinFactory func(options BuiltinOptions) (Tool, error)

var builtinCatalog = struct {
	mu        sync.RWMutex
	factories map[string]BuiltinFactory
}{
	factories: map[string]BuiltinFactory{},
}

// RegisterBuiltin registers a built-in tool factory under a tool name.
// Intended to be called in init() from built-in tool files.
func RegisterBuiltin(name string, factory BuiltinFactory) {
	normalized := NormalizeToolName(name)
	if normalized == "" {
		panic("tool: built-in name cannot be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("tool: built-in factory cannot be nil (%s)", normalized))
	}

	builtinCatalog.mu.Lock()
	defer builtinCatalog.mu.Unlock()

	if _, exists := builtinCatalog.factories[normalized]; exists {
		panic(fmt.Sprintf("tool: built-in already registered: %s", normalized))
	}
	builtinCatalog.factories[normalized] = factory
}

// BuiltinNames returns all registered built-in names in deterministic order.
func BuiltinNames() []string {
	builtinCatalog.mu.RLock()
	defer builtinCatalog.mu.RUnlock()

	names := make([]string, 0, len(builtinCatalog.factories))
	for name := range builtinCatalog.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InstantiateBuiltins constructs all built-in tools using their registered
// factories. A factory may return (nil, nil) to opt out for the current
// options, e.g. memory tools when no memory store is configured.
func InstantiateBuiltins(options BuiltinOptions) ([]Tool, error) {
	builtinCatalog.mu.RLock()
	factories := make(map[string]BuiltinFactory, len(builtinCatalog.factories))
	for name, factory := range builtinCatalog.factories {
		factories[name] = factory
	}
	builtinCatalog.mu.RUnlock()

	tools := make([]Tool, 0, len(factories))
	for _, name := range BuiltinNames() {
		t, err := factories[name](options)
		if err != nil {
			return nil, fmt.Errorf("instantiate built-in %q: %w", name, err)
		}
		if t == nil {
			continue
		}
		tools = append(tools, t)
	}
	return tools, nil
}
