// Package registry holds the helper builder registry: a
// name-to-builder map populated once at startup and read-only
// afterward.
package registry

import (
	"sync"

	"go.wazuh.dev/engine/internal/enginerr"
	"go.wazuh.dev/engine/internal/expr"
)

// Definition is the (targetField, helperName, rawParameters) triple
// the asset compiler extracts from one check/stage entry.
type Definition struct {
	TargetField string
	HelperName  string
	RawArgs     []string
}

// Builder constructs a Term expression from a Definition. Builders
// fail with *enginerr.BuildError for malformed shape, arity, parameter
// kind, or an unparsable literal.
type Builder func(def Definition) (*expr.Node, error)

// Registry is a name -> Builder map. The zero value is unusable; use
// New. Safe for concurrent lookup once registration is complete.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under name. Fails with
// *enginerr.AlreadyRegistered on a duplicate name.
func (r *Registry) Register(name string, b Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[name]; exists {
		return &enginerr.AlreadyRegistered{Name: name}
	}
	r.builders[name] = b
	return nil
}

// MustRegister is Register, panicking on error. Intended for the
// startup registration sequence (internal/helper.RegisterAll), where a
// duplicate name is a programming error, not a runtime condition.
func (r *Registry) MustRegister(name string, b Builder) {
	if err := r.Register(name, b); err != nil {
		panic(err)
	}
}

// Lookup finds the builder registered under name. Fails with
// *enginerr.NotFound if absent.
func (r *Registry) Lookup(name string) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[name]
	if !ok {
		return nil, &enginerr.NotFound{Kind: "helper", Name: name}
	}
	return b, nil
}

// Clear removes every registered builder.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders = make(map[string]Builder)
}

// Names returns every registered helper name, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	return names
}
