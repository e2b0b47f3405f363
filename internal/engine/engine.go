// Package engine adapts the asset store and the builder registry to
// the router's Loader interface and parses route specs. The
// composition root that wires store, registry, router and queue is
// cmd/engine's serve command; this package is kept separate from it so
// it can be exercised by tests without a cobra command.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.wazuh.dev/engine/internal/asset"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/policy"
	"go.wazuh.dev/engine/internal/registry"
	"go.wazuh.dev/engine/internal/store"
)

// Loader adapts a Store+Registry pair to the router.Loader interface:
// LoadFilter compiles a single filter asset's check expression;
// LoadPolicy resolves a policy manifest and composes it.
type Loader struct {
	Reg   *registry.Registry
	Store *store.Store
}

// LoadFilter implements router.Loader.
func (l *Loader) LoadFilter(name string) (*expr.Node, error) {
	doc, err := l.Store.Get(name)
	if err != nil {
		return nil, err
	}
	if doc.Type != asset.Filter {
		return nil, fmt.Errorf("engine: %q is a %s asset, not a filter", name, doc.Type)
	}
	a, err := asset.Compile(l.Reg, doc)
	if err != nil {
		return nil, err
	}
	return a.Expr, nil
}

// LoadPolicy implements router.Loader.
func (l *Loader) LoadPolicy(name string) (*expr.Node, error) {
	raw, err := l.Store.GetRaw(name)
	if err != nil {
		return nil, err
	}
	manifest, err := policy.ParseManifest(raw)
	if err != nil {
		return nil, err
	}
	p, err := policy.LoadManifest(l.Reg, l.Store, manifest)
	if err != nil {
		return nil, err
	}
	return p.Root, nil
}

// RouteSpec is one parsed "name:priority:filter:policy" entry from
// the --policy flag.
type RouteSpec struct {
	Name     string
	Priority int
	Filter   string
	Policy   string
}

// ParseRouteSpec parses the colon-separated initial route tuple. An
// empty filter field (two consecutive colons) means "always match".
func ParseRouteSpec(raw string) (RouteSpec, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 {
		return RouteSpec{}, fmt.Errorf("engine: route spec %q must have 4 colon-separated fields", raw)
	}
	priority, err := strconv.Atoi(parts[1])
	if err != nil {
		return RouteSpec{}, fmt.Errorf("engine: route spec %q has a non-integer priority: %w", raw, err)
	}
	if parts[0] == "" || parts[3] == "" {
		return RouteSpec{}, fmt.Errorf("engine: route spec %q must name both a route and a policy", raw)
	}
	return RouteSpec{Name: parts[0], Priority: priority, Filter: parts[2], Policy: parts[3]}, nil
}
