package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"go.wazuh.dev/engine/internal/asset"
	"go.wazuh.dev/engine/internal/registry"
)

// AssetLoader resolves a store-catalog name to its parsed document
// (internal/store.Store implements this).
type AssetLoader interface {
	Get(name string) (asset.Document, error)
}

// Manifest is the policy-level document that names which catalog
// entries belong to a policy. A policy is a named collection of
// assets; the manifest is how that collection is declared in the
// asset store.
type Manifest struct {
	Name     string   `yaml:"name"`
	Decoders []string `yaml:"decoders"`
	Rules    []string `yaml:"rules"`
	Outputs  []string `yaml:"outputs"`
	Filters  []string `yaml:"filters"`
}

// ParseManifest decodes a policy manifest document.
func ParseManifest(raw []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("policy: parse manifest: %w", err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("policy: manifest missing name")
	}
	return m, nil
}

// LoadManifest composes the policy named by m, resolving each asset
// name against loader.
func LoadManifest(reg *registry.Registry, loader AssetLoader, m Manifest) (*Policy, error) {
	decoders, err := fetchAll(loader, m.Decoders)
	if err != nil {
		return nil, err
	}
	rules, err := fetchAll(loader, m.Rules)
	if err != nil {
		return nil, err
	}
	outputs, err := fetchAll(loader, m.Outputs)
	if err != nil {
		return nil, err
	}
	filters, err := fetchAll(loader, m.Filters)
	if err != nil {
		return nil, err
	}

	return Compose(reg, Document{
		Name:     m.Name,
		Decoders: decoders,
		Rules:    rules,
		Outputs:  outputs,
		Filters:  filters,
	})
}

func fetchAll(loader AssetLoader, names []string) ([]asset.Document, error) {
	docs := make([]asset.Document, 0, len(names))
	for _, n := range names {
		d, err := loader.Get(n)
		if err != nil {
			return nil, fmt.Errorf("policy: load asset %q: %w", n, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
