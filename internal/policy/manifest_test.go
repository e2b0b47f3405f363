package policy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.wazuh.dev/engine/internal/asset"
	"go.wazuh.dev/engine/internal/helper"
	"go.wazuh.dev/engine/internal/policy"
	"go.wazuh.dev/engine/internal/registry"
)

type fakeAssetLoader map[string]asset.Document

func (f fakeAssetLoader) Get(name string) (asset.Document, error) {
	d, ok := f[name]
	if !ok {
		return asset.Document{}, assertNotFound(name)
	}
	return d, nil
}

type notFoundErr string

func (e notFoundErr) Error() string    { return "not found: " + string(e) }
func assertNotFound(name string) error { return notFoundErr(name) }

func TestParseManifest(t *testing.T) {
	m, err := policy.ParseManifest([]byte("name: default\ndecoders: [decoder/a/0]\nrules: [rule/r1/0]\n"))
	require.NoError(t, err)
	require.Equal(t, "default", m.Name)
	require.Equal(t, []string{"decoder/a/0"}, m.Decoders)
}

func TestParseManifestRequiresName(t *testing.T) {
	_, err := policy.ParseManifest([]byte("decoders: []\n"))
	require.Error(t, err)
}

func TestLoadManifestComposesFromLoader(t *testing.T) {
	loader := fakeAssetLoader{
		"decoder/a/0": {Name: "decoder/a/0", Type: asset.Decoder},
	}
	reg := registry.New()
	helper.RegisterAll(reg)

	m := policy.Manifest{Name: "default", Decoders: []string{"decoder/a/0"}}
	p, err := policy.LoadManifest(reg, loader, m)
	require.NoError(t, err)
	require.Equal(t, "default", p.Name)
	require.NotNil(t, p.Root)
}

func TestLoadManifestPropagatesMissingAsset(t *testing.T) {
	loader := fakeAssetLoader{}
	reg := registry.New()
	helper.RegisterAll(reg)

	m := policy.Manifest{Name: "default", Decoders: []string{"decoder/missing/0"}}
	_, err := policy.LoadManifest(reg, loader, m)
	require.Error(t, err)
}
