package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"go.wazuh.dev/engine/internal/config"
)

func TestDefaultsValidate(t *testing.T) {
	o := config.NewOptions()
	require.NoError(t, o.Complete())
	require.NoError(t, o.Validate())
}

func TestAddFlagsOverridesDefaults(t *testing.T) {
	o := config.NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--router-threads=8", "--store-path=/tmp/store"}))
	require.Equal(t, 8, o.RouterThreads)
	require.Equal(t, "/tmp/store", o.StorePath)
}

func TestValidateRejectsOutOfBoundsThreads(t *testing.T) {
	o := config.NewOptions()
	o.ServerThreads = 0
	require.Error(t, o.Validate())

	o2 := config.NewOptions()
	o2.ServerThreads = 2000
	require.Error(t, o2.Validate())
}

func TestValidateRejectsMissingRequiredPaths(t *testing.T) {
	o := config.NewOptions()
	o.StorePath = ""
	require.Error(t, o.Validate())
}
