package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.wazuh.dev/engine/internal/engine"
)

func TestParseRouteSpec(t *testing.T) {
	rs, err := engine.ParseRouteSpec("default:10:filter/f1/0:policy.default.0")
	require.NoError(t, err)
	require.Equal(t, engine.RouteSpec{Name: "default", Priority: 10, Filter: "filter/f1/0", Policy: "policy.default.0"}, rs)
}

func TestParseRouteSpecAllowsEmptyFilter(t *testing.T) {
	rs, err := engine.ParseRouteSpec("default:10::policy.default.0")
	require.NoError(t, err)
	require.Empty(t, rs.Filter)
}

func TestParseRouteSpecRejectsMalformed(t *testing.T) {
	_, err := engine.ParseRouteSpec("default:ten::policy.default.0")
	require.Error(t, err)

	_, err = engine.ParseRouteSpec("onlyThreeFields:1:x")
	require.Error(t, err)
}
