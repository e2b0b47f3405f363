package kvdb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.wazuh.dev/engine/internal/kvdb"
)

func TestOpenWithEmptyURLIsDisabled(t *testing.T) {
	store, err := kvdb.Open(kvdb.Config{})
	require.NoError(t, err)
	require.Nil(t, store)
}

func TestOpenRejectsBadTLSConfig(t *testing.T) {
	_, err := kvdb.Open(kvdb.Config{
		URL:         "nats://127.0.0.1:4222",
		TLSEnabled:  true,
		TLSCertFile: "/nonexistent/cert.pem",
		TLSKeyFile:  "/nonexistent/key.pem",
	})
	require.Error(t, err)
}
