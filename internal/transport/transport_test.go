package transport

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.wazuh.dev/engine/internal/event"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, []byte("hello")))
	got, err := readFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

type fakePusher struct {
	pushed chan *event.Document
}

func (f *fakePusher) Push(doc *event.Document) error {
	f.pushed <- doc
	return nil
}

func TestEventEndpointPushesParsedEvent(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "event.sock")
	pusher := &fakePusher{pushed: make(chan *event.Document, 1)}
	ep, err := ListenEvent(sock, pusher)
	require.NoError(t, err)
	defer ep.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: sock, Net: "unixgram"})
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(`{"a":1}`))
	require.NoError(t, err)

	select {
	case doc := <-pusher.pushed:
		require.Contains(t, string(doc.Bytes()), `"a":1`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pushed event")
	}
}

func TestAPIEndpointEchoesFramedRequest(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "api.sock")
	ep, err := ListenAPI(sock, func(req []byte) []byte {
		return append([]byte("echo:"), req...)
	})
	require.NoError(t, err)
	defer ep.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)

	conn, err := net.DialTimeout("unix", sock, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, writeFrame(conn, []byte("ping")))
	resp, err := readFrame(conn)
	require.NoError(t, err)
	require.Equal(t, "echo:ping", string(resp))
}

func TestWDBClientQueriesFramedServer(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "wdb.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, err := readFrame(conn)
		if err != nil {
			return
		}
		if string(req) == "agent get 001" {
			writeFrame(conn, []byte("ok "))
		} else {
			writeFrame(conn, []byte("NotOk"))
		}
	}()

	client := &WDBClient{SocketPath: sock}
	reply, err := client.Query("agent get 001", time.Second)
	require.NoError(t, err)
	require.Equal(t, "ok ", reply)
}
