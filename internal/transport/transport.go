// Package transport implements the local-domain-socket endpoints:
// a datagram event endpoint, a length-framed stream API endpoint, and
// the wdb_update helper's client side of that same framing. Raw
// net.UnixConn/net.UnixListener carry the protocol; a 4-byte length
// prefix needs nothing more than encoding/binary.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"k8s.io/klog/v2"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/metrics"
)

const maxFrameSize = 64 * 1024 * 1024

// EventPusher accepts an event for routing; *queue.Queue implements it
// through its Push method.
type EventPusher interface {
	Push(doc *event.Document) error
}

// EventEndpoint is the datagram unix socket event endpoint; one
// datagram carries one raw agent event.
type EventEndpoint struct {
	conn   *net.UnixConn
	pusher EventPusher
}

// ListenEvent binds a datagram unix socket at path.
func ListenEvent(path string, pusher EventPusher) (*EventEndpoint, error) {
	addr, err := net.ResolveUnixAddr("unixgram", path)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve event socket %q: %w", path, err)
	}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen event socket %q: %w", path, err)
	}
	return &EventEndpoint{conn: conn, pusher: pusher}, nil
}

// Close closes the underlying socket.
func (e *EventEndpoint) Close() error { return e.conn.Close() }

// Serve reads datagrams until ctx is done or the socket closes. Each
// datagram becomes one event document (event.New does not validate
// the bytes) and is pushed via the EventPusher; a push failure is
// logged and the endpoint keeps serving.
func (e *EventEndpoint) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		e.conn.Close()
	}()

	buf := make([]byte, maxFrameSize)
	for {
		n, err := e.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			klog.ErrorS(err, "transport: event endpoint read failed")
			return
		}
		raw := append([]byte(nil), buf[:n]...)
		doc := event.New(raw)
		if err := e.pusher.Push(doc); err != nil {
			klog.V(2).InfoS("transport: event dropped", "err", err)
		}
	}
}

// APIHandler answers one length-framed API request with a response.
type APIHandler func(request []byte) []byte

// APIEndpoint is the stream unix socket API endpoint: little-endian
// 32-bit length prefix, one request elicits one response on the same
// connection.
type APIEndpoint struct {
	listener *net.UnixListener
	handler  APIHandler
}

// ListenAPI binds a stream unix socket at path.
func ListenAPI(path string, handler APIHandler) (*APIEndpoint, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve API socket %q: %w", path, err)
	}
	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen API socket %q: %w", path, err)
	}
	return &APIEndpoint{listener: l, handler: handler}, nil
}

// Close closes the listener.
func (a *APIEndpoint) Close() error { return a.listener.Close() }

// Serve accepts connections until ctx is done or the listener closes.
func (a *APIEndpoint) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		a.listener.Close()
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			klog.ErrorS(err, "transport: API endpoint accept failed")
			return
		}
		go a.serveConn(conn)
	}
}

func (a *APIEndpoint) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		req, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				klog.V(3).InfoS("transport: API connection read failed", "err", err)
			}
			return
		}
		resp := a.handler(req)
		if err := writeFrame(conn, resp); err != nil {
			klog.V(3).InfoS("transport: API connection write failed", "err", err)
			return
		}
	}
}

// readFrame reads one little-endian 32-bit length prefix followed by
// that many bytes.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("transport: frame size %d exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// WDBClient dials a fixed stream unix socket and speaks the same
// length-prefixed framing as the API endpoint, implementing
// helper.WDBClient for the wdb_update helper.
type WDBClient struct {
	SocketPath string
}

// Query implements helper.WDBClient: dial, write the request frame,
// read the response frame, and return it as a string.
func (c *WDBClient) Query(query string, timeout time.Duration) (string, error) {
	start := time.Now()
	defer func() { metrics.WDBCallDuration.Observe(time.Since(start).Seconds()) }()

	conn, err := net.DialTimeout("unix", c.SocketPath, timeout)
	if err != nil {
		return "", fmt.Errorf("transport: dial wdb socket %q: %w", c.SocketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if err := writeFrame(conn, []byte(query)); err != nil {
		return "", fmt.Errorf("transport: write wdb request: %w", err)
	}
	reply, err := readFrame(conn)
	if err != nil {
		return "", fmt.Errorf("transport: read wdb reply: %w", err)
	}
	return string(reply), nil
}
