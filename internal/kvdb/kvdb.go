// Package kvdb implements the key-value database collaborator: one
// NATS JetStream key-value bucket per db name, opened lazily and
// cached, backing the kvdb_get/kvdb_match/kvdb_delete helpers.
package kvdb

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/nats-io/nats.go"
	"k8s.io/klog/v2"

	"go.wazuh.dev/engine/internal/metrics"
)

// Config mirrors the NATS connection fields of
// internal/config.Options (nats-url, nats-tls, ...).
type Config struct {
	URL         string
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("kvdb: load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("kvdb: read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("kvdb: parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// Store is a lazily-resolved, cached set of JetStream KV buckets, one
// per db name.
type Store struct {
	conn *nats.Conn
	js   nats.JetStreamContext

	mu      sync.Mutex
	buckets map[string]nats.KeyValue
}

// Open connects to NATS and returns a Store. Returns nil, nil if
// cfg.URL is empty (KVDB disabled).
func Open(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		klog.Info("kvdb: NATS URL not configured, KVDB helpers will fail at evaluation")
		return nil, nil
	}

	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				klog.ErrorS(err, "kvdb: NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			klog.InfoS("kvdb: NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	if cfg.TLSEnabled {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("kvdb: connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvdb: create JetStream context: %w", err)
	}

	return &Store{conn: conn, js: js, buckets: make(map[string]nats.KeyValue)}, nil
}

// Close closes the underlying NATS connection.
func (s *Store) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Store) bucket(db string) (nats.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kv, ok := s.buckets[db]; ok {
		return kv, nil
	}

	kv, err := s.js.KeyValue(db)
	if err == nats.ErrBucketNotFound {
		kv, err = s.js.CreateKeyValue(&nats.KeyValueConfig{Bucket: db})
	}
	if err != nil {
		return nil, fmt.Errorf("kvdb: open bucket %q: %w", db, err)
	}
	s.buckets[db] = kv
	return kv, nil
}

// Get implements helper.KVDBStore.
func (s *Store) Get(db, key string) (string, bool, error) {
	kv, err := s.bucket(db)
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("get", "error").Inc()
		return "", false, err
	}
	entry, err := kv.Get(key)
	if err == nats.ErrKeyNotFound {
		metrics.KVDBCallsTotal.WithLabelValues("get", "miss").Inc()
		return "", false, nil
	}
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("get", "error").Inc()
		return "", false, err
	}
	metrics.KVDBCallsTotal.WithLabelValues("get", "hit").Inc()
	return string(entry.Value()), true, nil
}

// Match implements helper.KVDBStore: pattern is a regular expression
// matched against every key in db.
func (s *Store) Match(db, pattern string) ([]string, bool, error) {
	kv, err := s.bucket(db)
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("match", "error").Inc()
		return nil, false, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("match", "error").Inc()
		return nil, false, fmt.Errorf("kvdb: compile match pattern %q: %w", pattern, err)
	}
	keys, err := kv.Keys()
	if err == nats.ErrNoKeysFound {
		metrics.KVDBCallsTotal.WithLabelValues("match", "miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("match", "error").Inc()
		return nil, false, err
	}

	var matched []string
	for _, k := range keys {
		if re.MatchString(k) {
			matched = append(matched, k)
		}
	}
	if len(matched) == 0 {
		metrics.KVDBCallsTotal.WithLabelValues("match", "miss").Inc()
		return nil, false, nil
	}
	metrics.KVDBCallsTotal.WithLabelValues("match", "hit").Inc()
	return matched, true, nil
}

// Exists reports whether key is present in db without reading its
// value.
func (s *Store) Exists(db, key string) (bool, error) {
	kv, err := s.bucket(db)
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("exists", "error").Inc()
		return false, err
	}
	_, err = kv.Get(key)
	if err == nats.ErrKeyNotFound {
		metrics.KVDBCallsTotal.WithLabelValues("exists", "miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("exists", "error").Inc()
		return false, err
	}
	metrics.KVDBCallsTotal.WithLabelValues("exists", "hit").Inc()
	return true, nil
}

// Delete implements helper.KVDBStore.
func (s *Store) Delete(db, key string) (bool, error) {
	kv, err := s.bucket(db)
	if err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("delete", "error").Inc()
		return false, err
	}
	if _, err := kv.Get(key); err == nats.ErrKeyNotFound {
		metrics.KVDBCallsTotal.WithLabelValues("delete", "miss").Inc()
		return false, nil
	}
	if err := kv.Delete(key); err != nil {
		metrics.KVDBCallsTotal.WithLabelValues("delete", "error").Inc()
		return false, err
	}
	metrics.KVDBCallsTotal.WithLabelValues("delete", "hit").Inc()
	return true, nil
}
