// Package trace implements the optional ClickHouse-backed trace
// archive: an observability sink for evaluated traces, not engine
// state. The router and policy composer work without it.
package trace

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"

	"go.wazuh.dev/engine/internal/event"
)

var tracer = otel.Tracer("engine-trace-archive")

// Config holds the ClickHouse connection parameters. The serve command
// sets only Address and Table from its flags; the other fields keep
// their zero values there.
type Config struct {
	Address     string
	Database    string
	Username    string
	Password    string
	Table       string
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string
}

// Sink archives one row per evaluated route per event.
type Sink struct {
	conn  driver.Conn
	table string
}

// Open connects to ClickHouse and verifies connectivity.
func Open(cfg Config) (*Sink, error) {
	options := &clickhouse.Options{
		Addr: []string{cfg.Address},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	}

	if cfg.TLSEnabled {
		tlsConfig, err := loadTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("trace: load TLS config: %w", err)
		}
		options.TLS = tlsConfig
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("trace: connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("trace: ping ClickHouse: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "engine_traces"
	}
	return &Sink{conn: conn, table: table}, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// Close closes the underlying connection.
func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Archive inserts one row recording a route's evaluation of doc, so
// trace strings can be inspected offline instead of only logged.
func (s *Sink) Archive(ctx context.Context, routeName string, doc *event.Document, trace string, ok bool) error {
	ctx, span := tracer.Start(ctx, "trace.archive",
		oteltrace.WithAttributes(
			attribute.String("route", routeName),
			attribute.String("event_id", doc.ID())))
	defer span.End()

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("trace: prepare batch: %w", err)
	}

	if err := batch.Append(time.Now(), doc.ID(), routeName, ok, string(doc.Bytes()), trace); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("trace: append row: %w", err)
	}

	if err := batch.Send(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("trace: send batch: %w", err)
	}
	klog.V(4).InfoS("trace: archived event", "eventID", doc.ID(), "route", routeName, "ok", ok)
	return nil
}
