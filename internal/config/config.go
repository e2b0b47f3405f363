// Package config defines the engine's configuration surface: a flat
// Options struct with an AddFlags method bound directly to a cobra
// command's flag set, plus Complete/Validate lifecycle methods.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options carries the engine's tunables, plus the NATS URL backing
// the KVDB collaborator and the optional ClickHouse DSN for the trace
// archive sink.
type Options struct {
	ServerThreads int // uv-style pool size, 1-1024

	EventSocket     string
	EventQueueTasks int

	APISocket     string
	APIQueueTasks int
	APITimeout    time.Duration

	StorePath string
	KVDBPath  string

	RouterThreads int
	QueueSize     int

	QueueFloodFile     string
	QueueFloodAttempts int
	QueueFloodSleep    time.Duration

	// Policy is the initial route 4-tuple "name:priority:filter:policy".
	Policy         string
	ForceRouterArg bool

	// NATSURL backs the KVDB collaborator (JetStream KV buckets).
	NATSURL      string
	NATSTLS      bool
	NATSCertFile string
	NATSKeyFile  string
	NATSCAFile   string

	// ClickHouseDSN, when non-empty, enables the optional trace
	// archive sink; empty disables it.
	ClickHouseDSN   string
	ClickHouseTable string

	WDBSocket string

	// MetricsAddress, when non-empty, serves /metrics over HTTP (the
	// engine's other two endpoints are unix sockets; Prometheus expects
	// a TCP scrape target).
	MetricsAddress string
}

// NewOptions returns an Options populated with conservative,
// production-safe defaults.
func NewOptions() *Options {
	return &Options{
		ServerThreads:      4,
		EventSocket:        "/run/engine/event.sock",
		EventQueueTasks:    1000,
		APISocket:          "/run/engine/api.sock",
		APIQueueTasks:      100,
		APITimeout:         5 * time.Second,
		StorePath:          "/var/lib/engine/store",
		KVDBPath:           "/var/lib/engine/kvdb",
		RouterThreads:      4,
		QueueSize:          10_000,
		QueueFloodFile:     "/var/lib/engine/flood.jsonl",
		QueueFloodAttempts: 3,
		QueueFloodSleep:    100 * time.Microsecond,
		WDBSocket:          "/run/engine/wdb.sock",
		ClickHouseTable:    "engine_traces",
		MetricsAddress:     ":9090",
	}
}

// AddFlags binds every option to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.ServerThreads, "server-threads", o.ServerThreads, "event-loop worker pool size (1-1024)")
	fs.StringVar(&o.EventSocket, "event-socket", o.EventSocket, "unix domain datagram socket path for the event endpoint")
	fs.IntVar(&o.EventQueueTasks, "event-queue-tasks", o.EventQueueTasks, "task queue depth for the event endpoint")
	fs.StringVar(&o.APISocket, "api-socket", o.APISocket, "unix domain stream socket path for the API endpoint")
	fs.IntVar(&o.APIQueueTasks, "api-queue-tasks", o.APIQueueTasks, "task queue depth for the API endpoint")
	fs.DurationVar(&o.APITimeout, "api-timeout", o.APITimeout, "per-request timeout for the API endpoint")
	fs.StringVar(&o.StorePath, "store-path", o.StorePath, "filesystem root of the asset catalog")
	fs.StringVar(&o.KVDBPath, "kvdb-path", o.KVDBPath, "on-disk location recorded for the KVDB collaborator")
	fs.IntVar(&o.RouterThreads, "router-threads", o.RouterThreads, "router worker pool size")
	fs.IntVar(&o.QueueSize, "queue-size", o.QueueSize, "bounded event queue capacity")
	fs.StringVar(&o.QueueFloodFile, "queue-flood-file", o.QueueFloodFile, "append-only spill file for dropped events")
	fs.IntVar(&o.QueueFloodAttempts, "queue-flood-attempts", o.QueueFloodAttempts, "push retries before spilling to the flood file")
	fs.DurationVar(&o.QueueFloodSleep, "queue-flood-sleep", o.QueueFloodSleep, "sleep between push retries")
	fs.StringVar(&o.Policy, "policy", o.Policy, "initial route as name:priority:filter:policy")
	fs.BoolVar(&o.ForceRouterArg, "force-router-arg", o.ForceRouterArg, "replace the route table with --policy at startup")
	fs.StringVar(&o.NATSURL, "nats-url", o.NATSURL, "NATS URL backing the KVDB collaborator (JetStream KV)")
	fs.BoolVar(&o.NATSTLS, "nats-tls", o.NATSTLS, "enable TLS for the NATS connection")
	fs.StringVar(&o.NATSCertFile, "nats-cert-file", o.NATSCertFile, "NATS client certificate")
	fs.StringVar(&o.NATSKeyFile, "nats-key-file", o.NATSKeyFile, "NATS client key")
	fs.StringVar(&o.NATSCAFile, "nats-ca-file", o.NATSCAFile, "NATS CA certificate")
	fs.StringVar(&o.ClickHouseDSN, "clickhouse-dsn", o.ClickHouseDSN, "ClickHouse DSN for the optional trace archive sink (empty disables it)")
	fs.StringVar(&o.ClickHouseTable, "clickhouse-table", o.ClickHouseTable, "ClickHouse table for the trace archive sink")
	fs.StringVar(&o.WDBSocket, "wdb-socket", o.WDBSocket, "unix domain stream socket path wdb_update dials")
	fs.StringVar(&o.MetricsAddress, "metrics-address", o.MetricsAddress, "TCP address to serve /metrics on (empty disables it)")
}

// Complete fills in anything that depends on other fields having been
// parsed. Nothing derives from other fields today.
func (o *Options) Complete() error { return nil }

// Validate enforces the documented bounds on every option.
func (o *Options) Validate() error {
	var errs []error
	if o.ServerThreads < 1 || o.ServerThreads > 1024 {
		errs = append(errs, fmt.Errorf("--server-threads must be in [1, 1024], got %d", o.ServerThreads))
	}
	if o.RouterThreads < 1 {
		errs = append(errs, fmt.Errorf("--router-threads must be >= 1, got %d", o.RouterThreads))
	}
	if o.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("--queue-size must be >= 1, got %d", o.QueueSize))
	}
	if o.EventSocket == "" {
		errs = append(errs, fmt.Errorf("--event-socket is required"))
	}
	if o.APISocket == "" {
		errs = append(errs, fmt.Errorf("--api-socket is required"))
	}
	if o.StorePath == "" {
		errs = append(errs, fmt.Errorf("--store-path is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}
