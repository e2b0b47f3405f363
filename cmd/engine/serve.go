package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"go.wazuh.dev/engine/internal/config"
	"go.wazuh.dev/engine/internal/engine"
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/helper"
	"go.wazuh.dev/engine/internal/kvdb"
	"go.wazuh.dev/engine/internal/queue"
	"go.wazuh.dev/engine/internal/registry"
	"go.wazuh.dev/engine/internal/router"
	"go.wazuh.dev/engine/internal/store"
	"go.wazuh.dev/engine/internal/trace"
	"go.wazuh.dev/engine/internal/transport"
)

// NewServeCommand creates the serve subcommand that starts the engine.
func NewServeCommand() *cobra.Command {
	opts := config.NewOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the event-processing engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return Run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	opts.AddFlags(flags)
	klog.InitFlags(nil)
	flags.AddGoFlagSet(flag.CommandLine)

	return cmd
}

// Run wires the collaborators together and blocks until ctx is done.
func Run(ctx context.Context, opts *config.Options) error {
	reg := registry.New()

	var kv *kvdb.Store
	if opts.NATSURL != "" {
		var err error
		kv, err = kvdb.Open(kvdb.Config{
			URL:         opts.NATSURL,
			TLSEnabled:  opts.NATSTLS,
			TLSCertFile: opts.NATSCertFile,
			TLSKeyFile:  opts.NATSKeyFile,
			TLSCAFile:   opts.NATSCAFile,
		})
		if err != nil {
			return fmt.Errorf("engine: open kvdb: %w", err)
		}
		if kv != nil {
			defer kv.Close()
		}
	}

	wdbClient := &transport.WDBClient{SocketPath: opts.WDBSocket}
	var kvCollab helper.KVDBStore
	if kv != nil {
		kvCollab = kv
	}
	helper.Configure(kvCollab, wdbClient)
	helper.RegisterAll(reg)

	assetStore := store.New(opts.StorePath)
	if err := assetStore.WatchAndInvalidate(); err != nil {
		klog.ErrorS(err, "engine: asset store hot reload disabled")
	} else {
		defer assetStore.Close()
	}

	var traceSink *trace.Sink
	if opts.ClickHouseDSN != "" {
		var err error
		traceSink, err = trace.Open(trace.Config{Address: opts.ClickHouseDSN, Table: opts.ClickHouseTable})
		if err != nil {
			klog.ErrorS(err, "engine: trace archive sink disabled")
		} else {
			defer traceSink.Close()
		}
	}

	loader := &engine.Loader{Reg: reg, Store: assetStore}
	r := router.New(loader, opts.RouterThreads)
	if traceSink != nil {
		r.SetArchiver(func(routeName string, doc *event.Document, result expr.Result) {
			if err := traceSink.Archive(ctx, routeName, doc, result.Trace, result.OK); err != nil {
				klog.V(2).InfoS("engine: trace archive failed", "err", err)
			}
		})
	}

	if opts.Policy != "" {
		rs, err := engine.ParseRouteSpec(opts.Policy)
		if err != nil {
			return err
		}
		if opts.ForceRouterArg {
			r.Clear()
		}
		if err := r.AddRoute(rs.Name, rs.Priority, rs.Filter, rs.Policy); err != nil {
			return fmt.Errorf("engine: add initial route: %w", err)
		}
	}

	q := queue.New(queue.Config{
		Capacity:      opts.QueueSize,
		FloodFile:     opts.QueueFloodFile,
		FloodAttempts: opts.QueueFloodAttempts,
		FloodSleep:    opts.QueueFloodSleep,
	})
	r.Run(ctx, q)
	defer r.Stop()

	eventEP, err := transport.ListenEvent(opts.EventSocket, q)
	if err != nil {
		return fmt.Errorf("engine: listen event socket: %w", err)
	}
	defer eventEP.Close()
	go eventEP.Serve(ctx)

	apiEP, err := transport.ListenAPI(opts.APISocket, apiHandler(r))
	if err != nil {
		return fmt.Errorf("engine: listen API socket: %w", err)
	}
	defer apiEP.Close()
	go apiEP.Serve(ctx)

	if opts.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: opts.MetricsAddress, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				klog.ErrorS(err, "engine: metrics server stopped")
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		klog.InfoS("engine: metrics available", "address", opts.MetricsAddress)
	}

	klog.InfoS("engine: started",
		"eventSocket", opts.EventSocket,
		"apiSocket", opts.APISocket,
		"storePath", opts.StorePath,
	)

	<-ctx.Done()
	return nil
}

// apiRequest is the JSON body of one API endpoint request.
type apiRequest struct {
	Op       string `json:"op"`
	Name     string `json:"name,omitempty"`
	Priority int    `json:"priority,omitempty"`
	Filter   string `json:"filter,omitempty"`
	Policy   string `json:"policy,omitempty"`
}

// apiHandler answers the API endpoint's route-table operations.
// Load-time errors (a bad asset, an orphan parent, an unresolved
// filter target) surface here as a structured error object.
func apiHandler(r *router.Router) transport.APIHandler {
	return func(request []byte) []byte {
		var req apiRequest
		if err := json.Unmarshal(request, &req); err != nil {
			return apiError(fmt.Sprintf("malformed request: %v", err))
		}
		switch req.Op {
		case "get_route_table":
			table := r.GetRouteTable()
			out := make([]map[string]any, 0, len(table))
			for _, rt := range table {
				out = append(out, map[string]any{
					"name":     rt.Name,
					"priority": rt.Priority,
					"filter":   rt.FilterName,
					"policy":   rt.PolicyName,
				})
			}
			return apiOK(out)
		case "add_route":
			if req.Name == "" || req.Policy == "" {
				return apiError("add_route requires name and policy")
			}
			if err := r.AddRoute(req.Name, req.Priority, req.Filter, req.Policy); err != nil {
				return apiError(err.Error())
			}
			return apiOK(nil)
		case "remove_route":
			if req.Name == "" {
				return apiError("remove_route requires name")
			}
			r.RemoveRoute(req.Name)
			return apiOK(nil)
		case "clear":
			r.Clear()
			return apiOK(nil)
		default:
			return apiError(fmt.Sprintf("unknown operation %q", req.Op))
		}
	}
}

func apiOK(data any) []byte {
	body, err := json.Marshal(map[string]any{"status": "ok", "data": data})
	if err != nil {
		return apiError("encode failed")
	}
	return body
}

func apiError(msg string) []byte {
	body, _ := json.Marshal(map[string]any{"status": "error", "error": msg})
	return body
}
