// Package router implements event dispatch: a mutable route table and
// a worker pool that dequeues events, finds the first
// matching route in priority order, and evaluates its policy
// expression.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/expr"
	"go.wazuh.dev/engine/internal/metrics"
	"go.wazuh.dev/engine/internal/queue"
)

// Loader resolves a named filter or policy asset into a compiled
// expression. AddRoute calls it on every call, for each name the route
// references; the router keeps no cache of compiled expressions, so
// adding a second route with the same filter or policy name compiles
// it again unless the Loader itself caches. Compilation errors surface
// synchronously from AddRoute.
type Loader interface {
	LoadFilter(name string) (*expr.Node, error)
	LoadPolicy(name string) (*expr.Node, error)
}

// Route is one entry of the route table.
type Route struct {
	Name       string
	Priority   int
	FilterName string
	PolicyName string

	filter *expr.Node // nil means "always match"
	policy *expr.Node
	seq    int // insertion order, tie-break for equal priority
}

// Router owns the route table and dispatches events from a queue
// across a fixed worker pool.
type Router struct {
	loader  Loader
	workers int

	mu      sync.Mutex // writer lock; readers go through the atomic snapshot
	table   atomic.Pointer[[]*Route]
	nextSeq int

	cancel context.CancelFunc
	wg     sync.WaitGroup

	archive func(routeName string, doc *event.Document, result expr.Result)
}

// SetArchiver installs a callback invoked after every dispatched
// evaluation, feeding the optional trace archive sink. nil disables
// archiving, the default.
func (r *Router) SetArchiver(fn func(routeName string, doc *event.Document, result expr.Result)) {
	r.archive = fn
}

// New creates a Router with an empty route table.
func New(loader Loader, workers int) *Router {
	r := &Router{loader: loader, workers: workers}
	empty := []*Route{}
	r.table.Store(&empty)
	return r
}

// AddRoute compiles filterName/policyName (if not already cached by
// the loader) and inserts the route, keeping the table sorted
// ascending by priority with ties broken by insertion order.
// Re-adding an existing name replaces the old entry; the new entry
// takes a fresh insertion position, after every other route of equal
// priority.
func (r *Router) AddRoute(name string, priority int, filterName, policyName string) error {
	var filterExpr *expr.Node
	if filterName != "" {
		fe, err := r.loader.LoadFilter(filterName)
		if err != nil {
			return fmt.Errorf("router: add route %q: load filter %q: %w", name, filterName, err)
		}
		filterExpr = fe
	}
	policyExpr, err := r.loader.LoadPolicy(policyName)
	if err != nil {
		return fmt.Errorf("router: add route %q: load policy %q: %w", name, policyName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.table.Load()
	next := make([]*Route, 0, len(old)+1)
	for _, rt := range old {
		if rt.Name != name {
			next = append(next, rt)
		}
	}
	r.nextSeq++
	next = append(next, &Route{
		Name: name, Priority: priority, FilterName: filterName, PolicyName: policyName,
		filter: filterExpr, policy: policyExpr, seq: r.nextSeq,
	})
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].Priority != next[j].Priority {
			return next[i].Priority < next[j].Priority
		}
		return next[i].seq < next[j].seq
	})
	r.table.Store(&next)
	return nil
}

// RemoveRoute deletes a route by name; a miss is a no-op.
func (r *Router) RemoveRoute(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := *r.table.Load()
	next := make([]*Route, 0, len(old))
	for _, rt := range old {
		if rt.Name != name {
			next = append(next, rt)
		}
	}
	r.table.Store(&next)
}

// Clear removes every route.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	empty := []*Route{}
	r.table.Store(&empty)
}

// GetRouteTable returns a snapshot of the route table; readers never
// block a writer or a dispatching worker.
func (r *Router) GetRouteTable() []*Route {
	t := *r.table.Load()
	out := make([]*Route, len(t))
	copy(out, t)
	return out
}

// FastEnqueueEvent wraps queue.Push for endpoint producers.
func (r *Router) FastEnqueueEvent(q *queue.Queue, doc *event.Document) error {
	return q.Push(doc)
}

// Run starts the worker pool draining q until ctx is done or Stop is
// called.
func (r *Router) Run(ctx context.Context, q *queue.Queue) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	metrics.RouterWorkers.Set(float64(r.workers))
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, q)
	}
}

// Stop cancels the workers' context and waits for them to exit.
// In-flight evaluations run to completion; events still waiting in the
// queue are not drained and stay unprocessed.
func (r *Router) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Router) worker(ctx context.Context, q *queue.Queue) {
	defer r.wg.Done()
	for {
		doc, ok := q.Pop(ctx)
		if !ok {
			return
		}
		r.dispatch(doc)
	}
}

// dispatch evaluates the route table in priority order against doc,
// stopping at the first route whose filter succeeds.
func (r *Router) dispatch(doc *event.Document) {
	table := *r.table.Load()
	for _, rt := range table {
		start := time.Now()
		if rt.filter != nil {
			if fr := expr.Eval(rt.filter, doc); !fr.OK {
				continue
			}
		}
		result := expr.Eval(rt.policy, doc)
		metrics.RouterEventsTotal.WithLabelValues(rt.Name).Inc()
		metrics.RouterEvalDuration.WithLabelValues(rt.Name).Observe(time.Since(start).Seconds())
		if r.archive != nil {
			r.archive(rt.Name, doc, result)
		}
		return
	}
	metrics.RouterEventsTotal.WithLabelValues("unmatched").Inc()
	klog.V(4).InfoS("router: no route matched, event dropped", "eventID", doc.ID())
}
