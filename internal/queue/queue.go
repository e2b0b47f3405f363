// Package queue implements the bounded MPMC event queue: push with a
// flood-spill retry budget, blocking pop, and producer/consumer
// prometheus metrics.
package queue

import (
	"bufio"
	"context"
	"os"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"go.wazuh.dev/engine/internal/enginerr"
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/metrics"
)

// Config holds the queue's capacity and flood-spill policy.
type Config struct {
	Capacity      int
	FloodFile     string
	FloodAttempts int
	FloodSleep    time.Duration
}

// Queue is a bounded multi-producer multi-consumer queue of events.
// The channel buffer provides the MPMC and bounding properties
// directly; Push layers the flood-spill retry policy on top.
type Queue struct {
	ch  chan *event.Document
	cfg Config
	mu  sync.Mutex // serializes flood-file appends
}

// New creates a Queue per cfg.
func New(cfg Config) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	return &Queue{ch: make(chan *event.Document, cfg.Capacity), cfg: cfg}
}

// TryPush attempts one non-blocking enqueue, reporting whether it
// succeeded without retrying or spilling.
func (q *Queue) TryPush(doc *event.Document) bool {
	select {
	case q.ch <- doc:
		metrics.QueuePushTotal.WithLabelValues("ok").Inc()
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return true
	default:
		return false
	}
}

// Push enqueues doc, retrying up to cfg.FloodAttempts times with
// cfg.FloodSleep between tries.
// On retry-budget exhaustion the event is appended to the flood file
// and Push returns *enginerr.QueueFlood: not fatal, but the event is
// dropped from the live queue. A nil return means doc was enqueued.
func (q *Queue) Push(doc *event.Document) error {
	if q.TryPush(doc) {
		return nil
	}
	for attempt := 1; attempt <= q.cfg.FloodAttempts; attempt++ {
		time.Sleep(q.cfg.FloodSleep)
		if q.TryPush(doc) {
			return nil
		}
		metrics.QueuePushTotal.WithLabelValues("retried").Inc()
	}

	metrics.QueuePushTotal.WithLabelValues("flooded").Inc()
	if err := q.spill(doc); err != nil {
		klog.ErrorS(err, "queue: flood spill failed, event lost", "floodFile", q.cfg.FloodFile)
		return err
	}
	return &enginerr.QueueFlood{FloodFile: q.cfg.FloodFile}
}

// Pop blocks until an event is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (*event.Document, bool) {
	select {
	case doc := <-q.ch:
		metrics.QueuePopTotal.Inc()
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return doc, true
	case <-ctx.Done():
		return nil, false
	}
}

// spill appends doc's JSON to the flood file as one line. The file is
// append-only with line-level framing, one JSON-encoded event per
// line.
func (q *Queue) spill(doc *event.Document) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.OpenFile(q.cfg.FloodFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(doc.Bytes()); err != nil {
		return err
	}
	_, err = f.Write([]byte("\n"))
	return err
}

// ReplayFloodFile re-feeds every line of a flood file through push.
// It is an operator-invoked, out-of-band recovery path, not run
// automatically by the engine.
func ReplayFloodFile(path string, push func(*event.Document) error) (replayed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		doc := event.New(append([]byte(nil), line...))
		if err := push(doc); err != nil {
			return replayed, err
		}
		replayed++
	}
	return replayed, scanner.Err()
}
