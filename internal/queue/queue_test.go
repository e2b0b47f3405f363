package queue_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.wazuh.dev/engine/internal/enginerr"
	"go.wazuh.dev/engine/internal/event"
	"go.wazuh.dev/engine/internal/queue"
)

func TestPushPopRoundTrip(t *testing.T) {
	q := queue.New(queue.Config{Capacity: 4, FloodAttempts: 1, FloodSleep: time.Millisecond})
	doc := event.New([]byte(`{"a":1}`))
	require.NoError(t, q.Push(doc))

	got, ok := q.Pop(context.Background())
	require.True(t, ok)
	require.Equal(t, doc, got)
}

func TestPushFloodsWhenFull(t *testing.T) {
	dir := t.TempDir()
	floodFile := filepath.Join(dir, "flood.jsonl")
	q := queue.New(queue.Config{Capacity: 1, FloodFile: floodFile, FloodAttempts: 1, FloodSleep: time.Millisecond})

	require.NoError(t, q.Push(event.New([]byte(`{"a":1}`))))

	err := q.Push(event.New([]byte(`{"a":2}`)))
	require.Error(t, err)
	var flood *enginerr.QueueFlood
	require.ErrorAs(t, err, &flood)

	data, err := os.ReadFile(floodFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `"a":2`)
}

func TestPopBlocksUntilContextDone(t *testing.T) {
	q := queue.New(queue.Config{Capacity: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	require.False(t, ok)
}

func TestReplayFloodFile(t *testing.T) {
	dir := t.TempDir()
	floodFile := filepath.Join(dir, "flood.jsonl")
	require.NoError(t, os.WriteFile(floodFile, []byte("{\"a\":1}\n{\"a\":2}\n"), 0o644))

	var pushed []string
	n, err := queue.ReplayFloodFile(floodFile, func(d *event.Document) error {
		pushed = append(pushed, string(d.Bytes()))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, pushed, 2)
}
