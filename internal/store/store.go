// Package store implements the filesystem asset catalog:
// documents named "schema.namespace.version" map to
// <store_path>/schema/namespace/version.yaml, read through a cache
// that an fsnotify watcher invalidates on file change.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"go.wazuh.dev/engine/internal/asset"
	"go.wazuh.dev/engine/internal/enginerr"
	"go.wazuh.dev/engine/internal/metrics"
)

// Store is a read-through cache over a directory tree of asset YAML
// documents, keyed by dotted catalog name.
type Store struct {
	root string

	mu    sync.RWMutex
	cache map[string]asset.Document

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Store rooted at root. root need not exist yet; Get
// fails with *enginerr.NotFound until the backing file appears.
func New(root string) *Store {
	return &Store{root: root, cache: make(map[string]asset.Document)}
}

// pathFor maps a dotted catalog name to its file path.
func (s *Store) pathFor(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("store: name %q must have the form schema.namespace.version", name)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("store: name %q has an empty component", name)
		}
	}
	rel := filepath.Join(parts[0], parts[1], parts[2]+".yaml")
	return filepath.Join(s.root, rel), nil
}

// Get returns the parsed document for name, from cache when present.
func (s *Store) Get(name string) (asset.Document, error) {
	s.mu.RLock()
	doc, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}

	path, err := s.pathFor(name)
	if err != nil {
		return asset.Document{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return asset.Document{}, &enginerr.NotFound{Kind: "asset", Name: name}
		}
		return asset.Document{}, err
	}
	doc, err = asset.Parse(raw)
	if err != nil {
		return asset.Document{}, fmt.Errorf("store: parse %q: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = doc
	s.mu.Unlock()
	return doc, nil
}

// GetRaw returns the unparsed bytes backing name, bypassing the asset
// cache. Used for catalog documents that are not asset documents, such
// as policy manifests (internal/policy.ParseManifest).
func (s *Store) GetRaw(name string) ([]byte, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &enginerr.NotFound{Kind: "asset", Name: name}
		}
		return nil, err
	}
	return raw, nil
}

// Invalidate drops name from the cache, forcing the next Get to
// re-read and re-parse its file.
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// WatchAndInvalidate starts an fsnotify watcher over root (recursively,
// schema and namespace subdirectories included) and invalidates the
// cache entry for any changed .yaml file until Close is called. No
// debounce: every Write/Create/Remove/Rename on a .yaml file
// invalidates immediately, since the cache miss cost is one parse.
func (s *Store) WatchAndInvalidate() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addRecursive(w, s.root); err != nil {
		w.Close()
		return err
	}

	s.watcher = w
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.watchLoop()
	return nil
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func (s *Store) watchLoop() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			klog.ErrorS(err, "store: watcher error")
			metrics.StoreReloadsTotal.WithLabelValues("error").Inc()
		}
	}
}

func (s *Store) handleEvent(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".yaml") {
		return
	}
	name, err := s.nameFor(ev.Name)
	if err != nil {
		return
	}
	s.Invalidate(name)
	metrics.StoreReloadsTotal.WithLabelValues("invalidated").Inc()
	klog.V(4).InfoS("store: invalidated cache entry", "name", name, "op", ev.Op.String())
}

// nameFor is the inverse of pathFor.
func (s *Store) nameFor(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, ".yaml")
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("store: path %q is not schema/namespace/version.yaml", path)
	}
	return strings.Join(parts, "."), nil
}

// Close stops the watcher, if running.
func (s *Store) Close() {
	if s.watcher == nil {
		return
	}
	close(s.stopCh)
	select {
	case <-s.doneCh:
	case <-time.After(time.Second):
	}
	s.watcher.Close()
}
