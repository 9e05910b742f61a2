/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package watch implements the filesystem watcher and event batcher
// (C10): it watches the project tree and the root env file, debounces raw
// fsnotify events into three pending sets, and flushes them in
// adds-then-changes-then-deletes order.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce matches the spec's default event debounce window.
const DefaultDebounce = 150 * time.Millisecond

// DefaultStabilityWindow matches the spec's default file-stability window.
const DefaultStabilityWindow = 100 * time.Millisecond

// DefaultExclude matches spec.md §6's watch-configuration defaults.
var DefaultExclude = []string{
	"**/node_modules/**",
	"**/dist/**",
	"**/.warlock/**",
	"**/.git/**",
}

// Batch is the set of changes one debounce flush produced, in the order
// the reload executor must process them.
type Batch struct {
	Added   []string
	Changed []string
	Deleted []string
}

// Options configures a Watcher.
type Options struct {
	Root     string
	EnvFile  string // watched in addition to Root; may be empty
	Include  []string
	Exclude  []string
	Debounce time.Duration
}

// Watcher observes the project source tree and emits debounced batches.
type Watcher struct {
	opts    Options
	fsw     *fsnotify.Watcher
	batches chan Batch
	done    chan struct{}

	mu      sync.Mutex
	added   map[string]bool
	changed map[string]bool
	deleted map[string]bool
	timer   *time.Timer

	knownPaths map[string]bool // tracks add-vs-change classification
}

// New creates a Watcher rooted at opts.Root and begins watching
// immediately; call Start to begin emitting batches.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Exclude) == 0 {
		opts.Exclude = DefaultExclude
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		opts:       opts,
		fsw:        fsw,
		batches:    make(chan Batch, 16),
		done:       make(chan struct{}),
		added:      make(map[string]bool),
		changed:    make(map[string]bool),
		deleted:    make(map[string]bool),
		knownPaths: make(map[string]bool),
	}

	if err := w.addTree(opts.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	if opts.EnvFile != "" {
		_ = fsw.Add(opts.EnvFile)
	}

	return w, nil
}

func (w *Watcher) addTree(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || p == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr == nil && w.isExcluded(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func (w *Watcher) isExcluded(relSlash string) bool {
	for _, pattern := range w.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, relSlash); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) isIncluded(relSlash string) bool {
	if len(w.opts.Include) == 0 {
		return true
	}
	for _, pattern := range w.opts.Include {
		if ok, _ := doublestar.Match(pattern, relSlash); ok {
			return true
		}
	}
	return false
}

// Batches returns the channel of debounced, ordered batches.
func (w *Watcher) Batches() <-chan Batch { return w.batches }

// Start begins processing raw fsnotify events in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Close stops the watcher and releases OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.opts.Root, event.Name)
	if err != nil {
		return
	}
	relSlash := filepath.ToSlash(rel)
	if w.isExcluded(relSlash) || !w.isIncluded(relSlash) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0:
		delete(w.added, relSlash)
		delete(w.changed, relSlash)
		w.deleted[relSlash] = true
		delete(w.knownPaths, relSlash)
	case event.Op&fsnotify.Create != 0:
		if w.knownPaths[relSlash] {
			w.changed[relSlash] = true
		} else {
			w.added[relSlash] = true
			w.knownPaths[relSlash] = true
		}
		delete(w.deleted, relSlash)
	case event.Op&fsnotify.Write != 0:
		if w.knownPaths[relSlash] {
			w.changed[relSlash] = true
		} else {
			w.added[relSlash] = true
			w.knownPaths[relSlash] = true
		}
	default:
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return
	default:
	}

	if len(w.added) == 0 && len(w.changed) == 0 && len(w.deleted) == 0 {
		w.mu.Unlock()
		return
	}

	batch := Batch{
		Added:   keysOf(w.added),
		Changed: keysOf(w.changed),
		Deleted: keysOf(w.deleted),
	}
	w.added = make(map[string]bool)
	w.changed = make(map[string]bool)
	w.deleted = make(map[string]bool)
	w.mu.Unlock()

	select {
	case w.batches <- batch:
	case <-w.done:
	}
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
