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
// Package importhelper implements the dynamic-import helper (C13) from the
// Go side of the process boundary: the module-version registry the
// rewriter's emitted __import() calls are keyed against, plus the literal
// runtime script that installs __import/__clearModuleVersion/
// __clearAllModuleVersions as process-globals inside the ECMAScript host.
//
// The in-flight promise bookkeeping that makes cyclic imports safe (steps
// 3, 5, 7, 8 of the contract) has to live inside the host's own event
// loop — a Go-side round trip cannot preserve a JavaScript Promise's
// identity across a re-entrant import() call. The Go Registry instead owns
// what the orchestrator itself needs to reason about: the version
// timestamp used for cache-busting, and the notifications that travel over
// the live-reload transport telling the host to bump a module's version.
package importhelper

import (
	"fmt"
	"sync"
	"time"

	"warlock.dev/warlock/internal/jsruntime"
)

// Registry is the process-wide module-version map.
type Registry struct {
	mu       sync.Mutex
	versions map[string]int64
	now      func() int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		versions: make(map[string]int64),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Version returns the current version for cacheName, installing now() if
// absent.
func (r *Registry) Version(cacheName string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[cacheName]
	if !ok {
		v = r.now()
		r.versions[cacheName] = v
	}
	return v
}

// ClearModuleVersion removes cacheName's version so the next Version call
// installs a fresh timestamp, forcing the host to bypass its module cache
// on next import.
func (r *Registry) ClearModuleVersion(cacheName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, cacheName)
}

// SetClock overrides the timestamp source, for deterministic tests.
func (r *Registry) SetClock(now func() int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// ClearAllModuleVersions resets every entry.
func (r *Registry) ClearAllModuleVersions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions = make(map[string]int64)
}

// ArtifactURL builds the cache-busted URL the host's native dynamic import
// resolves, given the base URL under which the cache directory is served.
func (r *Registry) ArtifactURL(baseURL, cacheName string) string {
	return fmt.Sprintf("%s/%s?t=%d", trimTrailingSlash(baseURL), cacheName, r.Version(cacheName))
}

func trimTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}

// RuntimeSource returns the JS source installed as a process-global in the
// ECMAScript host. baseURL is the path the cache directory is served
// under; wsURL, if non-empty, is the live-reload WebSocket endpoint the
// runtime listens on for "clear-module" notifications. The source itself
// lives in internal/jsruntime; this just forwards to it so callers only
// need to import this package.
func RuntimeSource(baseURL, wsURL string) string {
	return jsruntime.Render(baseURL, wsURL)
}
