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
// Package moduleloader wraps the dynamic-import helper for special files
// (C14): it tracks which special files have been entered at least once,
// runs their cleanup hooks before a reload, and reports the cache-busted
// URL to re-enter after invalidation.
package moduleloader

import (
	"sync"

	"warlock.dev/warlock/internal/importhelper"
)

// Cleanup is the capability a loaded module or one of its exported values
// may expose. This is the "duck-typed cleanup hook" from the source,
// rephrased as an explicit capability lookup rather than reflection over
// arbitrary exports.
type Cleanup interface {
	Cleanup() error
}

// Loader tracks special-file load state on top of the shared
// module-version registry.
type Loader struct {
	registry *importhelper.Registry
	baseURL  string

	mu     sync.Mutex
	loaded map[string]bool
}

// New wraps registry for special-file loading, serving artifacts under
// baseURL.
func New(registry *importhelper.Registry, baseURL string) *Loader {
	return &Loader{
		registry: registry,
		baseURL:  baseURL,
		loaded:   make(map[string]bool),
	}
}

// IsLoaded reports whether cacheName has been entered at least once.
func (l *Loader) IsLoaded(cacheName string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[cacheName]
}

// MarkLoaded records that cacheName has been entered.
func (l *Loader) MarkLoaded(cacheName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded[cacheName] = true
}

// Unload drops load-tracking state for cacheName, used on delete.
func (l *Loader) Unload(cacheName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.loaded, cacheName)
}

// RunCleanup invokes handle's Cleanup hook if it implements the Cleanup
// capability. A handle that does not implement it is a no-op, matching the
// spec's capability-lookup design: no broader reflection is attempted.
func RunCleanup(handle any) error {
	if handle == nil {
		return nil
	}
	if c, ok := handle.(Cleanup); ok {
		return c.Cleanup()
	}
	return nil
}

// ReloadURL clears cacheName's version and returns the fresh cache-busted
// URL the host should re-enter the special file through.
func (l *Loader) ReloadURL(cacheName string) string {
	l.registry.ClearModuleVersion(cacheName)
	l.MarkLoaded(cacheName)
	return l.registry.ArtifactURL(l.baseURL, cacheName)
}
