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
// Package connector implements the connector registry (C16): long-running
// external subsystems (database pools, caches, message brokers) with a
// start/restart/shutdown lifecycle gated by which source paths changed.
package connector

import (
	"context"
	"path/filepath"
	"sort"
)

// Connector is the collaborator contract (external interface only; the
// core never looks inside a connector's implementation).
type Connector interface {
	Name() string
	Priority() int
	WatchedFiles() []string
	Start(ctx context.Context) error
	Restart(ctx context.Context) error
	Shutdown(ctx context.Context) error
	IsActive() bool
}

// ShouldRestart reports whether any changedPath matches one of c's watched
// file patterns (exact paths or glob-style with "*").
func ShouldRestart(c Connector, changedPaths []string) bool {
	for _, pattern := range c.WatchedFiles() {
		for _, changed := range changedPaths {
			if pattern == changed {
				return true
			}
			if ok, _ := filepath.Match(pattern, changed); ok {
				return true
			}
		}
	}
	return false
}

// Registry holds every registered connector, ordered by priority.
type Registry struct {
	connectors []Connector
}

// New returns an empty registry.
func New() *Registry { return &Registry{} }

// Register adds a connector. Priority order is recomputed lazily by
// Ordered.
func (r *Registry) Register(c Connector) {
	r.connectors = append(r.connectors, c)
}

// Ordered returns every registered connector sorted by ascending priority
// (smaller starts earlier, shuts down later).
func (r *Registry) Ordered() []Connector {
	out := make([]Connector, len(r.connectors))
	copy(out, r.connectors)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() < out[j].Priority() })
	return out
}

// StartAll starts every connector in priority order, stopping at the
// first failure.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, c := range r.Ordered() {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ShutdownAll shuts down every connector in reverse priority order. A
// failing connector is skipped, not fatal, so the rest still shut down.
func (r *Registry) ShutdownAll(ctx context.Context) []error {
	ordered := r.Ordered()
	var errs []error
	for i := len(ordered) - 1; i >= 0; i-- {
		if err := ordered[i].Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// RestartAffected restarts every connector whose watched files intersect
// changedPaths, in priority order, returning the ones that failed.
func (r *Registry) RestartAffected(ctx context.Context, changedPaths []string) []error {
	var errs []error
	for _, c := range r.Ordered() {
		if !ShouldRestart(c, changedPaths) {
			continue
		}
		if err := c.Restart(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
