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
// Package filetable implements file operations (C11): add/update/delete a
// tracked file while keeping the cache store, dependency graph, and
// special-files index consistent with each other.
package filetable

import (
	"strings"
	"sync"

	"warlock.dev/warlock/internal/depgraph"
	"warlock.dev/warlock/internal/filerecord"
	"warlock.dev/warlock/internal/pathutil"
	"warlock.dev/warlock/internal/specialfiles"
)

// Table owns every tracked file record plus the derived graph and
// special-files index.
type Table struct {
	mu      sync.Mutex
	records map[string]*filerecord.Record
	graph   *depgraph.Graph
	special *specialfiles.Index
	svc     *filerecord.Services

	// graphMu serializes mutation of graph and special, which are not
	// themselves safe for concurrent writers. Startup processes files in
	// bounded concurrent groups, so every touch of these two collaborators
	// goes through this lock.
	graphMu sync.Mutex
}

// New returns an empty table bound to svc for reading/transpiling/caching.
func New(svc *filerecord.Services) *Table {
	return &Table{
		records: make(map[string]*filerecord.Record),
		graph:   depgraph.New(),
		special: specialfiles.New(),
		svc:     svc,
	}
}

func (t *Table) Graph() *depgraph.Graph       { return t.graph }
func (t *Table) Special() *specialfiles.Index { return t.special }

// Get returns the record for a project-relative path, if tracked.
func (t *Table) Get(relativePath string) (*filerecord.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[relativePath]
	return rec, ok
}

// All returns a snapshot of every tracked record.
func (t *Table) All() []*filerecord.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*filerecord.Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	return out
}

// AddFile instantiates a record for relativePath, adds it to the table
// before parsing (so recursive dependency discovery sees it), parses it,
// recursively adds every still-unknown dependency, then completes it.
func (t *Table) AddFile(relativePath string) (*filerecord.Record, error) {
	abs := pathutil.ToAbsolute(t.svc.ProjectRoot, relativePath)
	rec := filerecord.New(abs, relativePath)

	t.mu.Lock()
	t.records[relativePath] = rec
	t.mu.Unlock()

	if err := rec.Parse(t.svc); err != nil {
		return rec, err
	}
	if rec.State == filerecord.StateDeleted {
		return rec, nil
	}

	for _, dep := range rec.Dependencies {
		t.mu.Lock()
		_, known := t.records[dep]
		t.mu.Unlock()
		if !known {
			if _, err := t.AddFile(dep); err != nil {
				return rec, err
			}
		}
	}

	if err := rec.Complete(t.svc, filerecord.DefaultProcessOptions()); err != nil {
		return rec, err
	}

	t.wireGraphAndIndex(relativePath, rec)
	return rec, nil
}

// UpdateFile re-processes an already-tracked file, or adds it if unknown.
// An update whose source is byte-identical after whitespace trim to the
// current record is dropped. Returns whether anything changed.
func (t *Table) UpdateFile(relativePath string) (bool, error) {
	t.mu.Lock()
	rec, ok := t.records[relativePath]
	t.mu.Unlock()
	if !ok {
		_, err := t.AddFile(relativePath)
		return err == nil, err
	}

	newContent, err := t.svc.FS.ReadFile(rec.AbsolutePath)
	if err == nil && strings.TrimSpace(string(newContent)) == strings.TrimSpace(string(rec.Source)) {
		return false, nil
	}

	changed, err := rec.Process(t.svc, filerecord.DefaultProcessOptions())
	if err != nil {
		return false, err
	}
	if rec.State == filerecord.StateDeleted {
		t.removeInternal(relativePath, rec)
		return true, nil
	}

	for _, dep := range rec.Dependencies {
		t.mu.Lock()
		_, known := t.records[dep]
		t.mu.Unlock()
		if !known {
			if _, err := t.AddFile(dep); err != nil {
				return changed, err
			}
		}
	}

	t.wireGraphAndIndex(relativePath, rec)
	return changed, nil
}

// TrackAndProcess registers an already-constructed record (typically
// restored from a manifest entry, with Hash/Transpiled/ImportsRewritten
// pre-populated so Process's fast path can apply) and runs it through
// Process, wiring the graph and special-files index on success.
func (t *Table) TrackAndProcess(rec *filerecord.Record) (bool, error) {
	t.mu.Lock()
	t.records[rec.RelativePath] = rec
	t.mu.Unlock()

	changed, err := rec.Process(t.svc, filerecord.DefaultProcessOptions())
	if err != nil {
		return changed, err
	}
	if rec.State == filerecord.StateDeleted {
		t.removeInternal(rec.RelativePath, rec)
		return changed, nil
	}

	for _, dep := range rec.Dependencies {
		t.mu.Lock()
		_, known := t.records[dep]
		t.mu.Unlock()
		if !known {
			if _, err := t.AddFile(dep); err != nil {
				return changed, err
			}
		}
	}

	t.wireGraphAndIndex(rec.RelativePath, rec)
	return changed, nil
}

// DeleteFile unlinks the cache artifact, removes the node from the graph
// and special-files index, and returns the former dependents so the
// caller can fire a synthetic ready event for each.
func (t *Table) DeleteFile(relativePath string) []string {
	t.mu.Lock()
	rec, ok := t.records[relativePath]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return t.removeInternal(relativePath, rec)
}

func (t *Table) removeInternal(relativePath string, rec *filerecord.Record) []string {
	t.graphMu.Lock()
	dependents := t.graph.GetDependents(relativePath)
	t.graph.RemoveNode(relativePath)
	t.special.Remove(relativePath)
	t.graphMu.Unlock()

	_ = t.svc.Cache.Remove(rec.CacheName)
	rec.State = filerecord.StateDeleted

	t.mu.Lock()
	delete(t.records, relativePath)
	t.mu.Unlock()

	return dependents
}

func (t *Table) wireGraphAndIndex(relativePath string, rec *filerecord.Record) {
	t.graphMu.Lock()
	defer t.graphMu.Unlock()
	t.graph.UpdateFile(relativePath, rec.Dependencies)
	t.special.Update(relativePath)
}

// UpdateDependents refreshes every record's Dependents field from the
// graph, run at batch end.
func (t *Table) UpdateDependents() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.graphMu.Lock()
	defer t.graphMu.Unlock()
	for path, rec := range t.records {
		rec.Dependents = t.graph.GetDependents(path)
	}
}
