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
// Package cachestore manages the on-disk cache directory (C6): one
// rewritten artifact per source file, its sidecar source map, and the
// persisted manifest describing every tracked file.
package cachestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"warlock.dev/warlock/internal/fileops"
	"warlock.dev/warlock/internal/importscan"
)

const ManifestVersion = "1.0.0"

// ManifestFileEntry is one file's record inside the persisted manifest.
type ManifestFileEntry struct {
	AbsolutePath string   `json:"absolutePath"`
	RelativePath string   `json:"relativePath"`
	Hash         string   `json:"hash"`
	LastModified int64    `json:"lastModified"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Version      int      `json:"version"`
	Type         string   `json:"type"`
	Layer        string   `json:"layer"`
	CachePath    string   `json:"cachePath"`
}

// ManifestStats holds the manifest's global counters.
type ManifestStats struct {
	TotalFiles        int `json:"totalFiles"`
	TotalDependencies int `json:"totalDependencies"`
}

// Manifest is the persisted .warlock/manifest.json document.
type Manifest struct {
	Version       string                       `json:"version"`
	LastBuildTime int64                        `json:"lastBuildTime"`
	Stats         ManifestStats                `json:"stats"`
	Files         map[string]ManifestFileEntry `json:"files"`
}

// NewManifest returns an empty manifest with the current version stamp.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Files:   make(map[string]ManifestFileEntry),
	}
}

// Recompute refreshes Stats from the current Files map.
func (m *Manifest) Recompute() {
	totalDeps := 0
	for _, f := range m.Files {
		totalDeps += len(f.Dependencies)
	}
	m.Stats = ManifestStats{TotalFiles: len(m.Files), TotalDependencies: totalDeps}
}

// Store owns the cache directory layout under <project>/.warlock/.
type Store struct {
	root        string // project root
	fs          fileops.FileSystem
	lru         *lru.Cache[string, string]
	exportCache *lru.Cache[string, importscan.ExportInfo]
}

// New creates a Store rooted at project, with in-memory LRU fronts for
// artifact reads and export-surface analyses, both sized to hold
// artifactCacheSize entries.
func New(project string, fs fileops.FileSystem, artifactCacheSize int) (*Store, error) {
	c, err := lru.New[string, string](artifactCacheSize)
	if err != nil {
		return nil, fmt.Errorf("cachestore: %w", err)
	}
	exportCache, err := lru.New[string, importscan.ExportInfo](artifactCacheSize)
	if err != nil {
		return nil, fmt.Errorf("cachestore: %w", err)
	}
	return &Store{root: project, fs: fs, lru: c, exportCache: exportCache}, nil
}

// ExportInfo returns the cached export-surface analysis for
// relativePath, if one has been stored.
func (s *Store) ExportInfo(relativePath string) (importscan.ExportInfo, bool) {
	return s.exportCache.Get(relativePath)
}

// SetExportInfo caches the export-surface analysis for relativePath.
func (s *Store) SetExportInfo(relativePath string, info importscan.ExportInfo) {
	s.exportCache.Add(relativePath, info)
}

// ClearExportInfo invalidates the cached export-surface analysis for
// relativePath, forcing the next lookup to re-analyze the file.
func (s *Store) ClearExportInfo(relativePath string) {
	s.exportCache.Remove(relativePath)
}

func (s *Store) Dir() string          { return filepath.Join(s.root, ".warlock") }
func (s *Store) CacheDir() string     { return filepath.Join(s.Dir(), "cache") }
func (s *Store) TypingsDir() string   { return filepath.Join(s.Dir(), "typings") }
func (s *Store) ManifestPath() string { return filepath.Join(s.Dir(), "manifest.json") }

func (s *Store) artifactPath(cacheName string) string { return filepath.Join(s.CacheDir(), cacheName) }
func (s *Store) mapPath(cacheName string) string       { return s.artifactPath(cacheName) + ".map" }

// RecreateCacheDir wipes and recreates the cache directory, used when no
// manifest is present at startup.
func (s *Store) RecreateCacheDir() error {
	_ = os.RemoveAll(s.CacheDir())
	if err := s.fs.MkdirAll(s.CacheDir(), 0o755); err != nil {
		return err
	}
	return s.fs.MkdirAll(s.TypingsDir(), 0o755)
}

// WriteArtifact persists the rewritten artifact for cacheName and updates
// the in-memory front cache.
func (s *Store) WriteArtifact(cacheName, code string) error {
	if err := s.fs.MkdirAll(s.CacheDir(), 0o755); err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.artifactPath(cacheName), []byte(code), 0o644); err != nil {
		return err
	}
	s.lru.Add(cacheName, code)
	return nil
}

// WriteSourceMap persists the sidecar source map, when present.
func (s *Store) WriteSourceMap(cacheName, mapJSON string) error {
	if mapJSON == "" {
		return nil
	}
	return s.fs.WriteFile(s.mapPath(cacheName), []byte(mapJSON), 0o644)
}

// ReadArtifact returns the artifact's current contents, consulting the
// in-memory front cache before the filesystem.
func (s *Store) ReadArtifact(cacheName string) (string, bool, error) {
	if code, ok := s.lru.Get(cacheName); ok {
		return code, true, nil
	}
	data, err := s.fs.ReadFile(s.artifactPath(cacheName))
	if err != nil {
		if fileops.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	s.lru.Add(cacheName, string(data))
	return string(data), true, nil
}

// Remove unlinks an artifact and its sidecar map, used on file delete.
func (s *Store) Remove(cacheName string) error {
	s.lru.Remove(cacheName)
	_ = s.fs.Remove(s.artifactPath(cacheName))
	_ = s.fs.Remove(s.mapPath(cacheName))
	return nil
}

// LoadManifest reads and parses the manifest. A missing or corrupt
// manifest is treated as "no manifest": a fresh, empty Manifest is
// returned with ok=false rather than an error.
func (s *Store) LoadManifest() (*Manifest, bool) {
	data, err := s.fs.ReadFile(s.ManifestPath())
	if err != nil {
		return NewManifest(), false
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return NewManifest(), false
	}
	if m.Files == nil {
		m.Files = make(map[string]ManifestFileEntry)
	}
	return &m, true
}

// SaveManifest persists the manifest atomically: serialize fully, write to
// a temp file in the same directory, then rename over the target.
func (s *Store) SaveManifest(m *Manifest) error {
	m.Recompute()
	m.LastBuildTime = nowUnixMilli()

	if err := s.fs.MkdirAll(s.Dir(), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.ManifestPath() + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.ManifestPath())
}

// nowUnixMilli is a seam so tests can avoid depending on wall-clock time
// indirectly through manifest comparisons; production always uses the
// real clock.
var nowUnixMilli = func() int64 { return time.Now().UnixMilli() }
