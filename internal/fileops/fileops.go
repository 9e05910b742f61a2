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
// Package fileops provides the filesystem abstraction used throughout the
// core, plus the source-tree discovery walk the orchestrator runs at
// startup and the watcher reconciles against afterwards.
package fileops

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// FileSystem abstracts filesystem access so the orchestrator, cache store
// and watcher can be exercised against an in-memory fake in tests.
type FileSystem interface {
	WriteFile(name string, data []byte, perm fs.FileMode) error
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)
	Stat(name string) (fs.FileInfo, error)
	Exists(path string) bool
	Open(name string) (fs.File, error)
}

// IsNotExist reports whether err indicates a missing file, regardless of
// which FileSystem implementation produced it.
func IsNotExist(err error) bool {
	return os.IsNotExist(err) || errorsIs(err, fs.ErrNotExist)
}

func errorsIs(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// OSFileSystem implements FileSystem using the standard os package. This is
// the production implementation the orchestrator runs against.
type OSFileSystem struct{}

// NewOSFileSystem constructs the production filesystem.
func NewOSFileSystem() *OSFileSystem { return &OSFileSystem{} }

func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}
func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
func (OSFileSystem) Remove(name string) error             { return os.Remove(name) }
func (OSFileSystem) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
func (OSFileSystem) Open(name string) (fs.File, error) { return os.Open(name) }

// DefaultExclude matches spec.md §6's watch-configuration defaults.
var DefaultExclude = []string{
	"**/node_modules/**",
	"**/dist/**",
	"**/.warlock/**",
	"**/.git/**",
}

// Discover walks root and returns every project-relative, slash-separated
// path matching include and not matching exclude. Patterns are doublestar
// globs, matched against the path relative to root.
func Discover(root string, include, exclude []string) ([]string, error) {
	if len(exclude) == 0 {
		exclude = DefaultExclude
	}

	var found []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if matchesAny(exclude, rel+"/**") || matchesAny(exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(exclude, rel) {
			return nil
		}
		if len(include) > 0 && !matchesAny(include, rel) {
			return nil
		}
		found = append(found, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
