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
// Package pathutil normalizes paths between absolute filesystem locations
// and project-relative identifiers, and derives the deterministic cache
// name used by the cache store.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ProbeExtensions are tried in order when an import specifier omits one.
var ProbeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

var tsExt = regexp.MustCompile(`\.(ts|tsx)$`)

// ToSlash normalizes a path to use forward slashes, matching the
// project-relative identifier convention used throughout the file table.
func ToSlash(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// ToRelative converts an absolute path into a project-relative, slash
// separated identifier. Returns an error if absPath escapes root.
func ToRelative(root, absPath string) (string, error) {
	cleanRoot := filepath.Clean(root)
	cleanPath := filepath.Clean(absPath)

	rel, err := filepath.Rel(cleanRoot, cleanPath)
	if err != nil {
		return "", fmt.Errorf("pathutil: compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("pathutil: %q is outside project root %q", absPath, root)
	}
	return ToSlash(rel), nil
}

// ToAbsolute resolves a project-relative identifier against root.
func ToAbsolute(root, relPath string) string {
	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath)
	}
	return filepath.Join(root, filepath.FromSlash(relPath))
}

// CacheName derives the deterministic flat cache filename from a
// project-relative path: slashes become dashes, .ts/.tsx becomes .js.
func CacheName(relPath string) string {
	flat := strings.ReplaceAll(relPath, "/", "-")
	return tsExt.ReplaceAllString(flat, ".js")
}

// IsRelativeSpecifier reports whether an import specifier is resolved
// relative to the importer (starts with "." or "/"), as opposed to a bare
// package specifier or alias.
func IsRelativeSpecifier(spec string) bool {
	return strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/")
}

// ResolveWithExtensions resolves baseDir+specifier to an existing file on
// disk by trying ProbeExtensions, then <resolved>/index.<ext> for each
// extension, in order. exists is an injectable probe for testability.
func ResolveWithExtensions(baseDir, specifier string, exists func(string) bool) (string, bool) {
	if exists == nil {
		exists = fileExists
	}
	candidate := filepath.Join(baseDir, filepath.FromSlash(specifier))

	if hasKnownExt(candidate) && exists(candidate) {
		return candidate, true
	}
	for _, ext := range ProbeExtensions {
		withExt := candidate + ext
		if exists(withExt) {
			return withExt, true
		}
	}
	for _, ext := range ProbeExtensions {
		indexed := filepath.Join(candidate, "index"+ext)
		if exists(indexed) {
			return indexed, true
		}
	}
	return "", false
}

func hasKnownExt(p string) bool {
	ext := filepath.Ext(p)
	for _, known := range ProbeExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FindProjectRoot searches upward from startDir for any of markers, in
// order, returning the first directory containing one. This mirrors the
// project-root auto-detection a CLI performs before the orchestrator runs.
func FindProjectRoot(startDir string, markers []string) (string, bool) {
	dir := startDir
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
