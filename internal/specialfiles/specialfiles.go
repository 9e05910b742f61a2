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
// Package specialfiles categorizes tracked files into the five groups the
// reload executor re-enters directly: config, main, route, event, locale.
package specialfiles

import "github.com/bmatcuk/doublestar/v4"

// Kind identifies which special-file group, if any, a path belongs to.
type Kind string

const (
	KindConfig Kind = "config"
	KindMain   Kind = "main"
	KindRoute  Kind = "route"
	KindEvent  Kind = "event"
	KindLocale Kind = "locale"
	KindNone   Kind = ""
)

var patterns = []struct {
	kind    Kind
	pattern string
}{
	{KindConfig, "src/config/**/*.{ts,tsx}"},
	{KindMain, "**/main.{ts,tsx}"},
	{KindRoute, "**/routes.{ts,tsx}"},
	{KindEvent, "**/events/**"},
	{KindLocale, "**/utils/locales.{ts,tsx}"},
}

// Classify returns the special-file kind for a project-relative path, or
// KindNone if it matches none of the five patterns. First match wins,
// in the order config, main, route, event, locale.
func Classify(relativePath string) Kind {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p.pattern, relativePath); ok {
			return p.kind
		}
	}
	return KindNone
}

// Index tracks the current membership of each special-file group.
type Index struct {
	byKind map[Kind]map[string]bool
}

// New returns an empty index.
func New() *Index {
	idx := &Index{byKind: make(map[Kind]map[string]bool)}
	for _, k := range []Kind{KindConfig, KindMain, KindRoute, KindEvent, KindLocale} {
		idx.byKind[k] = make(map[string]bool)
	}
	return idx
}

// Update re-evaluates a path's classification, moving it between groups
// (or out of all of them) as needed.
func (idx *Index) Update(relativePath string) Kind {
	idx.Remove(relativePath)
	kind := Classify(relativePath)
	if kind != KindNone {
		idx.byKind[kind][relativePath] = true
	}
	return kind
}

// Remove drops a path from every group, used on file delete.
func (idx *Index) Remove(relativePath string) {
	for _, set := range idx.byKind {
		delete(set, relativePath)
	}
}

// Paths returns every tracked path currently classified as kind.
func (idx *Index) Paths(kind Kind) []string {
	set := idx.byKind[kind]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Contains reports whether relativePath is currently classified as kind.
func (idx *Index) Contains(kind Kind, relativePath string) bool {
	return idx.byKind[kind][relativePath]
}
