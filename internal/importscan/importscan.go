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
// Package importscan implements the import parser (C3): given a source
// file's text, it extracts every runtime (non type-only) import/export
// specifier and resolves it to an absolute project path, or leaves it
// unresolved when it names an external package.
package importscan

import (
	"path/filepath"
	"regexp"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
	"warlock.dev/warlock/internal/pathutil"
	"warlock.dev/warlock/internal/queries"
	"warlock.dev/warlock/internal/sourceconfig"
)

// Exists probes for file existence; injectable so resolution is testable
// against an in-memory project layout.
type Exists func(path string) bool

// Options configures resolution for a single Parse call.
type Options struct {
	// Config supplies path aliases; may be nil.
	Config *sourceconfig.Config
	Exists Exists
}

// specifierRef is one raw specifier found in source, before resolution.
type specifierRef struct {
	specifier string
	typeOnly  bool
}

// Parse extracts runtime import/export specifiers from source and resolves
// each to an absolute path. The returned map's keys are the exact specifier
// strings as written in source; values are absolute paths for specifiers
// that resolve inside the project, omitted for externals. A ".d.ts" file
// always yields an empty, non-nil map.
func Parse(source []byte, absolutePath string, opts Options) (map[string]string, error) {
	result := make(map[string]string)
	if strings.HasSuffix(absolutePath, ".d.ts") {
		return result, nil
	}

	refs, err := extractPrimary(source)
	if err != nil {
		refs = extractFallback(source)
	}

	dir := filepath.Dir(absolutePath)
	exists := opts.Exists
	if exists == nil {
		exists = defaultExists
	}

	for _, ref := range refs {
		if ref.typeOnly {
			continue
		}
		if resolved, ok := resolveSpecifier(dir, ref.specifier, opts.Config, exists); ok {
			result[ref.specifier] = resolved
		}
	}
	return result, nil
}

func resolveSpecifier(importerDir, specifier string, cfg *sourceconfig.Config, exists Exists) (string, bool) {
	if pathutil.IsRelativeSpecifier(specifier) {
		return pathutil.ResolveWithExtensions(importerDir, specifier, exists)
	}
	if cfg != nil {
		if candidates, ok := cfg.ResolveAlias(specifier); ok {
			for _, base := range candidates {
				if resolved, ok := pathutil.ResolveWithExtensions(filepath.Dir(base), "./"+filepath.Base(base), exists); ok {
					return resolved, true
				}
			}
		}
	}
	// Bare specifier with no matching alias: external package, not tracked.
	return "", false
}

func defaultExists(path string) bool {
	return false
}

// extractPrimary walks the tree-sitter syntax tree for import/export/dynamic
// import nodes. It returns an error (triggering the regex fallback) if the
// source fails to parse at all.
func extractPrimary(source []byte) ([]specifierRef, error) {
	isTSX := looksLikeTSX(source)
	parser := queries.ParserFor(isTSX)
	defer queries.Release(parser, isTSX)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errParseFailed
	}
	defer tree.Close()

	var refs []specifierRef
	var walk func(node *ts.Node)
	walk = func(node *ts.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "import_statement":
			if ref, ok := parseImportStatementText(node.Utf8Text(source)); ok {
				refs = append(refs, ref...)
			}
			return
		case "export_statement":
			if ref, ok := parseExportStatementText(node.Utf8Text(source)); ok {
				refs = append(refs, ref...)
			}
		case "call_expression":
			if ref, ok := parseDynamicImportText(node.Utf8Text(source)); ok {
				refs = append(refs, ref...)
			}
		}
		count := int(node.ChildCount())
		for i := 0; i < count; i++ {
			walk(node.Child(uint(i)))
		}
	}
	walk(tree.RootNode())
	return refs, nil
}

func looksLikeTSX(source []byte) bool {
	return strings.Contains(string(source), "</") || strings.Contains(string(source), "/>")
}

var errParseFailed = errParseFailedType{}

type errParseFailedType struct{}

func (errParseFailedType) Error() string { return "importscan: tree-sitter parse failed" }

// extractFallback applies the regex-based extractor over the whole source
// text, used when the primary parser cannot produce a tree at all.
func extractFallback(source []byte) []specifierRef {
	var refs []specifierRef
	for _, line := range splitStatements(string(source)) {
		if ref, ok := parseImportStatementText(line); ok {
			refs = append(refs, ref...)
			continue
		}
		if ref, ok := parseExportStatementText(line); ok {
			refs = append(refs, ref...)
			continue
		}
	}
	for _, m := range reDynamicImport.FindAllStringSubmatch(string(source), -1) {
		refs = append(refs, specifierRef{specifier: m[2]})
	}
	return refs
}

// splitStatements is a crude statement splitter good enough for the
// regex-based fallback: the source is cut at every semicolon and at every
// newline that begins a line starting with import/export, and every
// resulting segment that starts with import/export is treated as one
// statement. Other newlines are folded into spaces, so a statement may
// span several lines.
func splitStatements(src string) []string {
	src = reStatementStart.ReplaceAllString(src, ";\n$1")
	normalized := strings.ReplaceAll(src, "\n", " ")
	var out []string
	for _, part := range strings.Split(normalized, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "import") || strings.HasPrefix(part, "export") {
			out = append(out, part)
		}
	}
	return out
}

var (
	reImportFrom    = regexp.MustCompile(`^import\s+(type\s+)?(.+?)\s+from\s*(['"])(.*?)['"]`)
	reImportBare    = regexp.MustCompile(`^import\s*(['"])(.*?)['"]`)
	reDynamicImport = regexp.MustCompile(`import\s*\(\s*(['"])(.*?)['"]\s*\)`)
	reExportFrom    = regexp.MustCompile(`^export\s+(type\s+)?(\*(?:\s+as\s+\w+)?|\{[^}]*\})\s+from\s*(['"])(.*?)['"]`)
	reStatementStart = regexp.MustCompile(`\n[ \t]*(import|export)\b`)
)

func parseImportStatementText(text string) ([]specifierRef, bool) {
	text = strings.TrimSpace(text)
	if m := reImportFrom.FindStringSubmatch(text); m != nil {
		typeKeyword, clause, specifier := m[1], m[2], m[4]
		if typeKeyword != "" || isTypeOnlyClause(clause) {
			return nil, true
		}
		return []specifierRef{{specifier: specifier}}, true
	}
	if m := reImportBare.FindStringSubmatch(text); m != nil {
		return []specifierRef{{specifier: m[2]}}, true
	}
	return nil, false
}

func parseExportStatementText(text string) ([]specifierRef, bool) {
	text = strings.TrimSpace(text)
	if m := reExportFrom.FindStringSubmatch(text); m != nil {
		typeKeyword, clause, specifier := m[1], m[2], m[4]
		if typeKeyword != "" || isTypeOnlyClause(clause) {
			return nil, true
		}
		return []specifierRef{{specifier: specifier}}, true
	}
	return nil, false
}

func parseDynamicImportText(text string) ([]specifierRef, bool) {
	m := reDynamicImport.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return []specifierRef{{specifier: m[2]}}, true
}

// isTypeOnlyClause reports whether every binding in an import/export
// clause is individually prefixed with "type " — spec.md's "mixed
// specifiers are retained" rule means only a uniformly type-only clause
// is elided.
func isTypeOnlyClause(clause string) bool {
	clause = strings.TrimSpace(clause)
	if !strings.HasPrefix(clause, "{") || !strings.HasSuffix(clause, "}") {
		return false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(clause, "{"), "}")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return false
	}
	for _, spec := range strings.Split(inner, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if !strings.HasPrefix(spec, "type ") {
			return false
		}
	}
	return true
}
