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
// Package rewrite implements the import rewriter (C5): it turns every
// project-internal static import/export-from in transpiled ECMAScript into
// an awaited call to the dynamic-import helper, keyed by the target's
// deterministic cache name.
package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"warlock.dev/warlock/internal/importscan"
	"warlock.dev/warlock/internal/queries"
)

// Target describes one resolved import/export specifier from the
// rewriter's point of view.
type Target struct {
	CacheName string // the dependency's cache.js name; empty if External.
	External  bool
}

// Resolve maps a specifier exactly as it appears in source to its Target.
// Unresolved project-internal specifiers must be absent from the map
// entirely — that is what triggers the "unresolved imports" error.
type Resolve func(specifier string) (Target, bool)

// ExportsOf returns the export surface of the file a specifier resolves
// to, used to expand "export * from". ok is false when analysis is
// unavailable, in which case the rewriter falls back to a static
// "export * from" against the cache artifact.
type ExportsOf func(specifier string) (importscan.ExportInfo, bool)

// UnresolvedImportsError is returned when the rewriter finds a
// project-internal specifier with no matching Target.
type UnresolvedImportsError struct {
	Importer   string
	Specifiers []string
}

func (e *UnresolvedImportsError) Error() string {
	return fmt.Sprintf("rewrite: unresolved imports in %s: %s", e.Importer, strings.Join(e.Specifiers, ", "))
}

// Rewrite transforms transpiled ESM source. importer is used only for
// error messages.
func Rewrite(source []byte, importer string, resolve Resolve, exportsOf ExportsOf) ([]byte, error) {
	stmts, err := findStatements(source)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return source, nil
	}

	var unresolved []string
	replacements := make([]replacement, 0, len(stmts))

	for _, stmt := range stmts {
		text := strings.TrimSpace(stmt.text)
		out, specifiers, handled, err := rewriteStatement(text, resolve, exportsOf)
		if err != nil {
			return nil, err
		}
		if !handled {
			continue
		}
		for _, spec := range specifiers {
			if _, ok := resolve(spec); !ok && !isExternalLike(spec) {
				unresolved = append(unresolved, spec)
			}
		}
		replacements = append(replacements, replacement{start: stmt.start, end: stmt.end, text: out})
	}

	if len(unresolved) > 0 {
		return nil, &UnresolvedImportsError{Importer: importer, Specifiers: unresolved}
	}

	result := make([]byte, len(source))
	copy(result, source)
	for i := len(replacements) - 1; i >= 0; i-- {
		r := replacements[i]
		before := result[:r.start]
		after := result[r.end:]
		merged := make([]byte, 0, len(before)+len(r.text)+len(after))
		merged = append(merged, before...)
		merged = append(merged, []byte(r.text)...)
		merged = append(merged, after...)
		result = merged
	}
	return result, nil
}

func isExternalLike(spec string) bool {
	return !strings.HasPrefix(spec, ".") && !strings.HasPrefix(spec, "/")
}

// shouldSkip reports whether a specifier should be left untouched rather
// than rewritten: either the resolver explicitly marked it external, or it
// has no resolver entry and looks like a bare/external specifier (as
// opposed to an unresolved project-internal one, which must still be
// rewritten so the caller's outer unresolved-check can flag it).
func shouldSkip(specifier string, target Target, ok bool) bool {
	if ok {
		return target.External
	}
	return isExternalLike(specifier)
}

type statement struct {
	text  string
	start uint
	end   uint
}

type replacement struct {
	start, end uint
	text       string
}

// findStatements locates top-level import/export-from statements via the
// syntax tree so replacements can be applied by exact byte range, the same
// reverse-order-replace technique used for import-attribute rewriting.
func findStatements(source []byte) ([]statement, error) {
	parser := queries.GetTypeScriptParser()
	defer queries.PutTypeScriptParser(parser)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("rewrite: failed to parse transpiled source")
	}
	defer tree.Close()

	var stmts []statement
	root := tree.RootNode()
	count := int(root.ChildCount())
	for i := 0; i < count; i++ {
		child := root.Child(uint(i))
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_statement", "export_statement":
			stmts = append(stmts, statement{
				text:  child.Utf8Text(source),
				start: child.StartByte(),
				end:   child.EndByte(),
			})
		}
	}
	return stmts, nil
}

var (
	reSideEffect  = regexp.MustCompile(`^import\s*(['"])(.*?)['"]\s*;?$`)
	reNamespace   = regexp.MustCompile(`^import\s*\*\s*as\s+(\w+)\s+from\s*(['"])(.*?)['"]`)
	reDefaultPlus = regexp.MustCompile(`^import\s+(\w+)\s*,\s*\{([^}]*)\}\s*from\s*(['"])(.*?)['"]`)
	reDefaultOnly = regexp.MustCompile(`^import\s+(\w+)\s+from\s*(['"])(.*?)['"]`)
	reNamedOnly   = regexp.MustCompile(`^import\s*\{([^}]*)\}\s*from\s*(['"])(.*?)['"]`)

	reStarFrom  = regexp.MustCompile(`^export\s*\*\s*from\s*(['"])(.*?)['"]`)
	reNamedFrom = regexp.MustCompile(`^export\s*\{([^}]*)\}\s*from\s*(['"])(.*?)['"]`)
)

func rewriteStatement(stmt string, resolve Resolve, exportsOf ExportsOf) (string, []string, bool, error) {
	switch {
	case reDefaultPlus.MatchString(stmt):
		m := reDefaultPlus.FindStringSubmatch(stmt)
		localDefault, namedClause, specifier := m[1], m[2], m[4]
		target, ok := targetOf(specifier, resolve)
		if shouldSkip(specifier, target, ok) {
			return stmt, nil, false, nil
		}
		cache := cacheRelative(target.CacheName)
		out := fmt.Sprintf(
			"const __m=await __import(%q); const %s=__m?.default ?? __m; const %s = __m;",
			cache, localDefault, destructureClause(namedClause),
		)
		return out, []string{specifier}, true, nil

	case reNamespace.MatchString(stmt):
		m := reNamespace.FindStringSubmatch(stmt)
		local, specifier := m[1], m[3]
		target, ok := targetOf(specifier, resolve)
		if shouldSkip(specifier, target, ok) {
			return stmt, nil, false, nil
		}
		out := fmt.Sprintf("const %s = await __import(%q);", local, cacheRelative(target.CacheName))
		return out, []string{specifier}, true, nil

	case reDefaultOnly.MatchString(stmt):
		m := reDefaultOnly.FindStringSubmatch(stmt)
		local, specifier := m[1], m[3]
		target, ok := targetOf(specifier, resolve)
		if shouldSkip(specifier, target, ok) {
			return stmt, nil, false, nil
		}
		out := fmt.Sprintf(
			"const __m=await __import(%q); const %s = __m?.default ?? __m;",
			cacheRelative(target.CacheName), local,
		)
		return out, []string{specifier}, true, nil

	case reNamedOnly.MatchString(stmt):
		m := reNamedOnly.FindStringSubmatch(stmt)
		namedClause, specifier := m[1], m[3]
		target, ok := targetOf(specifier, resolve)
		if shouldSkip(specifier, target, ok) {
			return stmt, nil, false, nil
		}
		out := fmt.Sprintf("const %s = await __import(%q);", destructureClause(namedClause), cacheRelative(target.CacheName))
		return out, []string{specifier}, true, nil

	case reSideEffect.MatchString(stmt):
		m := reSideEffect.FindStringSubmatch(stmt)
		specifier := m[2]
		target, ok := targetOf(specifier, resolve)
		if shouldSkip(specifier, target, ok) {
			return stmt, nil, false, nil
		}
		out := fmt.Sprintf("await __import(%q);", cacheRelative(target.CacheName))
		return out, []string{specifier}, true, nil

	case reStarFrom.MatchString(stmt):
		m := reStarFrom.FindStringSubmatch(stmt)
		specifier := m[2]
		target, ok := targetOf(specifier, resolve)
		if shouldSkip(specifier, target, ok) {
			return stmt, nil, false, nil
		}
		cache := cacheRelative(target.CacheName)
		if exportsOf != nil {
			if info, ok := exportsOf(specifier); ok {
				var b strings.Builder
				fmt.Fprintf(&b, "const __r=await __import(%q);", cache)
				for _, name := range info.NamedExports {
					fmt.Fprintf(&b, " export const %s=__r.%s;", name, name)
				}
				if info.HasDefaultExport {
					b.WriteString(" export default __r.default;")
				}
				return b.String(), []string{specifier}, true, nil
			}
		}
		return fmt.Sprintf("export * from %q;", cache), []string{specifier}, true, nil

	case reNamedFrom.MatchString(stmt):
		m := reNamedFrom.FindStringSubmatch(stmt)
		namedClause, specifier := m[1], m[2]
		target, ok := targetOf(specifier, resolve)
		if shouldSkip(specifier, target, ok) {
			return stmt, nil, false, nil
		}
		cache := cacheRelative(target.CacheName)
		var b strings.Builder
		fmt.Fprintf(&b, "const __m=await __import(%q);", cache)
		for _, entry := range strings.Split(namedClause, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" || strings.HasPrefix(entry, "type ") {
				continue
			}
			orig, local := entry, entry
			if idx := strings.Index(entry, " as "); idx >= 0 {
				orig = strings.TrimSpace(entry[:idx])
				local = strings.TrimSpace(entry[idx+len(" as "):])
			}
			fmt.Fprintf(&b, " export const %s=__m.%s;", local, orig)
		}
		return b.String(), []string{specifier}, true, nil
	}

	return stmt, nil, false, nil
}

func targetOf(specifier string, resolve Resolve) (Target, bool) {
	if resolve == nil {
		return Target{}, false
	}
	return resolve(specifier)
}

func cacheRelative(cacheName string) string {
	return "./" + cacheName
}

// destructureClause turns an import-clause brace body into a valid object
// destructuring pattern: "a" stays "a"; "a as b" becomes "a: b"; "type"
// entries (defensive — esbuild normally elides these already) are dropped.
func destructureClause(clause string) string {
	var kept []string
	for _, entry := range strings.Split(clause, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "type ") {
			continue
		}
		if idx := strings.Index(entry, " as "); idx >= 0 {
			key := strings.TrimSpace(entry[:idx])
			local := strings.TrimSpace(entry[idx+len(" as "):])
			kept = append(kept, fmt.Sprintf("%s: %s", key, local))
			continue
		}
		kept = append(kept, entry)
	}
	return "{ " + strings.Join(kept, ", ") + " }"
}
