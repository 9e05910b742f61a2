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
package importscan

import (
	"regexp"
	"strings"
)

// ExportInfo is the export analyzer's result (§4.4): what a target file
// exports, used by the import rewriter to expand "export * from" without
// a second runtime resolution step.
type ExportInfo struct {
	NamedExports    []string
	HasDefaultExport bool
	ReExports       []string // specifiers of "export * from ..." found in the target itself
}

var (
	reNamedDecl   = regexp.MustCompile(`^export\s+(?:const|let|var|function\*?|class|enum)\s+([A-Za-z_$][\w$]*)`)
	reNamedBraces = regexp.MustCompile(`^export\s+\{([^}]*)\}(?:\s*from\s*(['"]).*?['"])?`)
	reDefault     = regexp.MustCompile(`^export\s+default\b`)
	reStarFrom    = regexp.MustCompile(`^export\s*\*(?:\s+as\s+\w+)?\s*from\s*(['"])(.*?)['"]`)
)

// AnalyzeExports inspects source (pre- or post-transpile ESM/TS) and
// reports its export surface. It is deliberately regex-based like the
// fallback import extractor: the export shapes it must recognize are a
// small, fixed grammar and a full tree-sitter query is not needed for
// this analysis to be accurate enough to drive "export *" expansion.
func AnalyzeExports(source []byte) ExportInfo {
	info := ExportInfo{}
	for _, stmt := range splitStatements(string(source)) {
		if reDefault.MatchString(stmt) {
			info.HasDefaultExport = true
			continue
		}
		if m := reStarFrom.FindStringSubmatch(stmt); m != nil {
			info.ReExports = append(info.ReExports, m[2])
			continue
		}
		if m := reNamedDecl.FindStringSubmatch(stmt); m != nil {
			info.NamedExports = append(info.NamedExports, m[1])
			continue
		}
		if m := reNamedBraces.FindStringSubmatch(stmt); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				// "x as y" exports y; "type X" is a type export, excluded.
				if strings.HasPrefix(name, "type ") {
					continue
				}
				if idx := strings.Index(name, " as "); idx >= 0 {
					name = strings.TrimSpace(name[idx+len(" as "):])
				}
				info.NamedExports = append(info.NamedExports, name)
			}
		}
	}
	return info
}
