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
// Package transpile wraps esbuild to convert project source into plain
// ECMAScript targeting the host runtime (C4).
package transpile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Result is the transpiler's output for one source file.
type Result struct {
	Code       string
	Map        string
	MapURLName string // cache name of the sidecar .js.map, for the SourceMappingURL comment
}

// defaultTsconfigRaw disables importHelpers so the output never depends on
// an external tslib at runtime — the cache serves standalone artifacts.
// verbatimModuleSyntax keeps every import not marked "type", even when its
// bindings are unused, so the rewriter sees each runtime dependency.
const defaultTsconfigRaw = `{"compilerOptions":{"importHelpers":false,"verbatimModuleSyntax":true}}`

// Transpile converts source to ES2022 ESM. sourcefile is used for
// diagnostics and source-map sourceRoot; its extension selects the loader
// (.tsx/.jsx get the JSX-aware loader, everything else ts).
func Transpile(source []byte, sourcefile string) (*Result, error) {
	loader := api.LoaderTS
	switch strings.ToLower(filepath.Ext(sourcefile)) {
	case ".tsx":
		loader = api.LoaderTSX
	case ".jsx":
		loader = api.LoaderJSX
	case ".js", ".mjs", ".cjs":
		loader = api.LoaderJS
	}

	out := api.Transform(string(source), api.TransformOptions{
		Loader:      loader,
		Target:      api.ES2022,
		Format:      api.FormatESModule,
		Sourcemap:   api.SourceMapExternal,
		Sourcefile:  sourcefile,
		TsconfigRaw: defaultTsconfigRaw,
	})

	if len(out.Errors) > 0 {
		var b strings.Builder
		b.WriteString("transpile failed:\n")
		for _, e := range out.Errors {
			fmt.Fprintf(&b, "  %s\n", e.Text)
		}
		return nil, fmt.Errorf("%s", b.String())
	}

	return &Result{
		Code: out.Code,
		Map:  string(out.Map),
	}, nil
}

// WithSourceMappingURL appends the sidecar source-map pointer comment the
// cache store writes alongside the rewritten artifact.
func WithSourceMappingURL(code, cacheName string) string {
	return code + "\n//# sourceMappingURL=" + cacheName + ".map\n"
}
