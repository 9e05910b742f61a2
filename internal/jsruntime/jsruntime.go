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
// Package jsruntime holds the __import runtime shim: the literal
// JavaScript installed as a process-global inside the external ECMAScript
// host so rewritten modules can dynamic-import each other through the
// cache directory with cache-busting and cyclic-import safety. The Go
// side (internal/importhelper) owns the module-version bookkeeping this
// shim's cache-busting query parameter reflects; the in-flight-promise
// bookkeeping that makes cyclic imports safe has to live here, inside the
// host's own event loop, since a Go round trip can't preserve a
// JavaScript Promise's identity across a re-entrant import() call.
package jsruntime

import (
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"
)

//go:embed runtime.js.tmpl
var runtimeTemplateSource string

var runtimeTemplate = template.Must(template.New("runtime").Funcs(template.FuncMap{
	"jsString": jsString,
}).Parse(runtimeTemplateSource))

func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

type renderData struct {
	BaseURL string
	WSURL   string
}

// Render returns the shim's source with baseURL (the path the cache
// directory is served under) and wsURL (the live-reload WebSocket
// endpoint, empty to omit the listener) substituted in.
func Render(baseURL, wsURL string) string {
	var sb strings.Builder
	_ = runtimeTemplate.Execute(&sb, renderData{
		BaseURL: jsString(baseURL),
		WSURL:   jsStringOrEmpty(wsURL),
	})
	return sb.String()
}

func jsStringOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return jsString(s)
}
