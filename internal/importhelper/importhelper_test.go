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
package importhelper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInstallsOnFirstAccess(t *testing.T) {
	r := NewRegistry()
	r.now = func() int64 { return 42 }
	assert.Equal(t, int64(42), r.Version("src-app-main.js"))
	assert.Equal(t, int64(42), r.Version("src-app-main.js"))
}

func TestClearModuleVersionForcesNewTimestamp(t *testing.T) {
	r := NewRegistry()
	calls := int64(0)
	r.now = func() int64 { calls++; return calls }

	first := r.Version("a.js")
	r.ClearModuleVersion("a.js")
	second := r.Version("a.js")
	assert.NotEqual(t, first, second)
}

func TestClearAllModuleVersions(t *testing.T) {
	r := NewRegistry()
	r.Version("a.js")
	r.Version("b.js")
	r.ClearAllModuleVersions()
	assert.Len(t, r.versions, 0)
}

func TestArtifactURLIncludesVersion(t *testing.T) {
	r := NewRegistry()
	r.now = func() int64 { return 7 }
	url := r.ArtifactURL("/warlock/cache/", "src-app-main.js")
	assert.Equal(t, "/warlock/cache/src-app-main.js?t=7", url)
}

func TestRuntimeSourceInstallsGlobals(t *testing.T) {
	src := RuntimeSource("/warlock/cache", "")
	assert.Contains(t, src, "globalThis.__import")
	assert.Contains(t, src, "globalThis.__clearModuleVersion")
	assert.Contains(t, src, "globalThis.__clearAllModuleVersions")
	assert.NotContains(t, src, "WebSocket")
}

func TestRuntimeSourceWithLiveReload(t *testing.T) {
	src := RuntimeSource("/warlock/cache", "ws://localhost:3000/warlock/ws")
	assert.Contains(t, src, "ws://localhost:3000/warlock/ws")
	assert.Contains(t, src, "clear-module")
}
