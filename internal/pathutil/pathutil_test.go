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
package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheName(t *testing.T) {
	cases := map[string]string{
		"src/app/users/main.ts":          "src-app-users-main.js",
		"src/app/users/shared/utils.tsx": "src-app-users-shared-utils.js",
		"src/config/database.ts":         "src-config-database.js",
		"already.js":                     "already.js",
	}
	for in, want := range cases {
		assert.Equal(t, want, CacheName(in), in)
	}
}

func TestToRelativeRejectsEscapes(t *testing.T) {
	_, err := ToRelative("/project", "/outside/file.ts")
	require.Error(t, err)
}

func TestToRelativeRoundTrip(t *testing.T) {
	rel, err := ToRelative("/project", "/project/src/app/main.ts")
	require.NoError(t, err)
	assert.Equal(t, "src/app/main.ts", rel)
	assert.Equal(t, "/project/src/app/main.ts", ToAbsolute("/project", rel))
}

func TestResolveWithExtensions(t *testing.T) {
	existing := map[string]bool{
		"/project/src/app/helper.ts": true,
	}
	exists := func(p string) bool { return existing[p] }

	got, ok := ResolveWithExtensions("/project/src/app", "./helper", exists)
	require.True(t, ok)
	assert.Equal(t, "/project/src/app/helper.ts", got)

	_, ok = ResolveWithExtensions("/project/src/app", "./missing", exists)
	assert.False(t, ok)
}

func TestResolveWithExtensionsIndex(t *testing.T) {
	existing := map[string]bool{
		"/project/src/app/widgets/index.tsx": true,
	}
	exists := func(p string) bool { return existing[p] }

	got, ok := ResolveWithExtensions("/project/src/app", "./widgets", exists)
	require.True(t, ok)
	assert.Equal(t, "/project/src/app/widgets/index.tsx", got)
}
