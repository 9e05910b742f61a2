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
package jsruntime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmbedsBaseURLAsJSString(t *testing.T) {
	src := Render("/warlock/cache", "")
	assert.Contains(t, src, `"/warlock/cache"`)
	assert.NotContains(t, src, "WebSocket")
}

func TestRenderOmitsListenerWithoutWSURL(t *testing.T) {
	src := Render("/warlock/cache", "")
	assert.NotContains(t, src, "__warlockSocket")
}

func TestRenderIncludesListenerWithWSURL(t *testing.T) {
	src := Render("/warlock/cache", "ws://localhost:3000/warlock/ws")
	assert.Contains(t, src, `"ws://localhost:3000/warlock/ws"`)
	assert.Contains(t, src, "__warlockSocket")
	assert.Contains(t, src, "clear-module")
	assert.Contains(t, src, "clear-all")
}

func TestJSStringEscapesQuotes(t *testing.T) {
	assert.Equal(t, `"a\"b"`, jsString(`a"b`))
}
