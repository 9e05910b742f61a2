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
package transpile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspileBasic(t *testing.T) {
	result, err := Transpile([]byte(`const x: number = 1; export default x;`), "src/app/main.ts")
	require.NoError(t, err)
	assert.Contains(t, result.Code, "export default")
	assert.NotContains(t, result.Code, ": number")
}

func TestTranspileTSX(t *testing.T) {
	result, err := Transpile([]byte(`export const el = <div>hi</div>;`), "src/app/widget.tsx")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Code)
}

func TestTranspileSyntaxError(t *testing.T) {
	_, err := Transpile([]byte(`const x: = ;;;`), "src/app/broken.ts")
	require.Error(t, err)
}

func TestWithSourceMappingURL(t *testing.T) {
	got := WithSourceMappingURL("export {};", "src-app-main.js")
	assert.Contains(t, got, "//# sourceMappingURL=src-app-main.js.map")
}
