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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeExportsNamed(t *testing.T) {
	info := AnalyzeExports([]byte(`
export const a = 1;
export function b() {}
export class C {}
export default function() {}
`))
	assert.ElementsMatch(t, []string{"a", "b", "C"}, info.NamedExports)
	assert.True(t, info.HasDefaultExport)
}

func TestAnalyzeExportsBraces(t *testing.T) {
	info := AnalyzeExports([]byte(`export { a, b as c, type D };`))
	assert.ElementsMatch(t, []string{"a", "c"}, info.NamedExports)
}

func TestAnalyzeExportsStarFrom(t *testing.T) {
	info := AnalyzeExports([]byte(`export * from "./other";`))
	assert.Equal(t, []string{"./other"}, info.ReExports)
}

func TestAnalyzeExportsExcludesTypes(t *testing.T) {
	info := AnalyzeExports([]byte(`
export interface Foo {}
export type Bar = string;
`))
	assert.Empty(t, info.NamedExports)
	assert.False(t, info.HasDefaultExport)
}
