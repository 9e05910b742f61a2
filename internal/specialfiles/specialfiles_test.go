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
package specialfiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyConfig(t *testing.T) {
	assert.Equal(t, KindConfig, Classify("src/config/database.ts"))
}

func TestClassifyMain(t *testing.T) {
	assert.Equal(t, KindMain, Classify("src/app/orders/main.ts"))
}

func TestClassifyRoute(t *testing.T) {
	assert.Equal(t, KindRoute, Classify("src/app/orders/routes.tsx"))
}

func TestClassifyEvent(t *testing.T) {
	assert.Equal(t, KindEvent, Classify("src/app/orders/events/created.ts"))
}

func TestClassifyLocale(t *testing.T) {
	assert.Equal(t, KindLocale, Classify("src/app/utils/locales.ts"))
}

func TestClassifyNone(t *testing.T) {
	assert.Equal(t, KindNone, Classify("src/app/orders/service.ts"))
}

func TestIndexUpdateAndRemove(t *testing.T) {
	idx := New()
	idx.Update("src/config/database.ts")
	assert.True(t, idx.Contains(KindConfig, "src/config/database.ts"))

	idx.Remove("src/config/database.ts")
	assert.False(t, idx.Contains(KindConfig, "src/config/database.ts"))
}

func TestIndexPaths(t *testing.T) {
	idx := New()
	idx.Update("src/app/a/main.ts")
	idx.Update("src/app/b/main.ts")
	assert.ElementsMatch(t, []string{"src/app/a/main.ts", "src/app/b/main.ts"}, idx.Paths(KindMain))
}
