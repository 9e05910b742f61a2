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
package filerecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"warlock.dev/warlock/internal/cachestore"
	"warlock.dev/warlock/internal/fileops"
)

func TestClassifyMain(t *testing.T) {
	typ, layer := Classify("src/app/orders/main.ts")
	assert.Equal(t, TypeMain, typ)
	assert.Equal(t, LayerHMR, layer)
}

func TestClassifyConfigIsFSR(t *testing.T) {
	typ, layer := Classify("src/config/database.ts")
	assert.Equal(t, TypeConfig, typ)
	assert.Equal(t, LayerFSR, layer)
}

func TestClassifyRouteIsFSR(t *testing.T) {
	typ, layer := Classify("src/app/orders/routes.tsx")
	assert.Equal(t, TypeRoute, typ)
	assert.Equal(t, LayerFSR, layer)
}

func TestClassifyRouteSuffixIsFSR(t *testing.T) {
	typ, layer := Classify("src/app/adminRoutes.ts")
	assert.Equal(t, TypeRoute, typ)
	assert.Equal(t, LayerFSR, layer)
}

func TestClassifyService(t *testing.T) {
	typ, _ := Classify("src/app/orders/order.service.ts")
	assert.Equal(t, TypeService, typ)
}

func TestClassifyOther(t *testing.T) {
	typ, layer := Classify("src/app/orders/util.ts")
	assert.Equal(t, TypeOther, typ)
	assert.Equal(t, LayerHMR, layer)
}

func newServices(t *testing.T, files map[string]string) (*Services, fileops.FileSystem) {
	t.Helper()
	fs := fileops.NewMapFS(files)
	store, err := cachestore.New("project", fs, 64)
	require.NoError(t, err)
	return &Services{
		FS:          fs,
		Cache:       store,
		ProjectRoot: "project",
		Now:         func() int64 { return 1000 },
	}, fs
}

func TestProcessSimpleFileNoDeps(t *testing.T) {
	svc, _ := newServices(t, map[string]string{
		"project/src/app/leaf.ts": "export const a = 1;",
	})
	rec := New("project/src/app/leaf.ts", "src/app/leaf.ts")

	changed, err := rec.Process(svc, DefaultProcessOptions())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateReady, rec.State)
	assert.True(t, rec.ImportsRewritten)
	assert.Equal(t, 1, rec.Version)

	code, ok, err := svc.Cache.ReadArtifact(rec.CacheName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, code, "export const a")
}

func TestProcessUnchangedSourceSkipsWork(t *testing.T) {
	svc, _ := newServices(t, map[string]string{
		"project/src/app/leaf.ts": "export const a = 1;",
	})
	rec := New("project/src/app/leaf.ts", "src/app/leaf.ts")

	_, err := rec.Process(svc, DefaultProcessOptions())
	require.NoError(t, err)
	firstVersion := rec.Version

	changed, err := rec.Process(svc, DefaultProcessOptions())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, firstVersion, rec.Version)
	assert.Equal(t, StateReady, rec.State)
}

func TestProcessMissingSourceMarksDeleted(t *testing.T) {
	svc, _ := newServices(t, map[string]string{})
	rec := New("project/src/app/gone.ts", "src/app/gone.ts")

	changed, err := rec.Process(svc, DefaultProcessOptions())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StateDeleted, rec.State)
}

func TestProcessWithDependencyRewritesImport(t *testing.T) {
	svc, _ := newServices(t, map[string]string{
		"project/src/app/util.ts": "export const helper = 1;",
		"project/src/app/main.ts": `import { helper } from "./util";`,
	})
	util := New("project/src/app/util.ts", "src/app/util.ts")
	_, err := util.Process(svc, DefaultProcessOptions())
	require.NoError(t, err)

	main := New("project/src/app/main.ts", "src/app/main.ts")
	_, err = main.Process(svc, DefaultProcessOptions())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"src/app/util.ts"}, main.Dependencies)

	code, ok, err := svc.Cache.ReadArtifact(main.CacheName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, code, `__import("./src-app-util.js")`)
	assert.NotContains(t, code, `from "./util"`)
}

func TestParseThenCompleteMatchesProcess(t *testing.T) {
	svc, _ := newServices(t, map[string]string{
		"project/src/app/leaf.ts": "export const a = 1;",
	})
	rec := New("project/src/app/leaf.ts", "src/app/leaf.ts")

	require.NoError(t, rec.Parse(svc))
	assert.Equal(t, StateParsed, rec.State)

	require.NoError(t, rec.Complete(svc, DefaultProcessOptions()))
	assert.Equal(t, StateReady, rec.State)
}

func TestCompleteFromWrongStateErrors(t *testing.T) {
	svc, _ := newServices(t, map[string]string{})
	rec := New("project/src/app/leaf.ts", "src/app/leaf.ts")
	err := rec.Complete(svc, DefaultProcessOptions())
	require.Error(t, err)
}
