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
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"warlock.dev/warlock/internal/cachestore"
	"warlock.dev/warlock/internal/fileops"
	"warlock.dev/warlock/internal/filerecord"
)

func newTestOrchestrator(t *testing.T, files map[string]string) *Orchestrator {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}

	fs := fileops.NewOSFileSystem()
	store, err := cachestore.New(root, fs, 64)
	require.NoError(t, err)

	svc := &filerecord.Services{
		FS:          fs,
		Cache:       store,
		ProjectRoot: root,
		Now:         func() int64 { return 1000 },
	}

	return New(Options{ProjectRoot: root, BatchSize: 2}, svc)
}

func TestStartupNoManifestProcessesEveryFile(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"src/app/leaf.ts":  "export const a = 1;",
		"src/app/entry.ts": `import { a } from "./leaf";`,
	})

	require.NoError(t, o.Startup(context.Background()))

	leaf, ok := o.Table().Get("src/app/leaf.ts")
	require.True(t, ok)
	assert.Equal(t, filerecord.StateReady, leaf.State)

	entry, ok := o.Table().Get("src/app/entry.ts")
	require.True(t, ok)
	assert.Equal(t, filerecord.StateReady, entry.State)
	assert.True(t, entry.ImportsRewritten)

	manifest, hasManifest := o.services.Cache.LoadManifest()
	require.True(t, hasManifest)
	assert.Len(t, manifest.Files, 2)
}

func TestStartupReconcilesExistingManifest(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"src/app/leaf.ts": "export const a = 1;",
	})
	require.NoError(t, o.Startup(context.Background()))

	firstVersion := func() int {
		rec, _ := o.Table().Get("src/app/leaf.ts")
		return rec.Version
	}()

	o2 := New(Options{ProjectRoot: o.opts.ProjectRoot, BatchSize: 2}, o.services)
	require.NoError(t, o2.Startup(context.Background()))

	rec, ok := o2.Table().Get("src/app/leaf.ts")
	require.True(t, ok)
	assert.Equal(t, firstVersion, rec.Version, "unchanged file should not be reprocessed on restart")
	assert.Equal(t, filerecord.StateReady, rec.State)
}

func TestStartupDetectsNewAndDeletedFilesAgainstManifest(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"src/app/leaf.ts": "export const a = 1;",
		"src/app/gone.ts": "export const b = 2;",
	})
	require.NoError(t, o.Startup(context.Background()))

	require.NoError(t, os.Remove(filepath.Join(o.opts.ProjectRoot, "src/app/gone.ts")))
	require.NoError(t, os.WriteFile(filepath.Join(o.opts.ProjectRoot, "src/app/fresh.ts"), []byte("export const c = 3;"), 0644))

	o2 := New(Options{ProjectRoot: o.opts.ProjectRoot, BatchSize: 2}, o.services)
	require.NoError(t, o2.Startup(context.Background()))

	_, ok := o2.Table().Get("src/app/fresh.ts")
	assert.True(t, ok)

	manifest, hasManifest := o2.services.Cache.LoadManifest()
	require.True(t, hasManifest)
	_, stillThere := manifest.Files["src/app/gone.ts"]
	assert.False(t, stillThere)
}
