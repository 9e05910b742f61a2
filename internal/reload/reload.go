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
// Package reload implements the reload executor (C15): given a debounced
// batch of changed and deleted paths, it walks the invalidation chain,
// reprocesses every affected file, restarts connectors, and reloads
// whichever special files the change touched.
package reload

import (
	"context"
	"sort"

	"warlock.dev/warlock/internal/connector"
	"warlock.dev/warlock/internal/filerecord"
	"warlock.dev/warlock/internal/filetable"
	"warlock.dev/warlock/internal/importhelper"
	"warlock.dev/warlock/internal/moduleloader"
	"warlock.dev/warlock/internal/specialfiles"
)

// Deps bundles the collaborators executeBatch needs. Broadcast, ReloadEnv,
// and ClearExportCache are optional hooks; a nil hook is simply skipped.
type Deps struct {
	Table      *filetable.Table
	Services   *filerecord.Services
	Registry   *importhelper.Registry
	Loader     *moduleloader.Loader
	Connectors *connector.Registry

	// EnvFilePath is the project-relative path of the root env file, used
	// to detect the "env changed" special case in step 6.
	EnvFilePath string

	// Broadcast notifies live clients that cacheNames were reloaded, for
	// the given reason ("config", "locale", "main", "event", "route",
	// "fallback"). Optional.
	Broadcast func(reason string, cacheNames []string)

	// ReloadEnv re-reads the environment file. Optional; called once, at
	// most, per batch.
	ReloadEnv func() error

	// ClearExportCache invalidates any cached export-surface analysis for
	// the given project-relative path. Optional.
	ClearExportCache func(relativePath string)
}

// Result reports what executeBatch actually did, for logging and tests.
type Result struct {
	AllInvalidated   []string
	HMRPaths         []string
	FSRPaths         []string
	ReloadedSpecial  []string
	FallbackReloaded string
	ConnectorErrors  []error
}

// ExecuteBatch runs the full reload algorithm for one debounced batch.
func ExecuteBatch(ctx context.Context, deps *Deps, changedPaths, deletedPaths []string) *Result {
	result := &Result{}

	// 1. Deleted: cleanup, then drop.
	for _, path := range deletedPaths {
		if rec, ok := deps.Table.Get(path); ok {
			_ = moduleloader.RunCleanup(rec.Cleanup)
		}
		deps.Table.DeleteFile(path)
	}

	// 2. Changed: accumulate invalidation chains, classify HMR vs FSR.
	invalidatedSet := make(map[string]bool)
	var hmrPaths, fsrPaths []string
	chains := make(map[string][]string, len(changedPaths))

	for _, path := range changedPaths {
		chain := deps.Table.Graph().InvalidationChain(path)
		chains[path] = chain
		fsr := false
		for _, node := range chain {
			invalidatedSet[node] = true
			if rec, ok := deps.Table.Get(node); ok && rec.Layer == filerecord.LayerFSR {
				fsr = true
			}
		}
		if fsr {
			fsrPaths = append(fsrPaths, path)
		} else {
			hmrPaths = append(hmrPaths, path)
		}
	}

	// 3. HMR paths: clear module cache, cleanup, clear version, clear
	// export-analyzer cache.
	for _, path := range hmrPaths {
		rec, ok := deps.Table.Get(path)
		if !ok {
			continue
		}
		deps.Loader.Unload(rec.CacheName)
		_ = moduleloader.RunCleanup(rec.Cleanup)
		deps.Registry.ClearModuleVersion(rec.CacheName)
		if deps.ClearExportCache != nil {
			deps.ClearExportCache(path)
		}
	}

	allInvalidated := keysOf(invalidatedSet)
	sort.Strings(allInvalidated)
	result.AllInvalidated = allInvalidated
	result.HMRPaths = hmrPaths
	result.FSRPaths = fsrPaths

	// 4. Reprocess every invalidated file so re-exports pick up changes.
	for _, path := range allInvalidated {
		rec, ok := deps.Table.Get(path)
		if !ok {
			continue
		}
		_, _ = rec.Process(deps.Services, filerecord.ProcessOptions{Force: true, Rewrite: true, SaveToCache: true})
	}

	// 5. Restart affected connectors in priority order.
	if deps.Connectors != nil {
		result.ConnectorErrors = deps.Connectors.RestartAffected(ctx, changedPaths)
	}

	// 6. Determine affected special files.
	envChanged := false
	for _, path := range changedPaths {
		if deps.EnvFilePath != "" && path == deps.EnvFilePath {
			envChanged = true
		}
	}
	if envChanged && deps.ReloadEnv != nil {
		_ = deps.ReloadEnv()
	}

	special := deps.Table.Special()
	affected := map[specialfiles.Kind][]string{}
	for _, kind := range []specialfiles.Kind{
		specialfiles.KindConfig,
		specialfiles.KindLocale,
		specialfiles.KindMain,
		specialfiles.KindEvent,
		specialfiles.KindRoute,
	} {
		for _, path := range special.Paths(kind) {
			if kind == specialfiles.KindConfig && envChanged {
				affected[kind] = append(affected[kind], path)
				continue
			}
			if invalidatedSet[path] {
				affected[kind] = append(affected[kind], path)
			}
		}
	}

	// 7. Reload affected special files in order: configs, locales, mains,
	// events, routes.
	anyReloaded := false
	for _, kind := range []specialfiles.Kind{
		specialfiles.KindConfig,
		specialfiles.KindLocale,
		specialfiles.KindMain,
		specialfiles.KindEvent,
		specialfiles.KindRoute,
	} {
		paths := affected[kind]
		if len(paths) == 0 {
			continue
		}
		sort.Strings(paths)
		var cacheNames []string
		for _, path := range paths {
			rec, ok := deps.Table.Get(path)
			if !ok {
				continue
			}
			deps.Loader.ReloadURL(rec.CacheName)
			cacheNames = append(cacheNames, rec.CacheName)
			result.ReloadedSpecial = append(result.ReloadedSpecial, path)
		}
		if len(cacheNames) > 0 {
			anyReloaded = true
			if deps.Broadcast != nil {
				deps.Broadcast(string(kind), cacheNames)
			}
		}
	}

	// 8. Fallback: reload the last node of the last chain as best effort.
	if !anyReloaded && len(changedPaths) > 0 {
		lastChanged := changedPaths[len(changedPaths)-1]
		chain := chains[lastChanged]
		if len(chain) > 0 {
			target := chain[len(chain)-1]
			if rec, ok := deps.Table.Get(target); ok {
				deps.Loader.ReloadURL(rec.CacheName)
				result.FallbackReloaded = target
				if deps.Broadcast != nil {
					deps.Broadcast("fallback", []string{rec.CacheName})
				}
			}
		}
	}

	return result
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
