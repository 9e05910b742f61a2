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
// Package orchestrator assembles the startup sequence (C12) and the
// steady-state watch loop: it brings every file up to date against the
// manifest or from scratch, then drives each debounced watcher batch
// through the file table and the reload executor.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"warlock.dev/warlock/internal/cachestore"
	"warlock.dev/warlock/internal/connector"
	"warlock.dev/warlock/internal/filerecord"
	"warlock.dev/warlock/internal/filetable"
	"warlock.dev/warlock/internal/fileops"
	"warlock.dev/warlock/internal/healthhost"
	"warlock.dev/warlock/internal/importhelper"
	"warlock.dev/warlock/internal/moduleloader"
	"warlock.dev/warlock/internal/reload"
	"warlock.dev/warlock/internal/watch"
)

// DefaultBatchSize bounds how many files are processed concurrently
// within one class (new/existing) of the startup sweep.
const DefaultBatchSize = 500

// Options configures one orchestrator instance.
type Options struct {
	ProjectRoot string
	EnvFile     string
	BatchSize   int
	WatchOpts   watch.Options
}

// BatchEvent is the "batch-complete" payload fired after every watcher
// flush is fully processed and the manifest is persisted.
type BatchEvent struct {
	Added   []string
	Changed []string
	Deleted []string
	Reload  *reload.Result
}

// Orchestrator owns every collaborator in the pipeline and drives the
// startup sweep plus the steady-state watch loop.
type Orchestrator struct {
	opts     Options
	services *filerecord.Services
	table    *filetable.Table
	watcher  *watch.Watcher

	registry   *importhelper.Registry
	loader     *moduleloader.Loader
	connectors *connector.Registry
	health     *healthhost.Host

	// OnBatchComplete, when set, is called once per processed watcher
	// batch after the manifest has been persisted.
	OnBatchComplete func(BatchEvent)

	// Broadcast, when set, is forwarded to the reload executor so live
	// clients are notified which cache entries to drop after a batch.
	Broadcast func(reason string, cacheNames []string)

	mu sync.Mutex
}

// New wires every collaborator together. svc.Cache must already be
// constructed; the orchestrator does not own cache-directory lifetime.
func New(opts Options, svc *filerecord.Services) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	registry := importhelper.NewRegistry()
	return &Orchestrator{
		opts:       opts,
		services:   svc,
		table:      filetable.New(svc),
		registry:   registry,
		loader:     moduleloader.New(registry, ""),
		connectors: connector.New(),
		health:     healthhost.New(),
	}
}

func (o *Orchestrator) Table() *filetable.Table         { return o.table }
func (o *Orchestrator) Registry() *importhelper.Registry { return o.registry }
func (o *Orchestrator) Loader() *moduleloader.Loader     { return o.loader }
func (o *Orchestrator) Connectors() *connector.Registry  { return o.connectors }
func (o *Orchestrator) Health() *healthhost.Host         { return o.health }

// Startup runs the sequence from spec 4.9: discover files, reconcile
// against the manifest (or start fresh), build the graph, rewrite
// anything not yet rewritten, and persist the manifest.
func (o *Orchestrator) Startup(ctx context.Context) error {
	discovered, err := fileops.Discover(o.opts.ProjectRoot, nil, nil)
	if err != nil {
		return fmt.Errorf("orchestrator: discover files: %w", err)
	}

	manifest, hasManifest := o.services.Cache.LoadManifest()

	if !hasManifest {
		if err := o.services.Cache.RecreateCacheDir(); err != nil {
			return fmt.Errorf("orchestrator: recreate cache dir: %w", err)
		}
		if err := o.processInBatches(ctx, discovered, nil); err != nil {
			return err
		}
	} else {
		fsSet := make(map[string]bool, len(discovered))
		for _, rel := range discovered {
			fsSet[rel] = true
		}
		manifestSet := make(map[string]bool, len(manifest.Files))
		for rel := range manifest.Files {
			manifestSet[rel] = true
		}

		var fresh, existing []string
		for _, rel := range discovered {
			if manifestSet[rel] {
				existing = append(existing, rel)
			} else {
				fresh = append(fresh, rel)
			}
		}
		for rel, entry := range manifest.Files {
			if !fsSet[rel] {
				_ = o.services.Cache.Remove(entry.CachePath)
			}
		}

		if err := o.processInBatches(ctx, fresh, nil); err != nil {
			return err
		}
		if err := o.processInBatches(ctx, existing, manifest); err != nil {
			return err
		}
	}

	if cycles := o.table.Graph().DetectCycles(); len(cycles) > 0 {
		for _, cycle := range cycles {
			fmt.Printf("orchestrator: dependency cycle detected: %v\n", cycle)
		}
	}

	o.table.UpdateDependents()

	if err := o.rewriteUnrewritten(); err != nil {
		return err
	}

	if err := o.persistManifest(); err != nil {
		return err
	}

	return nil
}

// processInBatches adds or reconciles paths in bounded concurrent groups.
// manifest is nil for a fresh add; when non-nil, each path is reconciled
// against its manifest entry via the init() fast path.
func (o *Orchestrator) processInBatches(ctx context.Context, paths []string, manifest *cachestore.Manifest) error {
	batchSize := o.opts.BatchSize
	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		group, _ := errgroup.WithContext(ctx)
		for _, rel := range paths[start:end] {
			rel := rel
			group.Go(func() error {
				if manifest != nil {
					if entry, ok := manifest.Files[rel]; ok {
						return o.initFromManifest(rel, entry)
					}
				}
				_, err := o.table.AddFile(rel)
				return err
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// initFromManifest restores a record from its manifest entry and lets
// Process decide whether the source actually changed: if the artifact is
// cached and the on-disk hash still matches, Process's fast path leaves
// it alone and marks it ready; otherwise it falls through to a full
// parse/transpile/rewrite/persist cycle.
func (o *Orchestrator) initFromManifest(rel string, entry cachestore.ManifestFileEntry) error {
	rec := filerecord.New(entry.AbsolutePath, rel)
	rec.Hash = entry.Hash
	rec.LastModified = entry.LastModified
	rec.Version = entry.Version
	rec.Dependencies = entry.Dependencies

	if cached, ok, err := o.services.Cache.ReadArtifact(entry.CachePath); err == nil && ok {
		rec.Transpiled = cached
		rec.ImportsRewritten = true
	}

	_, err := o.table.TrackAndProcess(rec)
	return err
}

func (o *Orchestrator) rewriteUnrewritten() error {
	for _, rec := range o.table.All() {
		if rec.ImportsRewritten || len(rec.Dependencies) == 0 {
			continue
		}
		if err := rec.Complete(o.services, filerecord.ProcessOptions{Force: true, Rewrite: true, SaveToCache: true}); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) persistManifest() error {
	manifest := cachestore.NewManifest()
	for _, rec := range o.table.All() {
		manifest.Files[rec.RelativePath] = cachestore.ManifestFileEntry{
			AbsolutePath: rec.AbsolutePath,
			RelativePath: rec.RelativePath,
			Hash:         rec.Hash,
			LastModified: rec.LastModified,
			Dependencies: rec.Dependencies,
			Dependents:   rec.Dependents,
			Version:      rec.Version,
			Type:         string(rec.Type),
			Layer:        string(rec.Layer),
			CachePath:    rec.CacheName,
		}
	}
	return o.services.Cache.SaveManifest(manifest)
}

// Watch starts the filesystem watcher and begins consuming batches on a
// background goroutine. Call Close to stop.
func (o *Orchestrator) Watch() error {
	w, err := watch.New(o.opts.WatchOpts)
	if err != nil {
		return err
	}
	o.watcher = w
	w.Start()
	go o.consumeBatches()
	return nil
}

func (o *Orchestrator) Close() error {
	if o.watcher == nil {
		return nil
	}
	return o.watcher.Close()
}

func (o *Orchestrator) consumeBatches() {
	for batch := range o.watcher.Batches() {
		o.processBatch(context.Background(), batch)
	}
}

// processBatch runs adds, then changes, then deletes, reconciles the
// graph, runs the reload executor, and persists the manifest.
func (o *Orchestrator) processBatch(ctx context.Context, batch watch.Batch) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sort.Strings(batch.Added)
	sort.Strings(batch.Changed)
	sort.Strings(batch.Deleted)

	for _, rel := range batch.Added {
		_, _ = o.table.AddFile(rel)
	}
	for _, rel := range batch.Changed {
		_, _ = o.table.UpdateFile(rel)
	}

	result := reload.ExecuteBatch(ctx, &reload.Deps{
		Table:            o.table,
		Services:         o.services,
		Registry:         o.registry,
		Loader:           o.loader,
		Connectors:       o.connectors,
		EnvFilePath:      o.opts.EnvFile,
		Broadcast:        o.Broadcast,
		ClearExportCache: o.services.Cache.ClearExportInfo,
	}, batch.Changed, batch.Deleted)

	o.table.UpdateDependents()
	_ = o.persistManifest()

	if o.OnBatchComplete != nil {
		o.OnBatchComplete(BatchEvent{
			Added:   batch.Added,
			Changed: batch.Changed,
			Deleted: batch.Deleted,
			Reload:  result,
		})
	}
}
