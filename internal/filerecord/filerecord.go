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
// Package filerecord implements the per-source state machine (C7): read,
// hash, parse imports, transpile, rewrite, and persist one tracked file,
// plus the path-based type/layer classification the reload executor and
// special-files index consult.
package filerecord

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"warlock.dev/warlock/internal/cachestore"
	"warlock.dev/warlock/internal/fileops"
	"warlock.dev/warlock/internal/importscan"
	"warlock.dev/warlock/internal/pathutil"
	"warlock.dev/warlock/internal/rewrite"
	"warlock.dev/warlock/internal/sourceconfig"
	"warlock.dev/warlock/internal/transpile"
)

// State is the file record's lifecycle stage.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateParsed     State = "parsed"
	StateTranspiled State = "transpiled"
	StateReady      State = "ready"
	StateUpdating   State = "updating"
	StateDeleted    State = "deleted"
)

// Type is the path-based classification used by the reload executor.
type Type string

const (
	TypeMain       Type = "main"
	TypeConfig     Type = "config"
	TypeRoute      Type = "route"
	TypeEvent      Type = "event"
	TypeController Type = "controller"
	TypeService    Type = "service"
	TypeModel      Type = "model"
	TypeOther      Type = "other"
)

// Layer determines whether the reload executor treats a change as
// hot-reloadable or requiring a full subsystem restart.
type Layer string

const (
	LayerHMR Layer = "HMR"
	LayerFSR Layer = "FSR"
)

// Classify derives Type and Layer from a project-relative path. First
// match wins; everything unmatched is "other"/HMR.
func Classify(relativePath string) (Type, Layer) {
	base := relativePath
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}

	switch {
	case base == "main.ts" || base == "main.tsx":
		return TypeMain, LayerHMR
	case matchGlob("src/config/**", relativePath):
		return TypeConfig, LayerFSR
	case strings.HasSuffix(strings.ToLower(base), "routes.ts") || strings.HasSuffix(strings.ToLower(base), "routes.tsx"):
		return TypeRoute, LayerFSR
	case strings.Contains(relativePath, "/events/"):
		return TypeEvent, LayerHMR
	case strings.Contains(relativePath, "controller"):
		return TypeController, LayerHMR
	case strings.Contains(relativePath, "service"):
		return TypeService, LayerHMR
	case strings.Contains(relativePath, "model"):
		return TypeModel, LayerHMR
	default:
		return TypeOther, LayerHMR
	}
}

func matchGlob(pattern, path string) bool {
	ok, _ := doublestar.Match(pattern, path)
	return ok
}

// Record is one tracked source file.
type Record struct {
	AbsolutePath string
	RelativePath string
	CacheName    string

	Source       []byte
	Hash         string
	LastModified int64

	Transpiled       string
	ImportsRewritten bool
	Version          int

	Type  Type
	Layer Layer

	ImportMap    map[string]string // original specifier -> resolved absolute path
	Dependencies []string          // project-relative
	Dependents   []string          // project-relative, populated from the graph only

	Cleanup any
	State   State
}

// New constructs an untracked record for a path. Classification and
// CacheName are pure functions of RelativePath and are computed eagerly.
func New(absolutePath, relativePath string) *Record {
	typ, layer := Classify(relativePath)
	return &Record{
		AbsolutePath: absolutePath,
		RelativePath: relativePath,
		CacheName:    pathutil.CacheName(relativePath),
		Type:         typ,
		Layer:        layer,
		State:        StateIdle,
	}
}

// Services bundles the collaborators process/parse/complete need beyond
// the record itself.
type Services struct {
	FS          fileops.FileSystem
	Cache       *cachestore.Store
	Config      *sourceconfig.Config
	ProjectRoot string
	// ExportsOf analyzes the export surface of the file at absolutePath,
	// used to expand "export * from". ok is false when unavailable.
	ExportsOf func(absolutePath string) (importscan.ExportInfo, bool)
	Now       func() int64
}

func (s *Services) now() int64 {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UnixMilli()
}

// ProcessOptions mirrors the opts argument to process() in the spec.
type ProcessOptions struct {
	Force       bool
	Rewrite     bool
	SaveToCache bool
}

// DefaultProcessOptions matches process(opts={force:false, rewrite:true,
// saveToCache:true}).
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{Rewrite: true, SaveToCache: true}
}

// UnresolvedImportsError is returned by Process/Complete when the import
// rewriter cannot resolve a project-internal specifier.
type UnresolvedImportsError = rewrite.UnresolvedImportsError

// Process runs the full pipeline: read, hash-check, parse, transpile,
// rewrite, persist. Returns whether the record changed.
func (r *Record) Process(svc *Services, opts ProcessOptions) (bool, error) {
	content, err := svc.FS.ReadFile(r.AbsolutePath)
	if err != nil {
		if fileops.IsNotExist(err) {
			r.State = StateDeleted
			return false, nil
		}
		return false, err
	}

	newHash := hashOf(content)
	if !opts.Force && newHash == r.Hash && r.Transpiled != "" && r.ImportsRewritten {
		r.State = StateReady
		return false, nil
	}

	r.Source = content
	r.Hash = newHash
	r.LastModified = svc.now()
	r.Version++
	r.State = StateLoading

	if err := r.parseImports(svc); err != nil {
		return false, err
	}

	return true, r.complete(svc, opts)
}

// Parse runs steps 1-4 of process(): read, hash, import-parse, derive
// dependencies. Used for batch phase 1.
func (r *Record) Parse(svc *Services) error {
	content, err := svc.FS.ReadFile(r.AbsolutePath)
	if err != nil {
		if fileops.IsNotExist(err) {
			r.State = StateDeleted
			return nil
		}
		return err
	}
	r.Source = content
	r.Hash = hashOf(content)
	r.LastModified = svc.now()
	r.Version++
	r.State = StateLoading
	return r.parseImports(svc)
}

// Complete runs steps 5-7 of process(): transpile, rewrite, persist. It is
// an error to call Complete from any state other than "parsed".
func (r *Record) Complete(svc *Services, opts ProcessOptions) error {
	if r.State != StateParsed {
		return fmt.Errorf("filerecord: complete() called from state %q, expected %q", r.State, StateParsed)
	}
	return r.complete(svc, opts)
}

func (r *Record) parseImports(svc *Services) error {
	resolved, err := importscan.Parse(r.Source, r.AbsolutePath, importscan.Options{
		Config: svc.Config,
		Exists: func(p string) bool { return svc.FS.Exists(p) },
	})
	if err != nil {
		return err
	}
	r.ImportMap = resolved

	deps := make([]string, 0, len(resolved))
	for _, abs := range resolved {
		rel, relErr := pathutil.ToRelative(svc.ProjectRoot, abs)
		if relErr != nil {
			continue // outside the project tree: not a tracked dependency
		}
		deps = append(deps, rel)
	}
	r.Dependencies = deps
	r.State = StateParsed
	return nil
}

func (r *Record) complete(svc *Services, opts ProcessOptions) error {
	result, err := transpile.Transpile(r.Source, r.AbsolutePath)
	if err != nil {
		return err
	}
	r.Transpiled = result.Code
	r.State = StateTranspiled

	code := result.Code
	shouldRewrite := opts.Rewrite
	if shouldRewrite && len(r.Dependencies) > 0 {
		rewritten, rwErr := rewrite.Rewrite([]byte(code), r.RelativePath, r.resolveFn(svc), r.exportsOfFn(svc))
		if rwErr != nil {
			return rwErr
		}
		code = string(rewritten)
	}
	r.ImportsRewritten = true

	if opts.SaveToCache {
		code = transpile.WithSourceMappingURL(code, r.CacheName)
		if err := svc.Cache.WriteArtifact(r.CacheName, code); err != nil {
			return err
		}
		if err := svc.Cache.WriteSourceMap(r.CacheName, result.Map); err != nil {
			return err
		}
	}

	r.State = StateReady
	return nil
}

func (r *Record) resolveFn(svc *Services) rewrite.Resolve {
	return func(specifier string) (rewrite.Target, bool) {
		abs, ok := r.ImportMap[specifier]
		if !ok {
			return rewrite.Target{}, false
		}
		rel, err := pathutil.ToRelative(svc.ProjectRoot, abs)
		if err != nil {
			return rewrite.Target{}, false
		}
		return rewrite.Target{CacheName: pathutil.CacheName(rel)}, true
	}
}

func (r *Record) exportsOfFn(svc *Services) rewrite.ExportsOf {
	return func(specifier string) (importscan.ExportInfo, bool) {
		abs, ok := r.ImportMap[specifier]
		if !ok || svc.ExportsOf == nil {
			return importscan.ExportInfo{}, false
		}
		return svc.ExportsOf(abs)
	}
}

func hashOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
