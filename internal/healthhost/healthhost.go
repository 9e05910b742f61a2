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
// Package healthhost implements the health-checker host (C17): it fans
// each added/changed file out to registered checkers, running inline ones
// in-process and worker-backed ones over a subprocess JSON protocol, then
// aggregates per-checker diagnostics without blocking the reload path.
package healthhost

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// FileInput is what a checker receives for one file.
type FileInput struct {
	Path         string `json:"path"`
	Content      string `json:"content"`
	RelativePath string `json:"relativePath"`
}

// Diagnostic is one error or warning, located by line/column/length.
type Diagnostic struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Length  int    `json:"length"`
}

// FileCheckResult is one checker's verdict on one file.
type FileCheckResult struct {
	Path     string       `json:"path"`
	Healthy  bool         `json:"healthy"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// Stats aggregates one checker's results across every file it has seen.
type Stats struct {
	Healthy           int `json:"healthy"`
	Defective         int `json:"defective"`
	TotalErrors       int `json:"totalErrors"`
	TotalWarnings     int `json:"totalWarnings"`
	FilesWithErrors   int `json:"filesWithErrors"`
	FilesWithWarnings int `json:"filesWithWarnings"`
}

// Checker is the collaborator contract, shared by inline and
// worker-backed checkers alike.
type Checker interface {
	Name() string
	Initialize() error
	OnFileChanges(files []FileInput) ([]FileCheckResult, error)
	RemoveFile(path string)
	Check(file FileInput) (FileCheckResult, error)
	Stats() (Stats, error)
}

// Host owns every registered checker and the aggregated stats.
type Host struct {
	mu       sync.Mutex
	checkers []Checker
	stats    map[string]Stats
}

// New returns an empty host.
func New() *Host {
	return &Host{stats: make(map[string]Stats)}
}

// Register adds a checker and calls its Initialize hook.
func (h *Host) Register(c Checker) error {
	if err := c.Initialize(); err != nil {
		return fmt.Errorf("healthhost: initialize %s: %w", c.Name(), err)
	}
	h.mu.Lock()
	h.checkers = append(h.checkers, c)
	h.mu.Unlock()
	return nil
}

// RunBatch fans addedOrChanged out to every registered checker and merges
// the per-checker stats. A worker error for a checker is treated as
// "healthy" for the affected files, per the error-handling design: it must
// never block the reload path, and the checker stays registered.
func (h *Host) RunBatch(addedOrChanged []FileInput) map[string]Stats {
	h.mu.Lock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.Unlock()

	out := make(map[string]Stats, len(checkers))
	for _, c := range checkers {
		results, err := c.OnFileChanges(addedOrChanged)
		if err != nil {
			out[c.Name()] = healthyFallback(len(addedOrChanged))
			continue
		}
		stats, statErr := c.Stats()
		if statErr != nil {
			stats = aggregateFromResults(results)
		}
		out[c.Name()] = stats
	}

	h.mu.Lock()
	for name, s := range out {
		h.stats[name] = s
	}
	h.mu.Unlock()
	return out
}

// RemoveFile notifies every checker that path was deleted.
func (h *Host) RemoveFile(path string) {
	h.mu.Lock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.Unlock()

	for _, c := range checkers {
		c.RemoveFile(path)
	}
}

func healthyFallback(fileCount int) Stats {
	return Stats{Healthy: fileCount}
}

func aggregateFromResults(results []FileCheckResult) Stats {
	var s Stats
	for _, r := range results {
		if r.Healthy {
			s.Healthy++
		} else {
			s.Defective++
		}
		if len(r.Errors) > 0 {
			s.FilesWithErrors++
		}
		if len(r.Warnings) > 0 {
			s.FilesWithWarnings++
		}
		s.TotalErrors += len(r.Errors)
		s.TotalWarnings += len(r.Warnings)
	}
	return s
}

// --- worker protocol ---

type workerMessage struct {
	Type         string      `json:"type"`
	Files        []FileInput `json:"files,omitempty"`
	Paths        []string    `json:"paths,omitempty"`
	File         *FileInput  `json:"file,omitempty"`
}

type workerResponse struct {
	Type    string            `json:"type"`
	Results []FileCheckResult `json:"results,omitempty"`
	Stats   *Stats            `json:"stats,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// WorkerChecker adapts an external process (typically a script running on
// the ECMAScript host) to the Checker contract over a line-delimited JSON
// protocol on its stdin/stdout.
type WorkerChecker struct {
	name       string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Scanner
	mu         sync.Mutex
	lastStats  Stats
}

// NewWorkerChecker spawns workerPath with ctx as its lifetime and returns a
// Checker bound to its stdin/stdout.
func NewWorkerChecker(ctx context.Context, name, workerPath string, args ...string) (*WorkerChecker, error) {
	cmd := exec.CommandContext(ctx, workerPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &WorkerChecker{
		name:   name,
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
	}, nil
}

func (w *WorkerChecker) Name() string { return w.name }

func (w *WorkerChecker) send(msg workerMessage) (workerResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return workerResponse{}, err
	}
	if _, err := w.stdin.Write(append(data, '\n')); err != nil {
		return workerResponse{}, err
	}
	if !w.stdout.Scan() {
		return workerResponse{}, fmt.Errorf("healthhost: worker %s closed stdout", w.name)
	}
	var resp workerResponse
	if err := json.Unmarshal(w.stdout.Bytes(), &resp); err != nil {
		return workerResponse{}, err
	}
	if resp.Type == "error" {
		return resp, fmt.Errorf("healthhost: worker %s: %s", w.name, resp.Error)
	}
	return resp, nil
}

func (w *WorkerChecker) Initialize() error {
	_, err := w.send(workerMessage{Type: "init"})
	return err
}

func (w *WorkerChecker) OnFileChanges(files []FileInput) ([]FileCheckResult, error) {
	resp, err := w.send(workerMessage{Type: "fileChanges", Files: files})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (w *WorkerChecker) RemoveFile(path string) {
	_, _ = w.send(workerMessage{Type: "filesDeleted", Paths: []string{path}})
}

func (w *WorkerChecker) Check(file FileInput) (FileCheckResult, error) {
	resp, err := w.send(workerMessage{Type: "check", File: &file})
	if err != nil {
		return FileCheckResult{}, err
	}
	if len(resp.Results) > 0 {
		return resp.Results[0], nil
	}
	return FileCheckResult{Path: file.Path, Healthy: true}, nil
}

func (w *WorkerChecker) Stats() (Stats, error) {
	resp, err := w.send(workerMessage{Type: "check"})
	if err != nil {
		return w.lastStats, err
	}
	if resp.Stats != nil {
		w.lastStats = *resp.Stats
	}
	return w.lastStats, nil
}

func (w *WorkerChecker) Shutdown() error {
	_, _ = w.send(workerMessage{Type: "shutdown"})
	return w.cmd.Wait()
}
