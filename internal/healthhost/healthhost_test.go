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
package healthhost

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	name        string
	initErr     error
	changesErr  error
	results     []FileCheckResult
	removed     []string
}

func (f *fakeChecker) Name() string      { return f.name }
func (f *fakeChecker) Initialize() error { return f.initErr }
func (f *fakeChecker) OnFileChanges(files []FileInput) ([]FileCheckResult, error) {
	if f.changesErr != nil {
		return nil, f.changesErr
	}
	return f.results, nil
}
func (f *fakeChecker) RemoveFile(path string) { f.removed = append(f.removed, path) }
func (f *fakeChecker) Check(file FileInput) (FileCheckResult, error) {
	return FileCheckResult{Path: file.Path, Healthy: true}, nil
}
func (f *fakeChecker) Stats() (Stats, error) {
	return Stats{}, errors.New("not implemented, derive from results")
}

func TestRegisterCallsInitialize(t *testing.T) {
	h := New()
	c := &fakeChecker{name: "lint"}
	require.NoError(t, h.Register(c))

	failing := &fakeChecker{name: "broken", initErr: errors.New("init failed")}
	require.Error(t, h.Register(failing))
}

func TestRunBatchAggregatesFromResults(t *testing.T) {
	h := New()
	c := &fakeChecker{
		name: "types",
		results: []FileCheckResult{
			{Path: "a.ts", Healthy: true},
			{Path: "b.ts", Healthy: false, Errors: []Diagnostic{{Message: "boom", Line: 1}}},
		},
	}
	require.NoError(t, h.Register(c))

	stats := h.RunBatch([]FileInput{{Path: "a.ts"}, {Path: "b.ts"}})
	assert.Equal(t, 1, stats["types"].Healthy)
	assert.Equal(t, 1, stats["types"].Defective)
	assert.Equal(t, 1, stats["types"].TotalErrors)
}

func TestRunBatchWorkerErrorTreatedAsHealthy(t *testing.T) {
	h := New()
	c := &fakeChecker{name: "flaky", changesErr: errors.New("worker crashed")}
	require.NoError(t, h.Register(c))

	stats := h.RunBatch([]FileInput{{Path: "a.ts"}, {Path: "b.ts"}})
	assert.Equal(t, 2, stats["flaky"].Healthy)
	assert.Equal(t, 0, stats["flaky"].Defective)
}

func TestRemoveFileNotifiesAllCheckers(t *testing.T) {
	h := New()
	c := &fakeChecker{name: "lint"}
	require.NoError(t, h.Register(c))

	h.RemoveFile("gone.ts")
	assert.Equal(t, []string{"gone.ts"}, c.removed)
}
