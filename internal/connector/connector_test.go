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
package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	name         string
	priority     int
	watched      []string
	active       bool
	startErr     error
	shutdownErr  error
	startCalls   int
	shutdownSeq  *[]string
}

func (f *fakeConnector) Name() string            { return f.name }
func (f *fakeConnector) Priority() int            { return f.priority }
func (f *fakeConnector) WatchedFiles() []string   { return f.watched }
func (f *fakeConnector) IsActive() bool           { return f.active }
func (f *fakeConnector) Start(ctx context.Context) error {
	f.startCalls++
	f.active = f.startErr == nil
	return f.startErr
}
func (f *fakeConnector) Restart(ctx context.Context) error {
	_ = f.Shutdown(ctx)
	return f.Start(ctx)
}
func (f *fakeConnector) Shutdown(ctx context.Context) error {
	f.active = false
	if f.shutdownSeq != nil {
		*f.shutdownSeq = append(*f.shutdownSeq, f.name)
	}
	return f.shutdownErr
}

func TestOrderedSortsByPriority(t *testing.T) {
	r := New()
	r.Register(&fakeConnector{name: "b", priority: 2})
	r.Register(&fakeConnector{name: "a", priority: 1})

	ordered := r.Ordered()
	assert.Equal(t, "a", ordered[0].Name())
	assert.Equal(t, "b", ordered[1].Name())
}

func TestShutdownAllRunsInReversePriorityOrder(t *testing.T) {
	var seq []string
	r := New()
	r.Register(&fakeConnector{name: "first", priority: 1, shutdownSeq: &seq})
	r.Register(&fakeConnector{name: "second", priority: 2, shutdownSeq: &seq})

	errs := r.ShutdownAll(context.Background())
	require.Empty(t, errs)
	assert.Equal(t, []string{"second", "first"}, seq)
}

func TestShouldRestartExactMatch(t *testing.T) {
	c := &fakeConnector{watched: []string{"src/config/database.ts", ".env"}}
	assert.True(t, ShouldRestart(c, []string{"src/config/database.ts"}))
	assert.False(t, ShouldRestart(c, []string{"src/app/main.ts"}))
}

func TestShouldRestartGlobMatch(t *testing.T) {
	c := &fakeConnector{watched: []string{"src/config/*.ts"}}
	assert.True(t, ShouldRestart(c, []string{"src/config/database.ts"}))
}

func TestRestartAffectedOnlyRestartsMatching(t *testing.T) {
	db := &fakeConnector{name: "db", watched: []string{"src/config/database.ts"}}
	cache := &fakeConnector{name: "cache", watched: []string{"src/config/cache.ts"}}
	r := New()
	r.Register(db)
	r.Register(cache)

	errs := r.RestartAffected(context.Background(), []string{"src/config/database.ts"})
	require.Empty(t, errs)
	assert.Equal(t, 1, db.startCalls)
	assert.Equal(t, 0, cache.startCalls)
}
