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
package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddDepBidirectional(t *testing.T) {
	g := New()
	g.AddDep("main.ts", "utils.ts")
	assert.ElementsMatch(t, []string{"utils.ts"}, g.GetDependencies("main.ts"))
	assert.ElementsMatch(t, []string{"main.ts"}, g.GetDependents("utils.ts"))
}

func TestRemoveDep(t *testing.T) {
	g := New()
	g.AddDep("main.ts", "utils.ts")
	g.RemoveDep("main.ts", "utils.ts")
	assert.Empty(t, g.GetDependencies("main.ts"))
	assert.Empty(t, g.GetDependents("utils.ts"))
}

func TestRemoveNode(t *testing.T) {
	g := New()
	g.AddDep("main.ts", "utils.ts")
	g.AddDep("routes.ts", "main.ts")
	g.RemoveNode("main.ts")
	assert.Empty(t, g.GetDependents("utils.ts"))
	assert.Empty(t, g.GetDependencies("routes.ts"))
}

func TestUpdateFileReplacesEdges(t *testing.T) {
	g := New()
	g.AddDep("main.ts", "a.ts")
	g.AddDep("main.ts", "b.ts")
	g.UpdateFile("main.ts", []string{"b.ts", "c.ts"})
	assert.ElementsMatch(t, []string{"b.ts", "c.ts"}, g.GetDependencies("main.ts"))
	assert.Empty(t, g.GetDependents("a.ts"))
}

func TestInvalidationChainStartsWithSelfNoDuplicates(t *testing.T) {
	g := New()
	g.AddDep("main.ts", "utils.ts")
	g.AddDep("routes.ts", "main.ts")

	chain := g.InvalidationChain("utils.ts")
	assert.Equal(t, "utils.ts", chain[0])
	assert.ElementsMatch(t, []string{"utils.ts", "main.ts", "routes.ts"}, chain)

	seen := make(map[string]bool)
	for _, n := range chain {
		assert.False(t, seen[n])
		seen[n] = true
	}
}

func TestDetectCyclesTwoNodes(t *testing.T) {
	g := New()
	g.AddDep("a.ts", "b.ts")
	g.AddDep("b.ts", "a.ts")

	cycles := g.DetectCycles()
	require := assert.New(t)
	require.NotEmpty(cycles)
	for _, c := range cycles {
		require.True(len(c) >= 2)
	}
}

func TestDetectCyclesAcyclic(t *testing.T) {
	g := New()
	g.AddDep("main.ts", "utils.ts")
	assert.Empty(t, g.DetectCycles())
}
