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
package importscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeExists(paths ...string) Exists {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return func(p string) bool { return set[p] }
}

func TestParseRelativeImport(t *testing.T) {
	source := []byte(`import { a, b } from "./utils";`)
	result, err := Parse(source, "/project/src/app/main.ts", Options{
		Exists: fakeExists("/project/src/app/utils.ts"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/project/src/app/utils.ts", result["./utils"])
}

func TestParseSkipsExternal(t *testing.T) {
	source := []byte(`import express from "express";`)
	result, err := Parse(source, "/project/src/app/main.ts", Options{Exists: fakeExists()})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestParseSkipsTypeOnly(t *testing.T) {
	source := []byte(`import type { User } from "./types";`)
	result, err := Parse(source, "/project/src/app/main.ts", Options{
		Exists: fakeExists("/project/src/app/types.ts"),
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestParseMixedSpecifiersRetained(t *testing.T) {
	source := []byte(`import { type A, b } from "./mixed";`)
	result, err := Parse(source, "/project/src/app/main.ts", Options{
		Exists: fakeExists("/project/src/app/mixed.ts"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/project/src/app/mixed.ts", result["./mixed"])
}

func TestParseDTSYieldsEmpty(t *testing.T) {
	result, err := Parse([]byte(`import { a } from "./a";`), "/project/src/types.d.ts", Options{
		Exists: fakeExists("/project/src/a.ts"),
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestParseExportFrom(t *testing.T) {
	source := []byte(`export { a } from "./a";`)
	result, err := Parse(source, "/project/src/app/main.ts", Options{
		Exists: fakeExists("/project/src/app/a.ts"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/project/src/app/a.ts", result["./a"])
}

func TestParseDynamicImport(t *testing.T) {
	source := []byte(`const mod = await import("./lazy");`)
	result, err := Parse(source, "/project/src/app/main.ts", Options{
		Exists: fakeExists("/project/src/app/lazy.ts"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/project/src/app/lazy.ts", result["./lazy"])
}

func TestIsTypeOnlyClause(t *testing.T) {
	assert.True(t, isTypeOnlyClause("{ type A, type B }"))
	assert.False(t, isTypeOnlyClause("{ type A, b }"))
	assert.False(t, isTypeOnlyClause("{ a }"))
	assert.False(t, isTypeOnlyClause("Default"))
}
