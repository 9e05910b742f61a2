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
// Package queries owns the tree-sitter grammars and pooled parsers shared
// by the import scanner and the import rewriter. The export analyzer is
// regex-based and does not use a syntax tree.
package queries

import (
	"fmt"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var languages = struct {
	typescript *ts.Language
	tsx        *ts.Language
}{
	typescript: ts.NewLanguage(tsTypescript.LanguageTypescript()),
	tsx:        ts.NewLanguage(tsTypescript.LanguageTSX()),
}

var typescriptParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(languages.typescript); err != nil {
			panic(fmt.Sprintf("queries: failed to set TypeScript language: %v", err))
		}
		return parser
	},
}

var tsxParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(languages.tsx); err != nil {
			panic(fmt.Sprintf("queries: failed to set TSX language: %v", err))
		}
		return parser
	},
}

// GetTypeScriptParser returns a pooled .ts parser. Always call
// PutTypeScriptParser when done.
func GetTypeScriptParser() *ts.Parser {
	return typescriptParserPool.Get().(*ts.Parser)
}

// PutTypeScriptParser returns a parser to the pool.
func PutTypeScriptParser(parser *ts.Parser) {
	parser.Reset()
	typescriptParserPool.Put(parser)
}

// GetTSXParser returns a pooled .tsx parser. Always call PutTSXParser when
// done.
func GetTSXParser() *ts.Parser {
	return tsxParserPool.Get().(*ts.Parser)
}

// PutTSXParser returns a parser to the pool.
func PutTSXParser(parser *ts.Parser) {
	parser.Reset()
	tsxParserPool.Put(parser)
}

// ParserFor selects the pooled parser for a file by extension.
func ParserFor(isTSX bool) *ts.Parser {
	if isTSX {
		return GetTSXParser()
	}
	return GetTypeScriptParser()
}

// Release returns parser to the correct pool.
func Release(parser *ts.Parser, isTSX bool) {
	if isTSX {
		PutTSXParser(parser)
		return
	}
	PutTypeScriptParser(parser)
}

// Note: query cursors are never pooled — they carry mutable match state
// that leaks between unrelated queries if reused.
