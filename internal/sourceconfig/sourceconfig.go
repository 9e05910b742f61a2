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
// Package sourceconfig loads the project's language compiler configuration
// (target, path aliases) and answers alias-resolution queries for the
// import parser.
package sourceconfig

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"warlock.dev/warlock/internal/fileops"
)

// Target is the ECMAScript target the transpiler emits for.
type Target string

const (
	TargetES2022 Target = "es2022"
)

// Alias is a single path-mapping entry: a pattern (possibly containing one
// "*") and the directories it expands to, in preference order.
type Alias struct {
	Pattern string
	Targets []string
}

// Config holds the resolved compiler configuration for a project.
type Config struct {
	Target  Target
	BaseURL string
	Aliases []Alias
}

type rawTsConfig struct {
	CompilerOptions *rawCompilerOptions `json:"compilerOptions"`
	Extends         string              `json:"extends"`
}

type rawCompilerOptions struct {
	Target  string              `json:"target"`
	BaseURL string              `json:"baseUrl"`
	Paths   map[string][]string `json:"paths"`
}

// Load reads path (typically tsconfig.json), following "extends" chains
// (max depth 5, matching the teacher's tsconfig parser), and returns the
// merged alias table. A missing file yields an empty, valid Config rather
// than an error: absence of compiler config is not a failure mode here.
func Load(path string, fs fileops.FileSystem) (*Config, error) {
	cfg, err := loadRecursive(path, fs, 0, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	if cfg.Target == "" {
		cfg.Target = TargetES2022
	}
	return cfg, nil
}

func loadRecursive(path string, fs fileops.FileSystem, depth int, visited map[string]bool) (*Config, error) {
	const maxDepth = 5
	if depth > maxDepth {
		return nil, fmt.Errorf("sourceconfig: extends depth exceeded (max %d)", maxDepth)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	if visited[absPath] {
		return nil, fmt.Errorf("sourceconfig: circular extends at %s", absPath)
	}
	visited[absPath] = true

	data, err := fs.ReadFile(path)
	if err != nil {
		if fileops.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("sourceconfig: reading %s: %w", path, err)
	}

	var raw rawTsConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("sourceconfig: parsing %s: %w", path, err)
	}

	cfg := &Config{}
	dir := filepath.Dir(path)

	if raw.Extends != "" {
		extendsPath := filepath.Join(dir, raw.Extends)
		if !strings.HasSuffix(extendsPath, ".json") {
			extendsPath += ".json"
		}
		base, err := loadRecursive(extendsPath, fs, depth+1, visited)
		if err != nil {
			return nil, err
		}
		cfg = base
	}

	if raw.CompilerOptions != nil {
		if raw.CompilerOptions.Target != "" {
			cfg.Target = Target(strings.ToLower(raw.CompilerOptions.Target))
		}
		if raw.CompilerOptions.BaseURL != "" {
			cfg.BaseURL = filepath.Join(dir, raw.CompilerOptions.BaseURL)
		}
		for pattern, targets := range raw.CompilerOptions.Paths {
			resolved := make([]string, 0, len(targets))
			base := cfg.BaseURL
			if base == "" {
				base = dir
			}
			for _, t := range targets {
				resolved = append(resolved, filepath.Join(base, t))
			}
			cfg.Aliases = append(cfg.Aliases, Alias{Pattern: pattern, Targets: resolved})
		}
	}

	return cfg, nil
}

// IsAlias reports whether specifier matches a configured path alias whose
// target differs from the alias pattern itself — a no-op alias (identity
// mapping) does not count, matching the contract that only "real" path
// aliases are resolved here rather than through relative/bare resolution.
func (c *Config) IsAlias(specifier string) (Alias, bool) {
	if c == nil {
		return Alias{}, false
	}
	for _, a := range c.Aliases {
		if matchesPattern(a.Pattern, specifier) && !isIdentityAlias(a, specifier) {
			return a, true
		}
	}
	return Alias{}, false
}

// ResolveAlias expands specifier against a matched alias's target
// directories, substituting the "*" wildcard capture if present. Returns
// candidate absolute base paths (without extension) in preference order;
// the caller (import parser) probes extensions against each.
func (c *Config) ResolveAlias(specifier string) ([]string, bool) {
	alias, ok := c.IsAlias(specifier)
	if !ok {
		return nil, false
	}
	capture := captureWildcard(alias.Pattern, specifier)
	candidates := make([]string, 0, len(alias.Targets))
	for _, target := range alias.Targets {
		candidates = append(candidates, strings.Replace(target, "*", capture, 1))
	}
	return candidates, true
}

func matchesPattern(pattern, specifier string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == specifier
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return strings.HasPrefix(specifier, prefix) && strings.HasSuffix(specifier, suffix) && len(specifier) >= len(prefix)+len(suffix)
}

func captureWildcard(pattern, specifier string) string {
	if !strings.Contains(pattern, "*") {
		return ""
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return strings.TrimSuffix(strings.TrimPrefix(specifier, prefix), suffix)
}

// isIdentityAlias detects the degenerate case where the alias has exactly
// one target and it equals the specifier itself (no real remapping), which
// the import parser treats
// as "not an alias" so it falls through to relative/bare resolution.
func isIdentityAlias(a Alias, specifier string) bool {
	if len(a.Targets) != 1 {
		return false
	}
	return a.Targets[0] == specifier
}
