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
// Package config defines the shape of .warlock.yaml and the viper keys
// the CLI binds its flags into, mirroring the teacher's cmd/config
// package structure (plain mapstructure-tagged structs, a Clone method
// for safe mutation of a loaded config).
package config

// ServeConfig holds every setting the serve command reads from flags or
// .warlock.yaml.
type ServeConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
	// DebounceMs is the watcher's event-batching window.
	DebounceMs int `mapstructure:"debounceMs" yaml:"debounceMs"`
	// WatchIgnore holds glob patterns excluded from the file watcher.
	WatchIgnore []string `mapstructure:"watchIgnore" yaml:"watchIgnore"`
	// EnvFile is the project-relative path of the root environment file
	// whose change forces every config special file to reload.
	EnvFile string `mapstructure:"envFile" yaml:"envFile"`
	// BatchSize bounds concurrent file processing during startup.
	BatchSize int `mapstructure:"batchSize" yaml:"batchSize"`
}

// WarlockConfig is the full .warlock.yaml document.
type WarlockConfig struct {
	ProjectDir string      `mapstructure:"projectDir" yaml:"projectDir"`
	ConfigFile string      `mapstructure:"configFile" yaml:"configFile"`
	Serve      ServeConfig `mapstructure:"serve" yaml:"serve"`
	Verbose    bool        `mapstructure:"verbose" yaml:"verbose"`
}

// Clone returns a deep-enough copy safe to mutate independently of c.
func (c *WarlockConfig) Clone() *WarlockConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Serve.WatchIgnore != nil {
		clone.Serve.WatchIgnore = make([]string, len(c.Serve.WatchIgnore))
		copy(clone.Serve.WatchIgnore, c.Serve.WatchIgnore)
	}
	return &clone
}

// DefaultServeConfig returns the values assumed when .warlock.yaml and
// flags are both silent on a key.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Port:       8787,
		DebounceMs: 150,
		EnvFile:    ".env",
		BatchSize:  500,
	}
}
