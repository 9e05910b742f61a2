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
package config

import "testing"

func TestCloneDeepCopiesWatchIgnore(t *testing.T) {
	original := &WarlockConfig{Serve: ServeConfig{WatchIgnore: []string{"dist/**"}}}
	clone := original.Clone()

	clone.Serve.WatchIgnore[0] = "mutated"

	if original.Serve.WatchIgnore[0] != "dist/**" {
		t.Fatalf("expected original to be unaffected by clone mutation, got %q", original.Serve.WatchIgnore[0])
	}
}

func TestCloneOfNilReturnsNil(t *testing.T) {
	var cfg *WarlockConfig
	if cfg.Clone() != nil {
		t.Fatal("expected Clone of nil receiver to return nil")
	}
}

func TestDefaultServeConfigHasSaneDefaults(t *testing.T) {
	d := DefaultServeConfig()
	if d.Port == 0 {
		t.Error("expected a non-zero default port")
	}
	if d.DebounceMs == 0 {
		t.Error("expected a non-zero default debounce")
	}
	if d.BatchSize == 0 {
		t.Error("expected a non-zero default batch size")
	}
}
