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
package logging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBroadcaster struct {
	messages [][]byte
}

func (m *mockBroadcaster) Broadcast(msg []byte) error {
	m.messages = append(m.messages, msg)
	return nil
}

func TestInteractiveLoggerBroadcastsDebugRegardlessOfVerbose(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		l := NewInteractiveLogger(verbose)
		mock := &mockBroadcaster{}

		setter, ok := l.(interface{ SetBroadcaster(Broadcaster) })
		require.True(t, ok)
		setter.SetBroadcaster(mock)

		l.Debug("debug message")
		require.NotEmpty(t, mock.messages)

		var stream streamMessage
		require.NoError(t, json.Unmarshal(mock.messages[0], &stream))
		require.Len(t, stream.Entries, 1)
		assert.Equal(t, "debug message", stream.Entries[0].Message)
		assert.Equal(t, LevelDebug, stream.Entries[0].Level)
	}
}

func TestInteractiveLoggerHistoryRecordsEveryEntry(t *testing.T) {
	l := NewInteractiveLogger(false)
	historian := l.(interface{ History() []Entry })

	l.Info("first")
	l.Warning("second")
	l.Error("third")

	history := historian.History()
	require.Len(t, history, 3)
	assert.Equal(t, LevelInfo, history[0].Level)
	assert.Equal(t, LevelWarning, history[1].Level)
	assert.Equal(t, LevelError, history[2].Level)
}

func TestInteractiveLoggerHistoryCapsAtMax(t *testing.T) {
	l := NewInteractiveLogger(false).(*interactiveLogger)
	l.maxHistory = 3

	for i := 0; i < 5; i++ {
		l.Info("entry %d", i)
	}

	assert.Len(t, l.History(), 3)
	assert.Equal(t, "entry 4", l.History()[2].Message)
}

func TestInteractiveLoggerClearResetsHistory(t *testing.T) {
	l := NewInteractiveLogger(false)
	l.Info("something")

	clearer := l.(interface{ Clear() })
	clearer.Clear()

	historian := l.(interface{ History() []Entry })
	assert.Empty(t, historian.History())
}

func TestInteractiveLoggerFormatsArgsLikePrintf(t *testing.T) {
	l := NewInteractiveLogger(false)
	historian := l.(interface{ History() []Entry })

	l.Info("file %s changed %d times", "leaf.ts", 3)

	history := historian.History()
	require.Len(t, history, 1)
	assert.Equal(t, "file leaf.ts changed 3 times", history[0].Message)
}

func TestPlainLoggerSatisfiesInterface(t *testing.T) {
	var l Logger = NewPlainLogger()
	l.Info("hello")
	l.Warning("hello")
	l.Error("hello")
	l.Debug("hello")
}
