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
// Package logging implements the ambient logger: a plain stdlib logger for
// non-interactive runs, and a pterm-backed live-rendering logger for an
// attached terminal, both satisfying the same small Logger interface. Only
// the interactive logger can stream entries to an optional WebSocket
// broadcaster for the dev-server UI; the plain logger has no broadcaster.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// Level identifies the severity of one log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelDebug   Level = "debug"
)

// Logger is the interface every component in the pipeline logs through.
type Logger interface {
	Info(msg string, args ...any)
	Warning(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Broadcaster pushes a log-stream message to every connected client.
type Broadcaster interface {
	Broadcast([]byte) error
}

// Entry is one structured log line, as streamed to connected clients.
type Entry struct {
	Level   Level  `json:"level"`
	At      string `json:"at"` // RFC3339
	Message string `json:"message"`
}

// streamMessage is the WebSocket envelope carrying one or more entries.
type streamMessage struct {
	Type    string  `json:"type"`
	Entries []Entry `json:"entries"`
}

// plainLogger writes through the standard log package; used for
// non-interactive runs (CI, piped output, tests).
type plainLogger struct{}

// NewPlainLogger returns a Logger backed by the standard log package.
func NewPlainLogger() Logger { return &plainLogger{} }

func (l *plainLogger) Info(msg string, args ...any)    { log.Printf("[INFO] "+msg, args...) }
func (l *plainLogger) Warning(msg string, args ...any) { log.Printf("[WARN] "+msg, args...) }
func (l *plainLogger) Error(msg string, args ...any)   { log.Printf("[ERROR] "+msg, args...) }
func (l *plainLogger) Debug(msg string, args ...any)   { log.Printf("[DEBUG] "+msg, args...) }

// pendingEntry buffers a formatted message until the live area starts, so
// nothing prints above it once rendering begins.
type pendingEntry struct {
	level   Level
	message string
	at      time.Time
}

// interactiveLogger renders a live-updating status area via pterm when
// stdout is a terminal, and streams every entry to an optional
// broadcaster for the browser-side log panel.
type interactiveLogger struct {
	verbose bool

	mu        sync.Mutex
	renderMu  sync.Mutex // serializes area.Update calls
	history   []Entry
	termLines []string
	pending   []pendingEntry

	maxHistory   int
	maxTermLines int

	interactive bool
	area        *pterm.AreaPrinter
	status      string
	broadcaster Broadcaster
}

// NewInteractiveLogger returns a Logger that renders a live status area
// when attached to a terminal, falling back to plain pterm output
// otherwise.
func NewInteractiveLogger(verbose bool) Logger {
	return &interactiveLogger{
		verbose:      verbose,
		maxHistory:   200,
		maxTermLines: 50,
		interactive:  term.IsTerminal(int(os.Stdout.Fd())),
		status:       "starting",
	}
}

// Start begins live rendering. Call once initial setup logging is done so
// early messages don't appear above the area.
func (l *interactiveLogger) Start() {
	l.mu.Lock()
	if !l.interactive {
		l.mu.Unlock()
		return
	}
	if l.area != nil {
		l.mu.Unlock()
		l.render()
		return
	}
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	area, _ := pterm.DefaultArea.Start()

	l.mu.Lock()
	if l.area != nil {
		l.mu.Unlock()
		if area != nil {
			_ = area.Stop()
		}
		return
	}
	l.area = area
	for _, p := range pending {
		l.bufferTermLine(p.level, p.message, p.at)
	}
	l.mu.Unlock()

	if area != nil {
		l.render()
	}
}

// Stop ends live rendering.
func (l *interactiveLogger) Stop() {
	l.mu.Lock()
	area := l.area
	l.area = nil
	l.mu.Unlock()
	if area != nil {
		if err := area.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "logging: failed to stop live area: %v\n", err)
		}
	}
}

// SetStatus updates the status line rendered beneath the log history.
func (l *interactiveLogger) SetStatus(status string) {
	l.mu.Lock()
	l.status = status
	l.mu.Unlock()
	if l.interactive {
		l.render()
	}
}

// SetBroadcaster wires a client broadcaster; every subsequent entry is
// also streamed to it.
func (l *interactiveLogger) SetBroadcaster(b Broadcaster) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broadcaster = b
}

// SetVerbose toggles whether debug entries are printed to the terminal.
// They are always recorded in history and broadcast regardless.
func (l *interactiveLogger) SetVerbose(verbose bool) {
	l.mu.Lock()
	l.verbose = verbose
	l.mu.Unlock()
}

// History returns a snapshot of buffered entries, for a late-joining
// client's initial log replay.
func (l *interactiveLogger) History() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.history))
	copy(out, l.history)
	return out
}

func (l *interactiveLogger) render() {
	l.mu.Lock()
	if !l.interactive || l.area == nil {
		l.mu.Unlock()
		return
	}
	var sb strings.Builder
	for _, line := range l.termLines {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + pterm.FgGray.Sprint(strings.Repeat("-", 80)) + "\n")
	sb.WriteString(pterm.FgLightGreen.Sprint("* ") + l.status)
	area := l.area
	output := sb.String()
	l.mu.Unlock()

	l.renderMu.Lock()
	area.Update(output)
	l.renderMu.Unlock()
}

func (l *interactiveLogger) bufferTermLine(level Level, message string, at time.Time) {
	var prefix, colored string
	switch level {
	case LevelInfo:
		prefix, colored = pterm.FgCyan.Sprint("INFO "), message
	case LevelWarning:
		prefix, colored = pterm.FgYellow.Sprint("WARN "), pterm.FgYellow.Sprint(message)
	case LevelError:
		prefix, colored = pterm.FgRed.Sprint("ERROR"), pterm.FgRed.Sprint(message)
	case LevelDebug:
		prefix, colored = pterm.FgGray.Sprint("DEBUG"), pterm.FgGray.Sprint(message)
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	visual := len(prefix) + 1 + len(message)
	padding := width - visual - 10
	if padding < 1 {
		padding = 1
	}
	timestamp := pterm.FgGray.Sprint(at.Format("15:04:05"))
	line := fmt.Sprintf(" %s %s%s%s", prefix, colored, strings.Repeat(" ", padding), timestamp)

	l.termLines = append(l.termLines, line)
	if len(l.termLines) > l.maxTermLines {
		l.termLines = l.termLines[len(l.termLines)-l.maxTermLines:]
	}
}

func (l *interactiveLogger) emit(level Level, msg string, args ...any) {
	formatted := fmt.Sprintf(msg, args...)
	now := time.Now()
	entry := Entry{Level: level, At: now.Format(time.RFC3339), Message: formatted}

	l.mu.Lock()
	l.history = append(l.history, entry)
	if len(l.history) > l.maxHistory {
		l.history = l.history[len(l.history)-l.maxHistory:]
	}
	broadcaster := l.broadcaster
	shouldPrint := level != LevelDebug || l.verbose

	if shouldPrint {
		if l.interactive {
			if l.area != nil {
				l.bufferTermLine(level, formatted, now)
				l.mu.Unlock()
				l.render()
			} else {
				l.pending = append(l.pending, pendingEntry{level: level, message: formatted, at: now})
				l.mu.Unlock()
			}
		} else {
			l.mu.Unlock()
			switch level {
			case LevelInfo:
				pterm.Info.Println(formatted)
			case LevelWarning:
				pterm.Warning.Println(formatted)
			case LevelError:
				pterm.Error.Println(formatted)
			case LevelDebug:
				pterm.Debug.Println(formatted)
			}
		}
	} else {
		l.mu.Unlock()
	}

	if broadcaster != nil {
		if data, err := json.Marshal(streamMessage{Type: "logs", Entries: []Entry{entry}}); err == nil {
			_ = broadcaster.Broadcast(data)
		}
	}
}

func (l *interactiveLogger) Info(msg string, args ...any)    { l.emit(LevelInfo, msg, args...) }
func (l *interactiveLogger) Warning(msg string, args ...any) { l.emit(LevelWarning, msg, args...) }
func (l *interactiveLogger) Error(msg string, args ...any)   { l.emit(LevelError, msg, args...) }
func (l *interactiveLogger) Debug(msg string, args ...any)   { l.emit(LevelDebug, msg, args...) }

// Clear drops all buffered history and terminal lines.
func (l *interactiveLogger) Clear() {
	l.mu.Lock()
	l.history = nil
	l.termLines = nil
	l.mu.Unlock()
	if l.interactive {
		l.render()
	}
}
