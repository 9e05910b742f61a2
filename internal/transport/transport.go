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
// Package transport serves rewritten artifacts, the embedded __import
// runtime shim, and live-reload notifications to the external ECMAScript
// host process over HTTP and WebSocket. It is the process boundary C13's
// dynamic-import helper and C15's reload executor reach across to affect
// "user code" running in a real host.
package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"warlock.dev/warlock/internal/cachestore"
	"warlock.dev/warlock/internal/importhelper"
)

const maxClientReadSize = 64 * 1024

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     isLocalOrigin,
}

// isLocalOrigin allows same-host and localhost WebSocket connections, and
// connections with no Origin header at all (non-browser clients).
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := originURL.Hostname()
	requestHost := r.Host
	if idx := strings.IndexByte(requestHost, ':'); idx != -1 {
		requestHost = requestHost[:idx]
	}
	if host == requestHost || host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}
	return strings.HasPrefix(host, "127.") || strings.HasSuffix(host, ".localhost")
}

// clientMessage is the JSON envelope pushed to every connected host
// runtime; it matches the listener installed by importhelper.RuntimeSource.
type clientMessage struct {
	Type      string `json:"type"`
	CacheName string `json:"cacheName,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub tracks connected host-runtime WebSocket clients and fans out
// clear-module / clear-all notifications.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub returns an empty notification hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg clientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.RLock()
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	var dead []string
	for _, c := range snapshot {
		c.mu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			dead = append(dead, c.id)
		}
	}
	if len(dead) > 0 {
		h.mu.Lock()
		for _, id := range dead {
			if c, ok := h.clients[id]; ok {
				_ = c.conn.Close()
				delete(h.clients, id)
			}
		}
		h.mu.Unlock()
	}
	return nil
}

// Broadcast implements logging.Broadcaster, forwarding raw log-stream
// frames to every connected client untouched.
func (h *Hub) Broadcast(raw []byte) error {
	h.mu.RLock()
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()
	for _, c := range snapshot {
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, raw)
		c.mu.Unlock()
	}
	return nil
}

// ClearModule tells every connected host to drop cacheName's cached
// module so the next __import re-fetches it. Satisfies the signature
// reload.Deps.Broadcast expects: (reason string, cacheNames []string).
func (h *Hub) ClearModule(reason string, cacheNames []string) {
	for _, name := range cacheNames {
		_ = h.broadcast(clientMessage{Type: "clear-module", CacheName: name})
	}
}

// ClearAll tells every connected host to drop its entire module-version
// map.
func (h *Hub) ClearAll() error {
	return h.broadcast(clientMessage{Type: "clear-all"})
}

// HandleWebSocket upgrades the request and registers the connection until
// it disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxClientReadSize)

	c := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Shutdown notifies every client of an impending shutdown and closes all
// connections, bounding each write so a stalled client can't hang it.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "warlock shutting down"))
		c.mu.Unlock()
		_ = c.conn.Close()
		delete(h.clients, id)
	}
}

// Server serves the cache directory's rewritten artifacts, the embedded
// __import runtime shim, and the live-reload WebSocket endpoint.
type Server struct {
	BaseURL  string // path prefix the cache directory is served under, e.g. "/.warlock"
	WSPath   string // path the WebSocket endpoint is mounted at, e.g. "/.warlock/ws"
	WSURL    string // absolute ws:// URL embedded into the runtime shim
	Cache    *cachestore.Store
	Hub      *Hub
	registry *importhelper.Registry
}

// NewServer wires a transport server around an existing cache store, hub,
// and module-version registry.
func NewServer(baseURL, wsPath, wsURL string, cache *cachestore.Store, hub *Hub, registry *importhelper.Registry) *Server {
	return &Server{BaseURL: baseURL, WSPath: wsPath, WSURL: wsURL, Cache: cache, Hub: hub, registry: registry}
}

// Handler returns the composed HTTP handler: runtime shim, WebSocket
// upgrade, and cache-directory static serving, in that priority order.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.BaseURL+"/__warlock_runtime.js", s.serveRuntime)
	mux.HandleFunc(s.WSPath, s.Hub.HandleWebSocket)
	mux.HandleFunc(s.BaseURL+"/", s.serveArtifact)
	return mux
}

func (s *Server) serveRuntime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(importhelper.RuntimeSource(s.BaseURL, s.WSURL)))
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, s.BaseURL+"/")
	cleaned := path.Clean("/" + rel)[1:]
	if cleaned == "" || strings.HasPrefix(cleaned, "..") {
		http.NotFound(w, r)
		return
	}

	content, ok, err := s.Cache.ReadArtifact(cleaned)
	if err != nil || !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case strings.HasSuffix(cleaned, ".js"), strings.HasSuffix(cleaned, ".mjs"):
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	case strings.HasSuffix(cleaned, ".css"):
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case strings.HasSuffix(cleaned, ".json"):
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	case strings.HasSuffix(cleaned, ".map"):
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprint(w, content)
}
