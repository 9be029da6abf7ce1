// Package hub is the transport adapter for the coordination core: a
// websocket endpoint agents connect to, plus a small read-only HTTP API
// for dashboards and the CLI. The hub owns all fan-out decisions; the
// core components only produce result records.
package hub

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roost-dev/roost/internal/dispatch"
	"github.com/roost-dev/roost/internal/presence"
	"github.com/roost-dev/roost/pkg/board"
)

// Hub tracks live websocket connections and routes dispatch results to
// them. Thread-safe.
type Hub struct {
	dispatcher *dispatch.Dispatcher
	upgrader   websocket.Upgrader

	// Liveness timing for the ping/pong loop. Overridden in tests.
	pongWait   time.Duration
	pingPeriod time.Duration

	mu    sync.RWMutex
	conns map[string]*connection // connection ID -> connection
}

// NewHub creates a hub over the given dispatcher.
func NewHub(dispatcher *dispatch.Dispatcher) *Hub {
	return &Hub{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Agents connect from arbitrary hosts; the websocket port is
			// expected to sit behind whatever perimeter the deployment has.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pongWait:   defaultPongWait,
		pingPeriod: defaultPingPeriod,
		conns:      make(map[string]*connection),
	}
}

// ConnectionCount returns the number of attached connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// HandleWS upgrades an HTTP request to a websocket, registers the agent
// with the coordination core, and runs the connection's read loop until
// it drops. Identity comes from query parameters: name (required),
// skills (comma-separated, optional).
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	var skills []string
	if raw := r.URL.Query().Get("skills"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] Websocket upgrade failed: %v", err)
		return
	}

	conn := &connection{
		id:        uuid.New().String(),
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		pingEvery: h.pingPeriod,
	}

	result, err := h.dispatcher.Connect(r.Context(), conn.id, presence.Identity{
		Name:   name,
		Skills: skills,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to register connection %s: %v", conn.id, err)
		ws.Close()
		return
	}
	conn.agentID = result.AgentID

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	go conn.writePump()
	h.route(conn, result)

	h.readPump(conn)
}

// readPump consumes inbound frames until the connection drops, then
// detaches the agent and broadcasts its departure.
func (h *Hub) readPump(conn *connection) {
	defer h.drop(conn)

	conn.ws.SetReadLimit(maxMessageSize)
	// A peer that stops ponging times the read out, so a dead TCP
	// connection still evicts its agent.
	conn.ws.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[DEBUG] Connection %s read error: %v", conn.id, err)
			}
			return
		}

		action, err := board.DecodeAction(data)
		if err != nil {
			// Malformed frames get a sender-only rejection, mirroring how
			// business-rule violations surface.
			h.route(conn, &dispatch.Result{
				Kind:      dispatch.ResultRejected,
				AgentID:   conn.agentID,
				Rejection: board.Reject(board.RuleInvalid, conn.id, err.Error()),
				ToSender:  true,
			})
			continue
		}

		result, err := h.dispatcher.Dispatch(context.Background(), conn.id, action)
		if err != nil {
			// Infrastructure fault: the in-memory and durable state may
			// now disagree. Surface it and drop the connection so the
			// agent resyncs on reconnect.
			log.Printf("[ERROR] Dispatch failed on connection %s: %v", conn.id, err)
			return
		}
		if result != nil {
			h.route(conn, result)
		}
	}
}

// drop removes a connection and broadcasts the departure. The send
// channel stays open: a broadcast that snapshotted this connection before
// it was dropped may still enqueue, and those frames are discarded by the
// done signal instead of panicking.
func (h *Hub) drop(conn *connection) {
	h.mu.Lock()
	known := h.conns[conn.id] != nil
	delete(h.conns, conn.id)
	h.mu.Unlock()
	if !known {
		return
	}

	conn.shutdown()
	conn.ws.Close()

	if result := h.dispatcher.Disconnect(context.Background(), conn.id); result != nil {
		h.route(conn, result)
	}
}

// route fans a result out: sender-only results go back on the originating
// connection, workspace-scoped results go to every agent in that
// workspace plus the sender, and everything else goes to all connections.
func (h *Hub) route(sender *connection, result *dispatch.Result) {
	frame, ok := marshalFrame(result)
	if !ok {
		return
	}

	if result.ToSender {
		h.deliver(sender, frame)
		return
	}
	if result.WorkspaceID != "" {
		h.broadcastWorkspace(sender, result.WorkspaceID, frame)
		return
	}
	h.broadcastAll(frame)
}

// deliver sends one frame to one connection, dropping the connection if
// its queue is full.
func (h *Hub) deliver(conn *connection, frame []byte) {
	if conn == nil {
		return
	}
	if !conn.enqueue(frame) {
		log.Printf("[WARN] Connection %s send queue full, dropping", conn.id)
		go h.drop(conn)
	}
}

// broadcastWorkspace sends a frame to every connection whose agent is in
// the given workspace, and always to the sender.
func (h *Hub) broadcastWorkspace(sender *connection, workspaceID string, frame []byte) {
	reg := h.dispatcher.Presence()

	h.mu.RLock()
	targets := make([]*connection, 0, len(h.conns))
	for _, conn := range h.conns {
		if sender != nil && conn.id == sender.id {
			targets = append(targets, conn)
			continue
		}
		agent := reg.Get(conn.agentID)
		if agent != nil && agent.WorkspaceID == workspaceID {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		h.deliver(conn, frame)
	}
}

// broadcastAll sends a frame to every connection.
func (h *Hub) broadcastAll(frame []byte) {
	h.mu.RLock()
	targets := make([]*connection, 0, len(h.conns))
	for _, conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		h.deliver(conn, frame)
	}
}
