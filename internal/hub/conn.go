package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for outbound frames.
	writeWait = 10 * time.Second

	// defaultPongWait is how long a connection may stay silent before the
	// read side gives up; pings go out at the ping period to keep it
	// alive.
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = (defaultPongWait * 9) / 10

	maxMessageSize = 64 * 1024

	// sendBuffer is the per-connection outbound queue. A connection that
	// cannot drain it is dropped rather than allowed to stall the hub.
	sendBuffer = 64
)

// connection is one agent's websocket attachment to the hub. The send
// channel is never closed; shutdown is signalled through done so a
// concurrent enqueue can never hit a closed channel.
type connection struct {
	id        string
	agentID   string
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	pingEvery time.Duration

	closeOnce sync.Once
}

// shutdown signals the write pump to stop. Safe to call more than once
// and from any goroutine.
func (c *connection) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue offers a frame to the connection's outbound queue. Returns false
// when the queue is full; the caller drops the connection. Frames offered
// to a connection that is already shutting down are silently discarded.
func (c *connection) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings. One writePump per connection: gorilla
// permits only a single concurrent writer.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// marshalFrame encodes an outbound record, logging instead of failing:
// a single unencodable payload should not take the connection down.
func marshalFrame(v any) ([]byte, bool) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WARN] Failed to marshal outbound frame: %v", err)
		return nil, false
	}
	return frame, true
}
