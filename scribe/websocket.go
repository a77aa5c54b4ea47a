package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// wsConnection carries complete recordings over a websocket: each binary
// message is one recording and is answered with one JSON text message.
type wsConnection struct {
	conn      *websocket.Conn
	id        uuid.UUID
	send      chan []byte
	scribe    *Scribe
	closeOnce sync.Once
}

func (s *Scribe) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade connection to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	wsConn := &wsConnection{
		conn:   conn,
		id:     uuid.New(),
		send:   make(chan []byte, 16),
		scribe: s,
	}
	s.logger.Info("WebSocket client connected", "connectionID", wsConn.id, "remoteAddr", r.RemoteAddr)

	go wsConn.writePump()
	wsConn.readPump(r.Context())
}

func (c *wsConnection) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConnection) readPump(ctx context.Context) {
	defer func() {
		c.close()
		c.scribe.logger.Info("WebSocket client disconnected", "connectionID", c.id)
	}()

	c.conn.SetReadLimit(c.scribe.config.MaxUploadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.scribe.logger.Error("WebSocket read error", "error", err, "connectionID", c.id)
			}
			return
		}
		// Processing can outlast pongWait; the deadline restarts per recording.
		c.conn.SetReadDeadline(time.Time{})

		req := c.scribe.requests.Begin(c.conn.RemoteAddr().String())
		respond := func(status int, body any) {
			payload, err := json.Marshal(body)
			if err != nil {
				c.scribe.logger.Error("Failed to marshal message", "error", err)
				return
			}
			c.send <- payload
		}

		if messageType != websocket.BinaryMessage || len(data) == 0 {
			c.scribe.respondError(req, clientError("receive", msgNoAudio, nil), respond)
			c.scribe.finish(req)
		} else {
			c.scribe.handleRecording(ctx, req, bytes.NewReader(data), respond)
		}

		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
