package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 4096
)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	log  *zap.Logger
	send chan []byte
}

// readPump pumps frames from the websocket into hub requests. One per
// connection; it owns all reads.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket closed", zap.String("conn", c.ID), zap.Error(err))
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debug("bad frame", zap.String("conn", c.ID), zap.Error(err))
			continue
		}

		switch frame.Event {
		case EventJoin:
			if frame.ConversationID != "" {
				c.hub.joinRoom(c, frame.ConversationID)
			}
		case EventLeave:
			if frame.ConversationID != "" {
				c.hub.leaveRoom(c, frame.ConversationID)
			}
		case EventMessageNew:
			if frame.ConversationID != "" && len(frame.Payload) > 0 {
				c.hub.relay(c, frame.ConversationID, frame.Payload)
			}
		default:
			c.log.Debug("unknown event", zap.String("event", frame.Event))
		}
	}
}

// writePump pumps frames from the hub to the websocket. One per
// connection; it owns all writes, including pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(frame)

			// Flush queued frames in the same write to cut syscalls.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
