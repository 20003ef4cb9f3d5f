// Package web exposes the session over HTTP and WebSocket for guest
// devices, the operator console, and the desktop performance UI.
package web

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	ws "nhooyr.io/websocket"

	"github.com/utabox/utabox/internal/app/broadcast"
)

const writeTimeout = 5 * time.Second

// frame is the wire format for every server-to-client message.
type frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// wsChannel adapts one WebSocket connection to the broadcast router.
// A single write failure marks the channel dead; the router drops dead
// channels on its next pass.
type wsChannel struct {
	id   string
	role broadcast.Role
	conn *ws.Conn
	dead atomic.Bool
}

func newWSChannel(id string, role broadcast.Role, conn *ws.Conn) *wsChannel {
	return &wsChannel{id: id, role: role, conn: conn}
}

func (c *wsChannel) ID() string           { return c.id }
func (c *wsChannel) Role() broadcast.Role { return c.role }

func (c *wsChannel) IsAlive() bool {
	return !c.dead.Load()
}

func (c *wsChannel) Push(event string, payload any) error {
	if c.dead.Load() {
		return errors.New("channel is closed")
	}

	data, err := json.Marshal(frame{Event: event, Payload: payload})
	if err != nil {
		return errors.Wrap(err, "failed to encode frame")
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
		c.dead.Store(true)
		return errors.Wrap(err, "websocket write failed")
	}
	return nil
}

func (c *wsChannel) close(code ws.StatusCode, reason string) {
	c.dead.Store(true)
	_ = c.conn.Close(code, reason)
}
