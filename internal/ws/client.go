package ws

import (
	"context"
	"sync"
	"time"

	"collab-canvas/internal/auth"
	"collab-canvas/internal/hub"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

// clientMessage is what the editor UI sends upstream over the socket:
// cursor movements and soft-lock transitions around drag gestures.
// Shape mutations go through the REST API where conflict errors have a
// response to land in.
type clientMessage struct {
	Type    string  `json:"type"` // "cursor", "lock" or "unlock"
	ShapeID string  `json:"shape_id,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

type client struct {
	gateway  *Gateway
	conn     *websocket.Conn
	sub      *hub.Subscription
	canvasID string
	user     auth.Identity

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(g *Gateway, conn *websocket.Conn, canvasID string, user auth.Identity) *client {
	return &client{
		gateway:  g,
		conn:     conn,
		sub:      g.hub.Subscribe(canvasID),
		canvasID: canvasID,
		user:     user,
		done:     make(chan struct{}),
	}
}

// sendInitialState pushes a full snapshot of each kind so the client
// renders the current canvas before any change arrives.
func (c *client) sendInitialState(ctx context.Context) {
	if shapes, err := c.gateway.shapes.ListShapes(ctx, c.canvasID); err == nil {
		c.sub.Push(hub.Snapshot{Kind: hub.KindShapes, CanvasID: c.canvasID, Payload: shapes})
	}
	if locks, err := c.gateway.locks.Snapshot(ctx, c.canvasID); err == nil {
		c.sub.Push(hub.Snapshot{Kind: hub.KindLocks, CanvasID: c.canvasID, Payload: locks})
	}
	if entries, err := c.gateway.presence.Snapshot(ctx, c.canvasID); err == nil {
		c.sub.Push(hub.Snapshot{Kind: hub.KindPresence, CanvasID: c.canvasID, Payload: entries})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return

		case <-c.sub.Ready():
			for _, snap := range c.sub.Drain() {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteJSON(snap); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithFields(logrus.Fields{
					"canvas_id": c.canvasID,
					"user_id":   c.user.ID,
					"error":     err,
				}).Debug("websocket closed unexpectedly")
			}
			return
		}

		c.handle(msg)
	}
}

func (c *client) handle(msg clientMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "cursor":
		c.gateway.presence.UpdateCursor(c.canvasID, c.user, msg.X, msg.Y)

	case "lock":
		if msg.ShapeID == "" {
			return
		}
		if err := c.gateway.locks.Acquire(ctx, c.canvasID, msg.ShapeID, c.user); err != nil {
			logrus.WithFields(logrus.Fields{
				"canvas_id": c.canvasID,
				"shape_id":  msg.ShapeID,
				"error":     err,
			}).Warn("lock acquire over websocket failed")
		}

	case "unlock":
		if msg.ShapeID == "" {
			return
		}
		c.gateway.locks.Release(ctx, c.canvasID, msg.ShapeID)
	}
}

// close runs exactly once no matter which pump exits first: unsubscribe
// from the hub, remove presence (best effort) and drop the socket.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.sub.Unsubscribe()
		c.gateway.presence.Leave(context.Background(), c.canvasID, c.user.ID)
		c.conn.Close()

		logrus.WithFields(logrus.Fields{
			"canvas_id": c.canvasID,
			"user_id":   c.user.ID,
		}).Info("client disconnected")
	})
}
