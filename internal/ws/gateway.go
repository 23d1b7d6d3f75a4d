// Package ws is the push side of Subscribe: one websocket per client
// per canvas, fed by the fan-out hub. The gateway owns the connection
// lifecycle, so an ungraceful disconnect (read error, missed pong)
// triggers the same best-effort presence cleanup as a graceful leave.
package ws

import (
	"net/http"

	"collab-canvas/internal/hub"
	"collab-canvas/internal/middleware"
	"collab-canvas/internal/presence"
	"collab-canvas/internal/shape"
	"collab-canvas/internal/softlock"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Gateway struct {
	hub      *hub.Hub
	shapes   shape.Service
	locks    *softlock.Service
	presence *presence.Service
	upgrader websocket.Upgrader
}

func NewGateway(
	fanout *hub.Hub,
	shapes shape.Service,
	locks *softlock.Service,
	presenceService *presence.Service,
) *Gateway {
	return &Gateway{
		hub:      fanout,
		shapes:   shapes,
		locks:    locks,
		presence: presenceService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// cross-origin policy is enforced by the router's CORS
			// middleware; the token already authenticated the caller
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request, joins the caller to the
// canvas's presence set and streams snapshots until the peer goes away.
func (g *Gateway) HandleConnection(c *gin.Context) {
	canvasID := c.Param("id")
	user := middleware.CurrentIdentity(c)

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"error":     err,
		}).Warn("websocket upgrade failed")
		return
	}

	client := newClient(g, conn, canvasID, user)

	if err := g.presence.Join(c.Request.Context(), canvasID, user); err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"user_id":   user.ID,
			"error":     err,
		}).Warn("presence join failed on connect")
	}

	client.sendInitialState(c.Request.Context())

	go client.writePump()
	go client.readPump()

	logrus.WithFields(logrus.Fields{
		"canvas_id":   canvasID,
		"user_id":     user.ID,
		"subscribers": g.hub.SubscriberCount(canvasID),
	}).Info("client subscribed")
}
