package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/events"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is already enforced by the CORS allow-list on the handshake
	// request; the upgrade itself accepts any origin that reached here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Broadcaster is the subset of events.Broadcaster the gateway's WS route
// needs — accepted as an interface so routes.go does not need to import
// the concrete type at construction time.
type Broadcaster interface {
	Join(sub *events.Subscriber) func()
}

// WireBroadcaster attaches a live Broadcaster to the server so GET /ws
// can join subscribers to it. Must be called before Mount's /ws route is
// first hit; nil disables the endpoint (501).
func (s *Server) WireBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// handleWebSocket implements GET /ws (spec §6): a server-to-client event
// stream. The connection is upgraded, registered with the Broadcaster
// under the caller's Principal.ID (for target=user routing), and held
// open until the client disconnects or the server shuts down.
func (s *Server) handleWebSocket(c *gin.Context) {
	if s.broadcaster == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event stream not configured"})
		return
	}

	principal, err := identity.PrincipalFromGin(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := events.NewSubscriber(principal.ID, conn)
	leave := s.broadcaster.Join(sub)
	defer leave()

	// The connection is server-to-client only; the read loop exists
	// purely to detect client disconnects and keep the socket drained.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
