package notifyhub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/desqueeze-go/tool"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxReadBytes = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // OnlyAllowLocal already restricts callers to localhost
	},
}

// HandleNotifyWS upgrades to WebSocket and keeps the client registered until it goes away.
// Clients only listen; pings detect dead peers.
func HandleNotifyWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Warnf("[NotifyHub] WebSocket upgrade failed: %v", err)
			return
		}
		conn.SetReadLimit(maxReadBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		hub.Register(conn)
		tool.DefaultLogger.Debugf("[NotifyHub] %s connected (%d clients)", conn.RemoteAddr(), hub.Len())

		done := make(chan struct{})
		go hub.keepAlive(conn, done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		close(done)
		hub.Unregister(conn)
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Debugf("[NotifyHub] close %s: %v", conn.RemoteAddr(), err)
		}
	}
}

// keepAlive pings conn until done is closed or a ping fails.
func (h *Hub) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.ping(conn); err != nil {
				return
			}
		}
	}
}
