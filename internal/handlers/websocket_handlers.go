package handlers

import (
	"net/http"

	"livechat/internal/auth"
	ws "livechat/internal/websocket"
	"livechat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

// NewWebSocketHandlers accepts upgrades from allowedOrigin only; an empty
// value or "*" accepts any origin.
func NewWebSocketHandlers(authService *auth.Service, hub *ws.Hub, allowedOrigin string) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// HandleWebSocket authorizes the handshake with the same session check as
// the HTTP API. An unauthorized request is refused before the upgrade, so
// it never joins the presence set.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireSession(w, r, h.authService)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, identity)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
