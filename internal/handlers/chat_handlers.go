package handlers

import (
	"net/http"
	"strconv"

	"livechat/internal/auth"
	"livechat/internal/models"
	"livechat/internal/services"
	ws "livechat/internal/websocket"
	"livechat/pkg/logger"
)

type ChatHandlers struct {
	authService *auth.Service
	chatService *services.ChatService
	hub         *ws.Hub
}

func NewChatHandlers(authService *auth.Service, chatService *services.ChatService, hub *ws.Hub) *ChatHandlers {
	return &ChatHandlers{
		authService: authService,
		chatService: chatService,
		hub:         hub,
	}
}

type messagesResponse struct {
	Messages []*models.ChatMessage `json:"messages"`
}

type onlineResponse struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// Messages returns recent chat history, oldest first.
func (h *ChatHandlers) Messages(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r, h.authService); !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := h.chatService.History(r.Context(), limit)
	if err != nil {
		logger.Error("Error loading messages: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if messages == nil {
		messages = []*models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: messages})
}

func (h *ChatHandlers) Online(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r, h.authService); !ok {
		return
	}

	users, err := h.hub.OnlineUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "presence unavailable")
		return
	}
	writeJSON(w, http.StatusOK, onlineResponse{Users: users, Count: len(users)})
}
