package handlers

import "net/http"

type Router struct {
	Auth      *AuthHandlers
	Chat      *ChatHandlers
	Gemini    *GeminiHandlers
	WebSocket *WebSocketHandlers
	StaticDir string
}

func (rt *Router) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("POST /api/signup", rt.Auth.Signup)
	mux.HandleFunc("POST /api/login", rt.Auth.Login)
	mux.HandleFunc("POST /api/logout", rt.Auth.Logout)
	mux.HandleFunc("GET /api/me", rt.Auth.Me)
	mux.HandleFunc("POST /api/forgot-password", rt.Auth.ForgotPassword)
	mux.HandleFunc("POST /api/reset-password", rt.Auth.ResetPassword)

	// Chat routes
	mux.HandleFunc("GET /api/messages", rt.Chat.Messages)
	mux.HandleFunc("GET /api/online", rt.Chat.Online)

	// Generative proxy
	mux.HandleFunc("POST /api/gemini", rt.Gemini.Generate)

	// WebSocket route
	mux.HandleFunc("GET /ws", rt.WebSocket.HandleWebSocket)

	if rt.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(rt.StaticDir)))
	}
	return mux
}
