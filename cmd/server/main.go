package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"livechat/internal/auth"
	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/gemini"
	"livechat/internal/handlers"
	"livechat/internal/services"
	"livechat/internal/toon"
	"livechat/internal/websocket"
	"livechat/pkg/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	// Initialize database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}

	// Initialize services
	authService := auth.NewService(db, cfg)
	chatService := services.NewChatService(db, cfg.Chat)

	var codec gemini.Codec
	if cfg.TOON.Enabled {
		codec = toon.Codec{}
		logger.Info("TOON encoding enabled")
	} else {
		logger.Warn("TOON encoding disabled, context data will be sent as JSON")
	}
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, /api/gemini will return 500")
	}
	geminiService := gemini.NewService(gemini.NewClient(cfg.Gemini, nil), codec, gemini.RetryPolicyFromConfig(cfg.Gemini))

	// Start the presence hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub(chatService, cfg.Chat)
	go hub.Run(hubCtx)

	// Initialize handlers
	router := &handlers.Router{
		Auth:      handlers.NewAuthHandlers(authService),
		Chat:      handlers.NewChatHandlers(authService, chatService, hub),
		Gemini:    handlers.NewGeminiHandlers(geminiService),
		WebSocket: handlers.NewWebSocketHandlers(authService, hub, cfg.Server.CORSOrigin),
		StaticDir: cfg.Server.StaticDir,
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(cfg.Server.CORSOrigin, router.Routes()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("Server shutting down...")
				stopHub()
				hub.Wait()
				if err := server.Shutdown(ctx); err != nil {
					return err
				}
				chatService.Wait()
				return db.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Info("Server exited with code %d", exitCode)
	os.Exit(exitCode)
}

func openDatabase(cfg config.DatabaseConfig) (database.Database, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("Using in-memory database, data is lost on restart")
		return database.NewMemoryDB(), nil
	case "postgres", "":
		return database.NewPostgresDB(context.Background(), cfg.URL)
	default:
		return nil, errors.New("unsupported DATABASE_DRIVER " + cfg.Driver)
	}
}

// corsMiddleware allows credentialed requests from origin. With no origin
// configured it falls back to a wildcard without credentials.
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin == "" || origin == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST /api/signup")
	logger.Info("   POST /api/login")
	logger.Info("   POST /api/logout")
	logger.Info("   GET  /api/me")
	logger.Info("   POST /api/forgot-password")
	logger.Info("   POST /api/reset-password")
	logger.Info("   GET  /api/messages?limit=N")
	logger.Info("   GET  /api/online")
	logger.Info("   POST /api/gemini")
}
