package services

import (
	"context"
	"sync"
	"time"

	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/models"
	"livechat/pkg/logger"
)

const maxHistoryLimit = 200

// ChatStore is the part of the database the chat service writes to.
type ChatStore interface {
	database.MessageRepository
	database.LoginLogRepository
}

// ChatService persists chat traffic off the broadcast path. Writes run in
// their own goroutines with a deadline; failures are logged and dropped.
type ChatService struct {
	db           ChatStore
	timeout      time.Duration
	historyLimit int
	now          func() time.Time
	wg           sync.WaitGroup
}

func NewChatService(db ChatStore, cfg config.ChatConfig) *ChatService {
	limit := cfg.HistoryLimit
	if limit <= 0 || limit > maxHistoryLimit {
		limit = 50
	}
	return &ChatService{
		db:           db,
		timeout:      cfg.PersistTimeout,
		historyLimit: limit,
		now:          time.Now,
	}
}

func (s *ChatService) background(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			logger.Error("Failed to %s: %v", name, err)
		}
	}()
}

// RecordMessage stores a chat message sent by identity. It returns at once.
func (s *ChatService) RecordMessage(identity *models.SessionIdentity, payload models.UserMessagePayload, at time.Time) {
	userID := identity.UserID
	msg := &models.ChatMessage{
		UserID:      &userID,
		Username:    identity.Username,
		DisplayName: identity.FullName,
		Body:        payload.Message,
		Type:        models.MessageTypeText,
		Timestamp:   at,
	}
	s.background("save message", func(ctx context.Context) error {
		_, err := s.db.InsertMessage(ctx, msg)
		return err
	})
}

// CloseSession stamps the logout time on the session's open login row.
// It returns at once.
func (s *ChatService) CloseSession(sessionID string) {
	if sessionID == "" {
		return
	}
	at := s.now()
	s.background("update logout time", func(ctx context.Context) error {
		closed, err := s.db.CloseLoginBySession(ctx, sessionID, at)
		if err == nil && !closed {
			logger.Debug("No open login row for session %s", sessionID)
		}
		return err
	})
}

// History returns up to limit recent messages, oldest first. A limit out of
// range falls back to the configured default.
func (s *ChatService) History(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = s.historyLimit
	}
	return s.db.LoadRecentMessages(ctx, limit)
}

// Wait blocks until every pending write has finished. Callers must stop
// the hub first so no new writes are queued while it waits.
func (s *ChatService) Wait() {
	s.wg.Wait()
}
