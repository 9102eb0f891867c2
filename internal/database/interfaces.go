package database

import (
	"context"
	"errors"
	"time"

	"livechat/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type LoginLogRepository interface {
	InsertLoginLog(ctx context.Context, entry *models.LoginLog) (int64, error)
	// CloseLoginBySession sets the logout time on the most recent open login
	// row of the session. It reports false when no open row exists, so a
	// second call for the same session changes nothing.
	CloseLoginBySession(ctx context.Context, sessionID string, at time.Time) (bool, error)
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *models.ChatMessage) (int64, error)
	LoadRecentMessages(ctx context.Context, limit int) ([]*models.ChatMessage, error)
}

type ResetTokenRepository interface {
	InsertResetToken(ctx context.Context, token *models.ResetToken) error
	GetResetTokenByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error)
	// ConsumeResetToken marks an unconsumed, unexpired token as used and
	// returns it. ErrNotFound means the token is unknown, spent or expired.
	ConsumeResetToken(ctx context.Context, tokenHash string, at time.Time) (*models.ResetToken, error)
}

type Database interface {
	UserRepository
	SessionRepository
	LoginLogRepository
	MessageRepository
	ResetTokenRepository
	Close() error
}
