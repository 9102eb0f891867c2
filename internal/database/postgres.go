package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"livechat/internal/models"
	"livechat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	logger.Info("Connected to database successfully")
	return db, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

func (db *PostgresDB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			fullname      TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			username   TEXT NOT NULL,
			fullname   TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS login_logs (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT REFERENCES users(id) ON DELETE SET NULL,
			username    TEXT NOT NULL DEFAULT '',
			fullname    TEXT NOT NULL DEFAULT '',
			session_id  TEXT NOT NULL,
			login_time  TIMESTAMPTZ NOT NULL,
			logout_time TIMESTAMPTZ,
			ip_address  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL PRIMARY KEY,
			user_id         BIGINT REFERENCES users(id) ON DELETE SET NULL,
			username        TEXT NOT NULL,
			fullname        TEXT NOT NULL DEFAULT '',
			message         TEXT NOT NULL,
			message_type    TEXT NOT NULL DEFAULT 'text',
			event_timestamp TIMESTAMPTZ NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS reset_tokens (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			username    TEXT NOT NULL,
			token_hash  TEXT NOT NULL UNIQUE,
			expires_at  TIMESTAMPTZ NOT NULL,
			consumed_at TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_login_logs_session_id ON login_logs(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_login_logs_user_id ON login_logs(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_event_timestamp ON messages(event_timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// User Repository Implementation
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, fullname, email, created_at, last_login_at FROM users WHERE username = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, password_hash, fullname, email, created_at, last_login_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return user, nil
}

func (db *PostgresDB) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash, fullname, email, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`

	created := *user
	err := db.pool.QueryRow(ctx, query, user.Username, user.PasswordHash, user.FullName, user.Email).Scan(
		&created.ID, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", translate(err))
	}

	return &created, nil
}

func (db *PostgresDB) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := db.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, at)
	return err
}

func (db *PostgresDB) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := db.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Session Repository Implementation
func (db *PostgresDB) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, username, fullname, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := db.pool.Exec(ctx, query, session.ID, session.UserID, session.Username, session.FullName, session.CreatedAt, session.ExpiresAt)
	return translate(err)
}

func (db *PostgresDB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT id, user_id, username, fullname, created_at, expires_at FROM sessions WHERE id = $1`

	session := &models.Session{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.Username, &session.FullName, &session.CreatedAt, &session.ExpiresAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return session, nil
}

func (db *PostgresDB) DeleteSession(ctx context.Context, id string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// Login Log Repository Implementation
func (db *PostgresDB) InsertLoginLog(ctx context.Context, entry *models.LoginLog) (int64, error) {
	query := `
		INSERT INTO login_logs (user_id, username, fullname, session_id, login_time, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := db.pool.QueryRow(ctx, query, entry.UserID, entry.Username, entry.FullName, entry.SessionID, entry.LoginTime, entry.IPAddress).Scan(&id)
	return id, err
}

func (db *PostgresDB) CloseLoginBySession(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	// The outer "logout_time IS NULL" is re-checked after the row lock, so two
	// concurrent closes for one session update it at most once.
	query := `
		UPDATE login_logs SET logout_time = $2
		WHERE logout_time IS NULL AND id = (
			SELECT id FROM login_logs
			WHERE session_id = $1 AND logout_time IS NULL
			ORDER BY login_time DESC
			LIMIT 1
		)`

	tag, err := db.pool.Exec(ctx, query, sessionID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Message Repository Implementation
func (db *PostgresDB) InsertMessage(ctx context.Context, msg *models.ChatMessage) (int64, error) {
	msgType := msg.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	query := `
		INSERT INTO messages (user_id, username, fullname, message, message_type, event_timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`

	var id int64
	err := db.pool.QueryRow(ctx, query, msg.UserID, msg.Username, msg.DisplayName, msg.Body, msgType, msg.Timestamp).Scan(&id)
	return id, err
}

func (db *PostgresDB) LoadRecentMessages(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, user_id, username, fullname, message, message_type, event_timestamp, created_at
		FROM messages
		ORDER BY event_timestamp DESC, id DESC
		LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg := &models.ChatMessage{}
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Username, &msg.DisplayName, &msg.Body, &msg.Type, &msg.Timestamp, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// Reset Token Repository Implementation
func (db *PostgresDB) InsertResetToken(ctx context.Context, token *models.ResetToken) error {
	query := `
		INSERT INTO reset_tokens (user_id, username, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := db.pool.Exec(ctx, query, token.UserID, token.Username, token.TokenHash, token.ExpiresAt)
	return translate(err)
}

func (db *PostgresDB) GetResetTokenByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error) {
	query := `SELECT id, user_id, username, token_hash, expires_at, consumed_at, created_at FROM reset_tokens WHERE token_hash = $1`

	token := &models.ResetToken{}
	err := db.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.Username, &token.TokenHash, &token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return token, nil
}

func (db *PostgresDB) ConsumeResetToken(ctx context.Context, tokenHash string, at time.Time) (*models.ResetToken, error) {
	query := `
		UPDATE reset_tokens SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING id, user_id, username, token_hash, expires_at, consumed_at, created_at`

	token := &models.ResetToken{}
	err := db.pool.QueryRow(ctx, query, tokenHash, at).Scan(
		&token.ID, &token.UserID, &token.Username, &token.TokenHash, &token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return token, nil
}
