package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"livechat/internal/models"
)

// MemoryDB keeps every table in process memory. It backs local development
// (DATABASE_DRIVER=memory) and tests. A single mutex serializes writes, so
// conditional updates are check-then-set under one lock.
type MemoryDB struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*models.User
	sessions    map[string]*models.Session
	loginLogs   []*models.LoginLog
	messages    []*models.ChatMessage
	resetTokens map[string]*models.ResetToken
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:       make(map[int64]*models.User),
		sessions:    make(map[string]*models.Session),
		resetTokens: make(map[string]*models.ResetToken),
	}
}

func (db *MemoryDB) Close() error {
	return nil
}

func (db *MemoryDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *MemoryDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (db *MemoryDB) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == user.Username {
			return nil, ErrConflict
		}
	}
	created := *user
	created.ID = db.id()
	created.CreatedAt = time.Now()
	db.users[created.ID] = &created

	cp := created
	return &cp, nil
}

func (db *MemoryDB) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (db *MemoryDB) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (db *MemoryDB) CreateSession(ctx context.Context, session *models.Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.sessions[session.ID]; ok {
		return ErrConflict
	}
	cp := *session
	db.sessions[session.ID] = &cp
	return nil
}

func (db *MemoryDB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (db *MemoryDB) DeleteSession(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.sessions, id)
	return nil
}

func (db *MemoryDB) InsertLoginLog(ctx context.Context, entry *models.LoginLog) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cp := *entry
	cp.ID = db.id()
	db.loginLogs = append(db.loginLogs, &cp)
	return cp.ID, nil
}

func (db *MemoryDB) CloseLoginBySession(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var latest *models.LoginLog
	for _, l := range db.loginLogs {
		if l.SessionID != sessionID || l.LogoutTime != nil {
			continue
		}
		if latest == nil || l.LoginTime.After(latest.LoginTime) {
			latest = l
		}
	}
	if latest == nil {
		return false, nil
	}
	latest.LogoutTime = &at
	return true, nil
}

// LoginLogs returns a copy of every login row, oldest first.
func (db *MemoryDB) LoginLogs() []models.LoginLog {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]models.LoginLog, 0, len(db.loginLogs))
	for _, l := range db.loginLogs {
		out = append(out, *l)
	}
	return out
}

func (db *MemoryDB) InsertMessage(ctx context.Context, msg *models.ChatMessage) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cp := *msg
	cp.ID = db.id()
	if cp.Type == "" {
		cp.Type = models.MessageTypeText
	}
	cp.CreatedAt = time.Now()
	db.messages = append(db.messages, &cp)
	return cp.ID, nil
}

func (db *MemoryDB) LoadRecentMessages(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	sorted := make([]*models.ChatMessage, len(db.messages))
	copy(sorted, db.messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}

	out := make([]*models.ChatMessage, 0, len(sorted))
	for _, m := range sorted {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (db *MemoryDB) InsertResetToken(ctx context.Context, token *models.ResetToken) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.resetTokens[token.TokenHash]; ok {
		return ErrConflict
	}
	cp := *token
	cp.ID = db.id()
	cp.CreatedAt = time.Now()
	db.resetTokens[token.TokenHash] = &cp
	return nil
}

func (db *MemoryDB) GetResetTokenByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.resetTokens[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (db *MemoryDB) ConsumeResetToken(ctx context.Context, tokenHash string, at time.Time) (*models.ResetToken, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.resetTokens[tokenHash]
	if !ok || t.ConsumedAt != nil || !t.ExpiresAt.After(at) {
		return nil, ErrNotFound
	}
	t.ConsumedAt = &at
	cp := *t
	return &cp, nil
}
