package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/models"
	"livechat/pkg/logger"

	"github.com/google/uuid"
)

const minPasswordLength = 8

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("not authenticated")
	ErrUserNotFound       = errors.New("username not found")
	ErrInvalidResetToken  = errors.New("invalid or expired token")
	ErrResetTokenExpired  = errors.New("token has expired")
)

// Store is the part of the credential store the auth service needs.
type Store interface {
	database.UserRepository
	database.SessionRepository
	database.LoginLogRepository
	database.ResetTokenRepository
}

type Service struct {
	db            Store
	hasher        *PasswordHasher
	cookies       *CookieSigner
	sessionMaxAge time.Duration
	resetTTL      time.Duration
	now           func() time.Time
}

func NewService(db Store, cfg *config.Config) *Service {
	return &Service{
		db:            db,
		hasher:        NewPasswordHasher(cfg.Auth.BcryptCost),
		cookies:       NewCookieSigner(cfg.Session.CookieName, cfg.Session.Secret, cfg.Session.MaxAge, cfg.Session.Secure),
		sessionMaxAge: cfg.Session.MaxAge,
		resetTTL:      cfg.Auth.ResetTokenTTL,
		now:           time.Now,
	}
}

// LoginResult carries the identity bound to a freshly created session and
// the cookie that names it.
type LoginResult struct {
	Identity *models.SessionIdentity
	Cookie   *http.Cookie
}

func (s *Service) Signup(ctx context.Context, req *models.SignupRequest) (*models.SessionIdentity, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: missing username or password", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	if _, err := s.db.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.db.CreateUser(ctx, &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
	})
	if errors.Is(err, database.ErrConflict) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}

	return &models.SessionIdentity{UserID: user.ID, Username: user.Username, FullName: user.FullName}, nil
}

func (s *Service) Login(ctx context.Context, req *models.LoginRequest, ipAddress string) (*LoginResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: missing username or password", ErrInvalidInput)
	}

	user, err := s.db.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionMaxAge),
	}
	if err := s.db.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	value, err := s.cookies.Sign(session.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session cookie: %w", err)
	}

	if err := s.db.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.Warn("Failed to update last login for %s: %v", user.Username, err)
	}
	if _, err := s.db.InsertLoginLog(ctx, &models.LoginLog{
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		SessionID: session.ID,
		LoginTime: now,
		IPAddress: ipAddress,
	}); err != nil {
		logger.Warn("Failed to write login log for %s: %v", user.Username, err)
	}

	return &LoginResult{
		Identity: &models.SessionIdentity{
			SessionID: session.ID,
			UserID:    user.ID,
			Username:  user.Username,
			FullName:  user.FullName,
		},
		Cookie: s.cookies.Cookie(value),
	}, nil
}

// Logout closes the session's login row and destroys the session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if _, err := s.db.CloseLoginBySession(ctx, sessionID, s.now()); err != nil {
		logger.Warn("Failed to update logout time for session: %v", err)
	}
	if err := s.db.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// ValidateSession resolves the session cookie on r. It is the single check
// used by both the HTTP API and the realtime handshake. Every failure that
// is the caller's fault wraps ErrUnauthorized.
func (s *Service) ValidateSession(r *http.Request) (*models.SessionIdentity, error) {
	cookie, err := r.Cookie(s.cookies.Name())
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: missing session cookie", ErrUnauthorized)
	}

	sessionID, err := s.cookies.Parse(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	session, err := s.db.GetSession(r.Context(), sessionID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown session", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: session expired", ErrUnauthorized)
	}
	if session.UserID == 0 || session.Username == "" {
		return nil, fmt.Errorf("%w: session has no user", ErrUnauthorized)
	}

	return &models.SessionIdentity{
		SessionID: session.ID,
		UserID:    session.UserID,
		Username:  session.Username,
		FullName:  session.FullName,
	}, nil
}

func (s *Service) ClearCookie() *http.Cookie {
	return s.cookies.Clear()
}

func (s *Service) ResetTTL() time.Duration {
	return s.resetTTL
}

// ForgotPassword issues a reset token for username. Only the token's hash
// is stored; the plain token is returned to the caller once.
func (s *Service) ForgotPassword(ctx context.Context, username string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	user, err := s.db.GetUserByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := newResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.db.InsertResetToken(ctx, &models.ResetToken{
		UserID:    user.ID,
		Username:  user.Username,
		TokenHash: hashResetToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	return token, nil
}

// ResetPassword consumes token and sets a new password for its owner. The
// token is spent before the password changes, so it works at most once.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: token and password are required", ErrInvalidInput)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	tokenHash := hashResetToken(token)
	now := s.now()

	record, err := s.db.GetResetTokenByHash(ctx, tokenHash)
	if errors.Is(err, database.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if record.ConsumedAt != nil {
		return ErrInvalidResetToken
	}
	if !record.ExpiresAt.After(now) {
		return ErrResetTokenExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	consumed, err := s.db.ConsumeResetToken(ctx, tokenHash, now)
	if errors.Is(err, database.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	if err := s.db.UpdateUserPassword(ctx, consumed.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
