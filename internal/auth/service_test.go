package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			Secret:     []byte("test-secret"),
			CookieName: "chat.sid",
			MaxAge:     time.Hour,
		},
		Auth: config.AuthConfig{
			BcryptCost:    bcrypt.MinCost,
			ResetTokenTTL: 30 * time.Minute,
		},
	}
}

func newTestService(t *testing.T) (*Service, *database.MemoryDB) {
	t.Helper()
	db := database.NewMemoryDB()
	return NewService(db, testConfig()), db
}

func signupAndLogin(t *testing.T, svc *Service, username, fullname string) *LoginResult {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Signup(ctx, &models.SignupRequest{Username: username, Password: "password123", FullName: fullname})
	require.NoError(t, err)
	res, err := svc.Login(ctx, &models.LoginRequest{Username: username, Password: "password123"}, "10.0.0.1")
	require.NoError(t, err)
	return res
}

func requestWithCookie(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.SignupRequest
		want error
	}{
		{name: "missing username", req: models.SignupRequest{Password: "password123"}, want: ErrInvalidInput},
		{name: "missing password", req: models.SignupRequest{Username: "alice"}, want: ErrInvalidInput},
		{name: "short password", req: models.SignupRequest{Username: "alice", Password: "short"}, want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.Signup(ctx, &models.SignupRequest{Username: " alice ", Password: "password123"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, &models.SignupRequest{Username: "alice", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLoginCreatesSessionAndLoginLog(t *testing.T) {
	svc, db := newTestService(t)

	res := signupAndLogin(t, svc, "alice", "Alice A")
	assert.Equal(t, "alice", res.Identity.Username)
	assert.Equal(t, "Alice A", res.Identity.FullName)
	assert.NotEmpty(t, res.Identity.SessionID)
	assert.Equal(t, "chat.sid", res.Cookie.Name)

	logs := db.LoginLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, res.Identity.SessionID, logs[0].SessionID)
	assert.Equal(t, "10.0.0.1", logs[0].IPAddress)
	assert.Nil(t, logs[0].LogoutTime)

	user, err := db.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, &models.SignupRequest{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "wrong-password"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "nobody", Password: "password123"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "alice"}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateSession(t *testing.T) {
	svc, _ := newTestService(t)
	res := signupAndLogin(t, svc, "alice", "")

	identity, err := svc.ValidateSession(requestWithCookie(res.Cookie))
	require.NoError(t, err)
	assert.Equal(t, res.Identity.SessionID, identity.SessionID)
	assert.Equal(t, "alice", identity.DisplayName())

	_, err = svc.ValidateSession(requestWithCookie(nil))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.ValidateSession(requestWithCookie(&http.Cookie{Name: "chat.sid", Value: "garbage"}))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateSessionRejectsUnknownAndExpiredSessions(t *testing.T) {
	svc, db := newTestService(t)

	value, err := svc.cookies.Sign("no-such-session", time.Now())
	require.NoError(t, err)
	_, err = svc.ValidateSession(requestWithCookie(svc.cookies.Cookie(value)))
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, db.CreateSession(context.Background(), &models.Session{
		ID: "old", UserID: 1, Username: "alice", ExpiresAt: time.Now().Add(-time.Minute),
	}))
	value, err = svc.cookies.Sign("old", time.Now())
	require.NoError(t, err)
	_, err = svc.ValidateSession(requestWithCookie(svc.cookies.Cookie(value)))
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, db.CreateSession(context.Background(), &models.Session{
		ID: "anon", ExpiresAt: time.Now().Add(time.Hour),
	}))
	value, err = svc.cookies.Sign("anon", time.Now())
	require.NoError(t, err)
	_, err = svc.ValidateSession(requestWithCookie(svc.cookies.Cookie(value)))
	assert.ErrorIs(t, err, ErrUnauthorized, "a session without a bound user is rejected")
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, db := newTestService(t)
	res := signupAndLogin(t, svc, "alice", "")

	require.NoError(t, svc.Logout(context.Background(), res.Identity.SessionID))

	_, err := svc.ValidateSession(requestWithCookie(res.Cookie))
	assert.ErrorIs(t, err, ErrUnauthorized)

	logs := db.LoginLogs()
	require.Len(t, logs, 1)
	assert.NotNil(t, logs[0].LogoutTime)
}

func TestPasswordResetIsSingleUse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signupAndLogin(t, svc, "alice", "")

	_, err := svc.ForgotPassword(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	token, err := svc.ForgotPassword(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, token, "new-password-1"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "new-password-2"), ErrInvalidResetToken)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password123"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "new-password-1"}, "")
	assert.NoError(t, err)
}

func TestPasswordResetRejectsExpiredAndUnknownTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signupAndLogin(t, svc, "alice", "")

	token, err := svc.ForgotPassword(ctx, "alice")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "new-password-1"), ErrResetTokenExpired)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "unknown", "new-password-1"), ErrInvalidResetToken)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "short"), ErrInvalidInput)
}
