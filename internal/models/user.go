package models

import "time"

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"fullname,omitempty"`
	Email        string     `json:"email,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// DisplayName is the name shown in presence lists: the full name when set,
// otherwise the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Session is the server-side record behind a session cookie.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	FullName  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionIdentity is what a validated session resolves to. It is shared by
// the HTTP handlers and the realtime handshake.
type SessionIdentity struct {
	SessionID string `json:"-"`
	UserID    int64  `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullname,omitempty"`
}

func (s *SessionIdentity) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	return s.Username
}

type LoginLog struct {
	ID         int64
	UserID     int64
	Username   string
	FullName   string
	SessionID  string
	LoginTime  time.Time
	LogoutTime *time.Time
	IPAddress  string
}

// ResetToken is a single-use password reset credential. Only the hash of the
// token handed to the user is stored.
type ResetToken struct {
	ID         int64
	UserID     int64
	Username   string
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Username string `json:"username"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type UserResponse struct {
	User *SessionIdentity `json:"user"`
}

type ForgotPasswordResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
