package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"livechat/internal/auth"
	"livechat/internal/models"
	"livechat/pkg/logger"
)

type AuthHandlers struct {
	authService *auth.Service
}

func NewAuthHandlers(authService *auth.Service) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	user, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		h.authError(w, "Signup", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.UserResponse{User: user})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	result, err := h.authService.Login(r.Context(), &req, clientIP(r))
	if err != nil {
		h.authError(w, "Login", err)
		return
	}

	http.SetCookie(w, result.Cookie)
	writeJSON(w, http.StatusOK, models.UserResponse{User: result.Identity})
}

// Logout always clears the cookie. Without a live session it is a no-op.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authService.ValidateSession(r)
	if err != nil {
		http.SetCookie(w, h.authService.ClearCookie())
		writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
		return
	}

	if err := h.authService.Logout(r.Context(), identity.SessionID); err != nil {
		logger.Error("Logout error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to destroy session")
		return
	}

	http.SetCookie(w, h.authService.ClearCookie())
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireSession(w, r, h.authService)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.UserResponse{User: identity})
}

func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	token, err := h.authService.ForgotPassword(r.Context(), req.Username)
	if err != nil {
		h.authError(w, "Forgot password", err)
		return
	}

	writeJSON(w, http.StatusOK, models.ForgotPasswordResponse{
		Success: true,
		Token:   token,
		Message: fmt.Sprintf("Password reset token generated. You have %d minutes to use it.", int(h.authService.ResetTTL().Minutes())),
	})
}

func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Token and password are required")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.authError(w, "Reset password", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Password reset successful. Please log in with your new password.",
	})
}

func (h *AuthHandlers) authError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": "))
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "Username already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "Username not found")
	case errors.Is(err, auth.ErrResetTokenExpired):
		writeError(w, http.StatusUnauthorized, "Token has expired")
	case errors.Is(err, auth.ErrInvalidResetToken):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
	default:
		logger.Error("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
