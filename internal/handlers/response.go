package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"livechat/internal/auth"
	"livechat/internal/models"
	"livechat/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// requireSession resolves the caller's session or writes the error response.
func requireSession(w http.ResponseWriter, r *http.Request, authService *auth.Service) (*models.SessionIdentity, bool) {
	identity, err := authService.ValidateSession(r)
	if errors.Is(err, auth.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	if err != nil {
		logger.Error("Session lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return identity, true
}
