package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"livechat/internal/gemini"
	"livechat/internal/models"
	"livechat/pkg/logger"
)

const maxGenerateBody = 1 << 20

type GeminiHandlers struct {
	geminiService *gemini.Service
}

func NewGeminiHandlers(geminiService *gemini.Service) *GeminiHandlers {
	return &GeminiHandlers{geminiService: geminiService}
}

func (h *GeminiHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBody)

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing or invalid prompt")
		return
	}

	resp, err := h.geminiService.Generate(r.Context(), &req)
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var exhausted *gemini.ExhaustedError
	switch {
	case errors.Is(err, gemini.ErrInvalidPrompt):
		writeError(w, http.StatusBadRequest, "Missing or invalid prompt")
	case errors.Is(err, gemini.ErrMissingAPIKey):
		writeError(w, http.StatusInternalServerError, "Server API key not configured")
	case errors.As(err, &exhausted):
		logger.Error("Gemini request failed after retries: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: exhausted.Error(), TokenReport: exhausted.Report})
	default:
		logger.Error("Unexpected error in generate: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
