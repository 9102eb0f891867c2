package gemini

import (
	"fmt"
	"strings"

	"livechat/internal/models"
	"livechat/pkg/logger"
)

const (
	defaultSystemInstruction = "You are a helpful assistant."
	toonSystemInstruction    = "You MUST return the response strictly in TOON format (no additional commentary)."

	formatTOON = "TOON"
	formatJSON = "JSON"
)

// Codec is the optional compact encoding. A nil Codec means the capability
// is unavailable and context data is always sent as JSON.
type Codec interface {
	Encode(v any) (string, error)
	Decode(s string) (any, error)
}

// buildPrompt appends the context section to prompt, choosing the compact
// encoding when it succeeds, and fills the context part of report.
func buildPrompt(prompt string, contextData any, codec Codec, report *models.TokenReport) string {
	if !present(contextData) {
		return prompt
	}

	jsonContext := stringify(contextData)
	report.Context.JSON = Estimate(jsonContext)

	if codec == nil {
		return withContext(prompt, formatJSON, jsonContext)
	}

	toonContext, err := codec.Encode(contextData)
	if err != nil {
		logger.Warn("TOON encode failed, falling back to JSON: %v", err)
		return withContext(prompt, formatJSON, jsonContext)
	}

	report.Context.TOON = Estimate(toonContext)
	report.Context.Savings = contextSavings(report.Context.JSON, report.Context.TOON)
	return withContext(prompt, formatTOON, toonContext)
}

func withContext(prompt, format, body string) string {
	return fmt.Sprintf("%s\n\n### Context Data (Format: %s)\n%s", prompt, format, body)
}

func systemInstruction(req *models.GenerateRequest) string {
	if strings.TrimSpace(req.SystemPrompt) != "" {
		return req.SystemPrompt
	}
	if req.WantsTOON() {
		return toonSystemInstruction
	}
	return defaultSystemInstruction
}

// stripFence removes a surrounding Markdown code fence, which models add
// even when told not to.
func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return text
	}
	t = strings.TrimSuffix(t[3:], "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], ":[") {
		t = t[nl+1:]
	}
	return strings.Trim(t, "\n")
}
