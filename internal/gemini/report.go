package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"livechat/internal/models"
)

// Estimate sizes s for the token report. The token count is a fixed
// four-bytes-per-token heuristic, not a real tokenizer.
func Estimate(s string) *models.SizeEstimate {
	n := len(s)
	return &models.SizeEstimate{
		Bytes:           n,
		EstimatedTokens: (n + 3) / 4,
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func percentOf(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func contextSavings(jsonSize, toonSize *models.SizeEstimate) *models.ContextSavings {
	saved := jsonSize.Bytes - toonSize.Bytes
	return &models.ContextSavings{
		BytesSaved:   saved,
		TokensSaved:  jsonSize.EstimatedTokens - toonSize.EstimatedTokens,
		PercentSaved: percentOf(saved, jsonSize.Bytes),
	}
}

func responseSavings(toonSize, decodedSize *models.SizeEstimate) *models.ResponseSavings {
	extra := decodedSize.Bytes - toonSize.Bytes
	return &models.ResponseSavings{
		BytesExtra:     extra,
		TokensExtra:    decodedSize.EstimatedTokens - toonSize.EstimatedTokens,
		PercentCompact: percentOf(extra, decodedSize.Bytes),
	}
}

// compactJSON renders v the way a browser's JSON.stringify would: no
// indentation and no HTML escaping.
func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// present reports whether context data was supplied. Zero scalars count as
// absent, matching what clients expect from a falsy check.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	}
	return true
}

func stringify(v any) string {
	if s, err := compactJSON(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
