package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"livechat/internal/config"
)

const maxErrorBody = 64 << 10

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	SystemInstruction content   `json:"system_instruction"`
	Contents          []content `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// StatusError is a non-2xx answer from the upstream API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API Error: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// EmptyContentError is a 2xx answer that carried no text.
type EmptyContentError struct {
	Message string
}

func (e *EmptyContentError) Error() string {
	return e.Message
}

// Client calls the generateContent endpoint. It makes a single attempt per
// call; retries belong to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

func NewClient(cfg config.GeminiConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
	}
}

func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
}

func (c *Client) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	payload, err := json.Marshal(generateContentRequest{
		SystemInstruction: content{Parts: []part{{Text: system}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return extractText(&result)
}

// extractText returns the first candidate's first part. When there is none,
// a block reason outranks a finish reason in the error.
func extractText(result *generateContentResponse) (string, error) {
	var finishReason string
	if len(result.Candidates) > 0 {
		candidate := result.Candidates[0]
		finishReason = candidate.FinishReason
		if len(candidate.Content.Parts) > 0 && candidate.Content.Parts[0].Text != "" {
			return candidate.Content.Parts[0].Text, nil
		}
	}

	switch {
	case result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "":
		return "", &EmptyContentError{Message: "Prompt blocked: " + result.PromptFeedback.BlockReason}
	case finishReason != "":
		return "", &EmptyContentError{Message: "Generation failed: " + finishReason}
	default:
		return "", &EmptyContentError{Message: "No content generated."}
	}
}
