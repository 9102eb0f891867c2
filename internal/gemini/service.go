// Package gemini proxies prompts to the Gemini generateContent API. Context
// data is sent in the most compact encoding available and every request
// carries a token report comparing the encodings.
package gemini

import (
	"context"
	"errors"

	"livechat/internal/models"
	"livechat/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrInvalidPrompt = errors.New("missing or invalid prompt")
	ErrMissingAPIKey = errors.New("server API key not configured")
)

// ExhaustedError is returned once every attempt has failed. Report holds
// what was measured before the upstream call.
type ExhaustedError struct {
	Err    error
	Report *models.TokenReport
}

func (e *ExhaustedError) Error() string {
	if e.Err == nil {
		return "Failed to generate content"
	}
	return e.Err.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type Service struct {
	client   *Client
	codec    Codec
	policy   RetryPolicy
	newTimer func() backoff.Timer
}

// NewService wires the proxy. codec may be nil when compact encoding is
// disabled; that choice is fixed for the life of the service.
func NewService(client *Client, codec Codec, policy RetryPolicy) *Service {
	return &Service{
		client:   client,
		codec:    codec,
		policy:   policy,
		newTimer: func() backoff.Timer { return nil },
	}
}

func (s *Service) Generate(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	if req == nil || req.Prompt == "" {
		return nil, ErrInvalidPrompt
	}
	if !s.client.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	report := &models.TokenReport{}
	finalPrompt := buildPrompt(req.Prompt, req.ContextData, s.codec, report)
	size := Estimate(finalPrompt)
	report.Prompt = models.PromptReport{
		FinalPromptBytes:           size.Bytes,
		FinalPromptEstimatedTokens: size.EstimatedTokens,
	}
	system := systemInstruction(req)

	var text string
	err := s.policy.Do(ctx, s.newTimer(), func(ctx context.Context, attempt int) error {
		out, err := s.client.GenerateContent(ctx, system, finalPrompt)
		if err != nil {
			logger.Warn("Gemini attempt %d failed: %v", attempt, err)
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return nil, &ExhaustedError{Err: err, Report: report}
	}

	resp := &models.GenerateResponse{Text: text, TokenReport: report}
	if !req.WantsTOON() || s.codec == nil {
		report.Response = &models.ResponseReport{Text: Estimate(text)}
		return resp, nil
	}

	data, err := s.codec.Decode(stripFence(text))
	if err != nil {
		logger.Warn("Failed to decode model output as TOON, returning raw text: %v", err)
		report.Response = &models.ResponseReport{TOON: Estimate(text)}
		return resp, nil
	}

	report.Response = &models.ResponseReport{TOON: Estimate(text)}
	if decoded, err := compactJSON(data); err == nil {
		report.Response.DecodedJSON = Estimate(decoded)
		report.Response.Savings = responseSavings(report.Response.TOON, report.Response.DecodedJSON)
	}
	resp.Data = data
	return resp, nil
}
