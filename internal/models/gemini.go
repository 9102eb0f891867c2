package models

const ResponseFormatTOON = "toon"

type GenerateConfig struct {
	ResponseFormat string `json:"responseFormat,omitempty"`
}

type GenerateRequest struct {
	Prompt       string          `json:"prompt"`
	ContextData  any             `json:"contextData,omitempty"`
	Config       *GenerateConfig `json:"config,omitempty"`
	SystemPrompt string          `json:"systemPrompt,omitempty"`
}

// WantsTOON reports whether the caller asked for compact-format output.
func (r *GenerateRequest) WantsTOON() bool {
	return r.Config != nil && r.Config.ResponseFormat == ResponseFormatTOON
}

type GenerateResponse struct {
	Text        string       `json:"text"`
	Data        any          `json:"data,omitempty"`
	TokenReport *TokenReport `json:"tokenReport"`
}

type SizeEstimate struct {
	Bytes           int `json:"bytes"`
	EstimatedTokens int `json:"estimatedTokens"`
}

type ContextSavings struct {
	BytesSaved   int     `json:"bytesSaved"`
	TokensSaved  int     `json:"tokensSaved"`
	PercentSaved float64 `json:"percentSaved"`
}

type ContextReport struct {
	JSON    *SizeEstimate   `json:"json"`
	TOON    *SizeEstimate   `json:"toon,omitempty"`
	Savings *ContextSavings `json:"savings,omitempty"`
}

type PromptReport struct {
	FinalPromptBytes           int `json:"finalPromptBytes"`
	FinalPromptEstimatedTokens int `json:"finalPromptEstimatedTokens"`
}

type ResponseSavings struct {
	BytesExtra     int     `json:"bytesExtra"`
	TokensExtra    int     `json:"tokensExtra"`
	PercentCompact float64 `json:"percentCompact"`
}

type ResponseReport struct {
	Text        *SizeEstimate    `json:"text,omitempty"`
	TOON        *SizeEstimate    `json:"toon,omitempty"`
	DecodedJSON *SizeEstimate    `json:"decodedJson,omitempty"`
	Savings     *ResponseSavings `json:"savings,omitempty"`
}

// TokenReport is observational only and never persisted.
type TokenReport struct {
	Context  ContextReport   `json:"context"`
	Prompt   PromptReport    `json:"prompt"`
	Response *ResponseReport `json:"response,omitempty"`
}

type ErrorResponse struct {
	Error       string       `json:"error"`
	TokenReport *TokenReport `json:"tokenReport,omitempty"`
}
