package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/V4T54L/defect-lens/internal/domain"
)

const (
	DefaultBaseURL = "https://integrate.api.nvidia.com/v1"
	DefaultModel   = "meta/llama-3.1-70b-instruct"

	defaultTemperature = 0.1
	defaultMaxTokens   = 1024
)

const promptTemplate = `You are a Data Security Officer in a semiconductor fab.
Redact any machine-specific parameters (Machine ID, pressure, flow rate, recipe names) from the following text.
Replace redacted values with [REDACTED].

IMPORTANT:
1. Do not change the structure or other words.
2. Only redact sensitive machine IDs, recipe names, and process numbers.
3. DO NOT add any new markdown headers (like # or ##) or bold symbols if they were not in the original text.
4. PRESERVE all original line breaks and indentation exactly as in the input text. Do not merge lines.

Text:
%s
`

// Options configures a ChatRedactor.
type Options struct {
	BaseURL          string
	APIKey           string
	Model            string
	Timeout          time.Duration
	MaxResponseBytes int64
	// RatePerSecond and Burst throttle upstream calls. RatePerSecond <= 0 disables throttling.
	RatePerSecond float64
	Burst         int
}

// ChatRedactor redacts text by prompting an OpenAI-compatible chat completions API.
type ChatRedactor struct {
	baseURL          string
	apiKey           string
	model            string
	client           *http.Client
	limiter          *rate.Limiter
	maxResponseBytes int64
	logger           *slog.Logger
}

// NewChatRedactor creates a redactor backed by the chat completions endpoint under opts.BaseURL.
func NewChatRedactor(opts Options, logger *slog.Logger) *ChatRedactor {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = 4 * 1024 * 1024
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &ChatRedactor{
		baseURL:          strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:           opts.APIKey,
		model:            opts.Model,
		client:           &http.Client{Timeout: opts.Timeout},
		limiter:          limiter,
		maxResponseBytes: opts.MaxResponseBytes,
		logger:           logger.With("component", "llm_redactor"),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Redact asks the model to mask machine-specific parameters in text. The role
// is not part of the prompt; callers decide whether redaction applies.
func (r *ChatRedactor) Redact(ctx context.Context, text string, role domain.UserRole) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrRedactionUnavailable, err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       r.model,
		Messages:    []chatMessage{{Role: "user", Content: fmt.Sprintf(promptTemplate, text)}},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	r.logger.Debug("sending chat completion request", "model", r.model, "role", role)
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: call model: %v", domain.ErrRedactionUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, r.maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read model response: %v", domain.ErrRedactionUnavailable, err)
	}
	if int64(len(respBody)) > r.maxResponseBytes {
		return "", fmt.Errorf("%w: model response exceeded limit (%d bytes)", domain.ErrMalformedResponse, r.maxResponseBytes)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody chatErrorResponse
		if json.Unmarshal(respBody, &errBody) == nil && errBody.Error.Message != "" {
			return "", fmt.Errorf("%w: model error status %d: %s (type=%s)", domain.ErrRedactionUnavailable, resp.StatusCode, errBody.Error.Message, errBody.Error.Type)
		}
		return "", fmt.Errorf("%w: model error status %d", domain.ErrRedactionUnavailable, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: decode model response: %v", domain.ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: model response had no choices", domain.ErrMalformedResponse)
	}
	return out.Choices[0].Message.Content, nil
}
