package redaction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/V4T54L/defect-lens/internal/domain"
)

const defaultMaxResponseBytes = 4 * 1024 * 1024

// Request is the payload accepted by the redaction service.
type Request struct {
	Text string `json:"text"`
	Role string `json:"role"`
}

// Response is the payload returned by the redaction service. RedactedText is a
// pointer so a missing field can be told apart from an empty one.
type Response struct {
	RedactedText *string            `json:"redacted_text"`
	Actions      []domain.SafetyLog `json:"actions,omitempty"`
}

// Client calls a remote redaction service over HTTP. It implements domain.Redactor.
type Client struct {
	url              string
	client           *http.Client
	logger           *slog.Logger
	maxResponseBytes int64
}

// NewClient creates a client for the endpoint at url. Timeouts are expected to
// come from the caller's context; timeout only guards against a missing one.
func NewClient(url string, timeout time.Duration, maxResponseBytes int64, logger *slog.Logger) *Client {
	if maxResponseBytes <= 0 {
		maxResponseBytes = defaultMaxResponseBytes
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:              url,
		client:           &http.Client{Timeout: timeout},
		logger:           logger.With("component", "redaction_client"),
		maxResponseBytes: maxResponseBytes,
	}
}

// Redact posts text to the service and returns its redacted_text.
// Transport errors and non-2xx statuses wrap domain.ErrRedactionUnavailable;
// undecodable bodies and a missing or empty redacted_text wrap
// domain.ErrMalformedResponse.
func (c *Client) Redact(ctx context.Context, text string, role domain.UserRole) (string, error) {
	body, err := json.Marshal(Request{Text: text, Role: role.String()})
	if err != nil {
		return "", fmt.Errorf("marshal redaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", domain.ErrRedactionUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRedactionUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrRedactionUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("redaction service returned error status", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: status %d", domain.ErrRedactionUnavailable, resp.StatusCode)
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return "", fmt.Errorf("%w: response exceeded %d bytes", domain.ErrMalformedResponse, c.maxResponseBytes)
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrMalformedResponse, err)
	}
	if out.RedactedText == nil || *out.RedactedText == "" {
		return "", fmt.Errorf("%w: missing redacted_text", domain.ErrMalformedResponse)
	}
	return *out.RedactedText, nil
}

// IsFallbackError reports whether err is one the viewer recovers from by
// showing static redacted content.
func IsFallbackError(err error) bool {
	return errors.Is(err, domain.ErrRedactionUnavailable) || errors.Is(err, domain.ErrMalformedResponse)
}
