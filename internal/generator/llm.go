package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/clearsign/internal/jsonx"
	"github.com/yourorg/clearsign/internal/redact"
)

const (
	DefaultBaseURL     = "https://api.anthropic.com"
	DefaultModel       = "claude-2"
	DefaultMaxTokens     = 3000
	DefaultContextWindow = 100000
	DefaultTemperature   = 0.7
	DefaultAPIVersion    = "2023-06-01"

	completePath = "/v1/complete"
)

var (
	ErrTransport         = errors.New("failed to call Claude API")
	ErrUpstreamStatus    = errors.New("Claude API returned error status")
	ErrMalformedResponse = errors.New("failed to parse Claude API response")
	ErrMissingCompletion = errors.New("invalid response from Claude API: 'completion' field missing")
)

const unknownProviderError = "Unknown error from Claude API"

// Client talks to the Anthropic text completion endpoint.
type Client struct {
	BaseURL       string
	Model         string
	MaxTokens     int
	ContextWindow int
	Temperature   float64
	APIVersion    string
	HTTPClient    *http.Client
	Logger        *slog.Logger
	Redact        redact.Config
}

type completionRequest struct {
	Model             string  `json:"model"`
	Prompt            string  `json:"prompt"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float64 `json:"temperature"`
}


// FormatPrompt wraps prompt in the Human/Assistant turn template with an
// empty system preamble.
func FormatPrompt(prompt string) string {
	return fmt.Sprintf("%s\n\nHuman: %s\n\nAssistant:", "", prompt)
}

// Complete sends prompt to the provider and returns the trimmed completion.
// It makes exactly one request and never retries.
func (c *Client) Complete(ctx context.Context, prompt, apiKey string) (string, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimRight(c.baseURL(), "/") + completePath

	body, err := json.Marshal(completionRequest{
		Model:             c.model(),
		Prompt:            FormatPrompt(prompt),
		MaxTokensToSample: c.maxTokens(),
		Temperature:       c.temperature(),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", c.apiVersion())

	if c.Logger != nil {
		estimate := EstimateTokens(prompt)
		c.Logger.DebugContext(ctx, "llm request",
			"url", endpoint,
			"model", c.model(),
			"headers", redact.Header(req.Header, c.Redact),
			"prompt_tokens_estimate", estimate,
		)
		if estimate+c.maxTokens() > c.contextWindow() {
			c.Logger.WarnContext(ctx, "prompt may exceed model context window",
				"prompt_tokens_estimate", estimate,
				"max_tokens", c.maxTokens(),
				"context_window", c.contextWindow(),
			)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Claude API response: %w", err)
	}
	if c.Logger != nil {
		c.Logger.DebugContext(ctx, "llm response", "status", resp.StatusCode, "body", string(data))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w %s: %s", ErrUpstreamStatus, resp.Status, string(data))
	}

	var out jsonx.Object
	if err := jsonx.Decode(data, &out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	completion := out.String("completion")
	if !completion.Valid {
		msg := unknownProviderError
		if m := jsonx.Field[jsonx.Object](out, "error").String("message"); m.Valid {
			msg = m.Value
		}
		return "", fmt.Errorf("%w. Error message: %s", ErrMissingCompletion, msg)
	}
	return strings.TrimSpace(completion.Value), nil
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}

func (c *Client) model() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

func (c *Client) maxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

func (c *Client) contextWindow() int {
	if c.ContextWindow <= 0 {
		return DefaultContextWindow
	}
	return c.ContextWindow
}

func (c *Client) temperature() float64 {
	if c.Temperature == 0 {
		return DefaultTemperature
	}
	return c.Temperature
}

func (c *Client) apiVersion() string {
	if c.APIVersion == "" {
		return DefaultAPIVersion
	}
	return c.APIVersion
}
