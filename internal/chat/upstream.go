package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/starford/notebot/internal/models"
)

// DefaultModel is used when neither the request nor the configuration
// names one.
const DefaultModel = "llama-3.1-8b-instant"

// ErrNoReply indicates a successful upstream response that carried no
// extractable reply text.
var ErrNoReply = errors.New("chat: no content in upstream response")

// UpstreamError is a non-success response from the chat-completion API.
// Payload holds the upstream error body for diagnostics; the credential
// never appears in it.
type UpstreamError struct {
	Status  int
	Message string
	Payload json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat: upstream status %d: %s", e.Status, e.Message)
}

// Client calls an OpenAI-compatible chat-completion endpoint.
type Client struct {
	endpoint     string
	apiKey       string
	model        string
	temperature  float64
	historyLimit int
	systemPrompt string
	httpClient   *http.Client
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Endpoint     string
	APIKey       string
	Model        string
	Temperature  float64
	HistoryLimit int
	SystemPrompt string
	Timeout      time.Duration
}

// NewClient creates an upstream chat client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	return &Client{
		endpoint:     opts.Endpoint,
		apiKey:       opts.APIKey,
		model:        opts.Model,
		temperature:  opts.Temperature,
		historyLimit: opts.HistoryLimit,
		systemPrompt: opts.SystemPrompt,
		httpClient:   &http.Client{Timeout: opts.Timeout},
	}
}

// Configured reports whether an upstream credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ResolveModel applies the model precedence: request-supplied, then
// configured, then the hardcoded default.
func (c *Client) ResolveModel(requested string) string {
	if requested != "" {
		return requested
	}
	if c.model != "" {
		return c.model
	}
	return DefaultModel
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete forwards sanitized messages upstream and returns the reply
// text. The caller is responsible for sanitization; Complete bounds the
// history and injects the system instruction.
func (c *Client) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	if !c.Configured() {
		return "", errors.New("chat: upstream API key is not configured")
	}

	if c.historyLimit > 0 && len(messages) > c.historyLimit {
		messages = messages[len(messages)-c.historyLimit:]
	}
	if c.systemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: c.systemPrompt}}, messages...)
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.ResolveModel(model),
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: upstream request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("chat: read upstream response: %w", err)
	}

	var parsed completionResponse
	parseErr := json.Unmarshal(raw, &parsed)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := "Upstream error"
		if parseErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &UpstreamError{Status: res.StatusCode, Message: msg, Payload: json.RawMessage(raw)}
	}
	if parseErr != nil {
		return "", fmt.Errorf("chat: decode upstream response: %w", parseErr)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrNoReply
	}
	return parsed.Choices[0].Message.Content, nil
}

// Reply satisfies Responder: it sanitizes the session history and asks
// the upstream model with the configured defaults.
func (c *Client) Reply(ctx context.Context, history []models.ChatMessage) (string, error) {
	return c.Complete(ctx, Sanitize(history), "")
}
