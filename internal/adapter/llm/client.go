package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dialoguelab/studychat/internal/domain"
)

// Client speaks the OpenAI chat-completions wire format against the
// configured provider (non-streaming).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a provider client. The timeout bounds each
// completion request; on expiry the call is abandoned rather than left
// hanging against the platform request ceiling.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatCompletionRequest represents the chat completion request body.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ChatMessage represents a chat message on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the chat completion response body.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// GenerateReply produces the next assistant turn for the conversation.
func (c *Client) GenerateReply(ctx context.Context, history []domain.Message, systemPrompt string) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range history {
		messages = append(messages, ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	resp, err := c.createChatCompletion(ctx, &ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", &ProviderError{Kind: KindServer, Err: errors.New("completion returned no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// createChatCompletion sends a chat completion request (non-streaming).
func (c *Client) createChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ProviderError{Kind: KindServer, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Kind: KindServer, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp.StatusCode, respBody)
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Kind: KindServer, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	return &result, nil
}

// classifyTransportError maps a transport failure to a provider error
// kind: deadline or I/O timeout means the bounded call expired,
// anything else is a network failure.
func classifyTransportError(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	return &ProviderError{Kind: KindNetwork, Err: err}
}

// classifyStatusError maps a non-200 provider status to an error kind.
func classifyStatusError(status int, body []byte) *ProviderError {
	var errResp ErrorResponse
	detail := string(body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		detail = fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}

	kind := KindServer
	if status == http.StatusTooManyRequests {
		kind = KindRateLimit
	}
	return &ProviderError{Kind: kind, Err: fmt.Errorf("provider API error [%d]: %s", status, detail)}
}
