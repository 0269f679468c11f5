package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default model parameters sent with every completion unless the caller
// overrides them.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// APIError represents a failure talking to the Groq completion endpoint:
// transport errors, non-2xx statuses, and malformed response envelopes.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("groq api error (status: %d): %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("groq api error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("groq api error: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Client manages requests to the Groq OpenAI-compatible REST API.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Groq API client. endpoint is the API base URL
// (e.g. https://api.groq.com/openai/v1) and model the completion model id.
func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ChatMessage is a single role-tagged message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the outbound request body.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

// ChatCompletionResponse is the completion response envelope.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ErrorResponse is the error envelope the API returns on failures.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ChatCompletion executes a chat completion request.
func (c *Client) ChatCompletion(ctx context.Context, messages []ChatMessage, maxTokens int, temperature float32) (*ChatCompletionResponse, error) {
	url := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(c.endpoint, "/"))

	request := ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var response ChatCompletionResponse
	if err := c.doRequest(ctx, url, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Complete executes a chat completion and returns the text of the first
// choice. An empty or malformed envelope is reported as an APIError.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, maxTokens int, temperature float32) (string, error) {
	response, err := c.ChatCompletion(ctx, messages, maxTokens, temperature)
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", &APIError{Message: "invalid response structure"}
	}

	return response.Choices[0].Message.Content, nil
}

// doRequest executes an HTTP request and handles the shared response
// processing.
func (c *Client) doRequest(ctx context.Context, url string, requestData interface{}, responseData interface{}) error {
	if c.apiKey == "" {
		return &APIError{Message: "API key is not configured"}
	}

	requestBody, err := json.Marshal(requestData)
	if err != nil {
		return &APIError{Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return &APIError{Message: "failed to create request", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: "failed to read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errorResp.Error.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.Unmarshal(body, responseData); err != nil {
		return &APIError{Message: "invalid response structure", Err: err}
	}

	return nil
}
