// Package llm defines the model interface used by the agent runtime and its
// Responses API implementation for OpenAI-compatible proxies.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/proxychat/internal/domain"
)

// ToolDefinition describes a function tool the model can call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the input to a single model call.
type Request struct {
	Model           string           `json:"model"`
	Instructions    string           `json:"instructions,omitempty"`
	Input           []domain.Item    `json:"input"`
	Tools           []ToolDefinition `json:"tools,omitempty"`
	Store           *bool            `json:"store,omitempty"`
	Include         []string         `json:"include,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	MaxOutputTokens int              `json:"maxOutputTokens,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates u into the receiver.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// ResponseError is the error object embedded in a failed response body.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the result of one model call.
type Response struct {
	ID     string         `json:"id"`
	Model  string         `json:"model"`
	Status string         `json:"status,omitempty"`
	Output []domain.Item  `json:"output"`
	Usage  Usage          `json:"usage"`
	Error  *ResponseError `json:"error,omitempty"`
}

// OutputText concatenates the text of every assistant message in the output.
func (r *Response) OutputText() string {
	var b strings.Builder
	for _, it := range r.Output {
		if it.Type() == domain.ItemMessage && it.Role() == domain.RoleAssistant {
			b.WriteString(it.Text())
		}
	}
	return b.String()
}

// FunctionCalls returns the function_call items of the output in order.
func (r *Response) FunctionCalls() []domain.Item {
	var calls []domain.Item
	for _, it := range r.Output {
		if it.Type() == domain.ItemFunctionCall {
			calls = append(calls, it)
		}
	}
	return calls
}

// Model is implemented by every model transport.
type Model interface {
	// Respond sends one request and returns the complete response.
	Respond(ctx context.Context, req Request) (*Response, error)
}

// APIError is returned when the proxy answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("model request failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model request failed (status %d)", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }
