package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/soyeahso/proxychat/internal/domain"
	"github.com/soyeahso/proxychat/internal/logging"
)

// ResponsesConfig binds a ResponsesModel to one proxy.
type ResponsesConfig struct {
	BaseURL    string // e.g. http://localhost:4000/v1
	APIKey     string
	HTTPClient *http.Client // nil creates a dedicated client
}

// ResponsesModel calls POST {base}/responses through the openai-go client.
type ResponsesModel struct {
	client openai.Client
	http   *http.Client
	log    *logging.Logger
}

// NewResponsesModel creates a model bound to the given base URL and API key.
func NewResponsesModel(cfg ResponsesConfig, log *logging.Logger) *ResponsesModel {
	if log == nil {
		log = logging.Nop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	)
	return &ResponsesModel{
		client: client,
		http:   httpClient,
		log:    log.Sub("llm.responses"),
	}
}

type functionTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

type responsesBody struct {
	Model           string         `json:"model"`
	Instructions    string         `json:"instructions,omitempty"`
	Input           []domain.Item  `json:"input"`
	Tools           []functionTool `json:"tools,omitempty"`
	Store           *bool          `json:"store,omitempty"`
	Include         []string       `json:"include,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
}

func newResponsesBody(req Request) responsesBody {
	body := responsesBody{
		Model:           req.Model,
		Instructions:    req.Instructions,
		Input:           req.Input,
		Store:           req.Store,
		Include:         req.Include,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if body.Input == nil {
		body.Input = []domain.Item{}
	}
	for _, t := range req.Tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		body.Tools = append(body.Tools, functionTool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return body
}

// Respond implements Model.
func (m *ResponsesModel) Respond(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	m.log.Debug().
		Str("model", req.Model).
		Int("items", len(req.Input)).
		Int("tools", len(req.Tools)).
		Msg("sending responses request")

	var resp Response
	if err := m.client.Post(ctx, "responses", newResponsesBody(req), &resp); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
		}
		return nil, fmt.Errorf("model request: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("model response %s failed: %s", resp.ID, resp.Error.Message)
	}

	m.log.Debug().
		Str("id", resp.ID).
		Str("status", resp.Status).
		Int("outputItems", len(resp.Output)).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("responses request complete")
	return &resp, nil
}

// Close releases idle connections held by the HTTP client.
func (m *ResponsesModel) Close() error {
	m.http.CloseIdleConnections()
	return nil
}
