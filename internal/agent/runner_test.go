package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/soyeahso/proxychat/internal/domain"
	"github.com/soyeahso/proxychat/internal/hooks"
	"github.com/soyeahso/proxychat/internal/llm"
	"github.com/soyeahso/proxychat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func testAgent(tools ...Tool) *Agent {
	return &Agent{
		Name:         "test-agent",
		Model:        "mock-model",
		Instructions: "Be helpful.",
		Tools:        tools,
	}
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		ID:     "resp_text",
		Model:  "mock-model",
		Status: "completed",
		Output: []domain.Item{domain.AssistantMessage(text)},
		Usage:  llm.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
}

func callResponse(calls ...domain.Item) *llm.Response {
	return &llm.Response{
		ID:     "resp_call",
		Model:  "mock-model",
		Status: "completed",
		Output: calls,
		Usage:  llm.Usage{InputTokens: 8, OutputTokens: 2, TotalTokens: 10},
	}
}

// scripted returns the given responses in order.
func scripted(t *testing.T, responses ...*llm.Response) *llm.MockModel {
	t.Helper()
	var n int
	return &llm.MockModel{
		RespondFunc: func(_ context.Context, _ llm.Request) (*llm.Response, error) {
			if n >= len(responses) {
				return nil, fmt.Errorf("unexpected model call %d", n+1)
			}
			resp := responses[n]
			n++
			return resp, nil
		},
	}
}

func adderTool() *FunctionTool {
	return MustFunctionTool("add_numbers", "Add two numbers.", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required":             []string{"a", "b"},
		"additionalProperties": false,
	}, func(_ context.Context, args json.RawMessage) (string, error) {
		var in struct{ A, B float64 }
		if err := json.Unmarshal(args, &in); err != nil {
			return "", err
		}
		return fmt.Sprint(in.A + in.B), nil
	})
}

// --- Runner tests ---

func TestRunnerPlainReply(t *testing.T) {
	model := scripted(t, textResponse("I'm doing well, thank you!"))
	sess := NewMemorySession("s-1")

	result, err := NewRunner(model, nil, silentLog()).
		Run(context.Background(), testAgent(), "Hello, how are you?", sess, RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, "I'm doing well, thank you!", result.FinalOutput)
	assert.Equal(t, 1, result.Turns)
	assert.Equal(t, "mock-model", result.Model)
	assert.Equal(t, "resp_text", result.ResponseID)
	assert.Equal(t, 15, result.Usage.TotalTokens)

	calls := model.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "mock-model", calls[0].Model)
	assert.Equal(t, "Be helpful.", calls[0].Instructions)
	require.Len(t, calls[0].Input, 1)
	assert.Equal(t, domain.RoleUser, calls[0].Input[0].Role())
	assert.Equal(t, "Hello, how are you?", calls[0].Input[0].Text())
	assert.Empty(t, calls[0].Tools)

	items, err := sess.Items(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.RoleUser, items[0].Role())
	assert.Equal(t, domain.RoleAssistant, items[1].Role())
	assert.Equal(t, result.NewItems, items)
}

func TestRunnerReplaysHistory(t *testing.T) {
	sess := NewMemorySession("s-2")
	model := scripted(t, textResponse("first"), textResponse("second"))
	runner := NewRunner(model, nil, silentLog())

	_, err := runner.Run(context.Background(), testAgent(), "one", sess, RunConfig{})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), testAgent(), "two", sess, RunConfig{})
	require.NoError(t, err)

	calls := model.Calls()
	require.Len(t, calls, 2)
	second := calls[1].Input
	require.Len(t, second, 3)
	assert.Equal(t, "one", second[0].Text())
	assert.Equal(t, "first", second[1].Text())
	assert.Equal(t, "two", second[2].Text())
}

func TestRunnerHistoryLimit(t *testing.T) {
	sess := NewMemorySession("s-3")
	require.NoError(t, sess.AddItems(context.Background(), []domain.Item{
		domain.UserMessage("a"), domain.AssistantMessage("b"),
		domain.UserMessage("c"), domain.AssistantMessage("d"),
	}))

	model := scripted(t, textResponse("ok"))
	_, err := NewRunner(model, nil, silentLog()).
		Run(context.Background(), testAgent(), "e", sess, RunConfig{HistoryLimit: 2})
	require.NoError(t, err)

	input := model.Calls()[0].Input
	require.Len(t, input, 3)
	assert.Equal(t, "c", input[0].Text())
	assert.Equal(t, "e", input[2].Text())
}

func TestRunnerToolLoop(t *testing.T) {
	model := scripted(t,
		callResponse(domain.FunctionCall("call_1", "add_numbers", `{"a":2,"b":3}`)),
		textResponse("2 + 3 = 5"),
	)
	sess := NewMemorySession("s-4")

	result, err := NewRunner(model, nil, silentLog()).
		Run(context.Background(), testAgent(adderTool()), "what is 2+3?", sess, RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, "2 + 3 = 5", result.FinalOutput)
	assert.Equal(t, 2, result.Turns)
	assert.Equal(t, 25, result.Usage.TotalTokens)

	calls := model.Calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[0].Tools, 1)
	assert.Equal(t, "add_numbers", calls[0].Tools[0].Name)

	second := calls[1].Input
	require.Len(t, second, 3)
	assert.Equal(t, domain.ItemFunctionCall, second[1].Type())
	assert.Equal(t, domain.ItemFunctionCallOutput, second[2].Type())
	assert.Equal(t, "call_1", second[2].CallID())
	assert.Equal(t, "5", second[2].Output())

	items, _ := sess.Items(context.Background(), 0)
	assert.Len(t, items, 4)
}

func TestRunnerToolFailureBecomesOutput(t *testing.T) {
	tests := []struct {
		name string
		call domain.Item
		want string
	}{
		{"unknown tool", domain.FunctionCall("c1", "missing", "{}"), "tool missing not found"},
		{"bad json", domain.FunctionCall("c1", "add_numbers", "{nope"), "invalid JSON arguments"},
		{"schema violation", domain.FunctionCall("c1", "add_numbers", `{"a":"two","b":3}`), "invalid arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := scripted(t, callResponse(tt.call), textResponse("sorry"))
			result, err := NewRunner(model, nil, silentLog()).
				Run(context.Background(), testAgent(adderTool()), "x", NewMemorySession("s"), RunConfig{})
			require.NoError(t, err)
			assert.Equal(t, "sorry", result.FinalOutput)

			out := model.Calls()[1].Input[2]
			assert.Equal(t, domain.ItemFunctionCallOutput, out.Type())
			assert.Contains(t, out.Output(), "An error occurred while running the tool")
			assert.Contains(t, out.Output(), tt.want)
		})
	}
}

func TestRunnerMaxTurns(t *testing.T) {
	model := &llm.MockModel{
		RespondFunc: func(_ context.Context, _ llm.Request) (*llm.Response, error) {
			return callResponse(domain.FunctionCall("loop", "add_numbers", `{"a":1,"b":1}`)), nil
		},
	}
	sess := NewMemorySession("s-5")

	_, err := NewRunner(model, nil, silentLog()).
		Run(context.Background(), testAgent(adderTool()), "spin", sess, RunConfig{MaxTurns: 3})
	require.Error(t, err)

	var mt *MaxTurnsError
	require.True(t, errors.As(err, &mt))
	assert.Equal(t, 3, mt.MaxTurns)
	assert.Len(t, model.Calls(), 3)

	items, _ := sess.Items(context.Background(), 0)
	assert.Empty(t, items, "failed runs persist nothing")
}

func TestRunnerModelError(t *testing.T) {
	model := &llm.MockModel{
		RespondFunc: func(_ context.Context, _ llm.Request) (*llm.Response, error) {
			return nil, &llm.APIError{StatusCode: 500, Message: "proxy down"}
		},
	}
	sess := NewMemorySession("s-6")

	_, err := NewRunner(model, nil, silentLog()).
		Run(context.Background(), testAgent(), "hi", sess, RunConfig{})
	require.Error(t, err)

	var apiErr *llm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)

	items, _ := sess.Items(context.Background(), 0)
	assert.Empty(t, items)
}

func TestRunnerPassesModelSettings(t *testing.T) {
	store := false
	temp := 0.5
	a := testAgent()
	a.Settings = ModelSettings{
		Store:           &store,
		Include:         []string{"reasoning.encrypted_content"},
		Temperature:     &temp,
		MaxOutputTokens: 128,
	}

	model := scripted(t, textResponse("ok"))
	_, err := NewRunner(model, nil, silentLog()).Run(context.Background(), a, "x", NewMemorySession("s"), RunConfig{})
	require.NoError(t, err)

	req := model.Calls()[0]
	require.NotNil(t, req.Store)
	assert.False(t, *req.Store)
	assert.Equal(t, []string{"reasoning.encrypted_content"}, req.Include)
	assert.Equal(t, 0.5, *req.Temperature)
	assert.Equal(t, 128, req.MaxOutputTokens)
}

func TestRunnerRejectsInvalidAgent(t *testing.T) {
	runner := NewRunner(&llm.MockModel{}, nil, silentLog())

	_, err := runner.Run(context.Background(), &Agent{Name: "a"}, "x", NewMemorySession("s"), RunConfig{})
	assert.ErrorContains(t, err, "model is required")

	_, err = runner.Run(context.Background(), testAgent(adderTool(), adderTool()), "x", NewMemorySession("s"), RunConfig{})
	assert.ErrorContains(t, err, "duplicate tool")

	_, err = runner.Run(context.Background(), testAgent(), "x", nil, RunConfig{})
	assert.ErrorContains(t, err, "session is required")
}

func TestRunnerEmitsHooks(t *testing.T) {
	hm := hooks.NewManager(silentLog())
	var mu sync.Mutex
	var events []string
	hm.OnAll("recorder", func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p.Event)
		return nil
	})

	model := scripted(t,
		callResponse(domain.FunctionCall("c1", "add_numbers", `{"a":1,"b":2}`)),
		textResponse("3"),
	)
	_, err := NewRunner(model, hm, silentLog()).
		Run(context.Background(), testAgent(adderTool()), "1+2", NewMemorySession("s"), RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		hooks.EventAgentStart,
		hooks.EventModelRequest,
		hooks.EventModelResponse,
		hooks.EventToolStart,
		hooks.EventToolEnd,
		hooks.EventModelRequest,
		hooks.EventModelResponse,
		hooks.EventAgentEnd,
	}, events)
}

// --- Tracing ---

type spanRecorder struct {
	mu    sync.Mutex
	names []string
}

type recordingProvider struct {
	noop.TracerProvider
	rec *spanRecorder
}

func (p recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{rec: p.rec}
}

type recordingTracer struct {
	noop.Tracer
	rec *spanRecorder
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.rec.mu.Lock()
	t.rec.names = append(t.rec.names, name)
	t.rec.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

func TestRunnerTracing(t *testing.T) {
	newModel := func() *llm.MockModel {
		return scripted(t,
			callResponse(domain.FunctionCall("c1", "add_numbers", `{"a":1,"b":2}`)),
			textResponse("3"),
		)
	}

	t.Run("enabled", func(t *testing.T) {
		rec := &spanRecorder{}
		_, err := NewRunner(newModel(), nil, silentLog()).Run(context.Background(),
			testAgent(adderTool()), "1+2", NewMemorySession("s"),
			RunConfig{Tracing: true, TracerProvider: recordingProvider{rec: rec}})
		require.NoError(t, err)
		assert.Equal(t, []string{"agent.run", "model.respond", "tool.invoke", "model.respond"}, rec.names)
	})

	t.Run("disabled ignores provider", func(t *testing.T) {
		rec := &spanRecorder{}
		_, err := NewRunner(newModel(), nil, silentLog()).Run(context.Background(),
			testAgent(adderTool()), "1+2", NewMemorySession("s"),
			RunConfig{Tracing: false, TracerProvider: recordingProvider{rec: rec}})
		require.NoError(t, err)
		assert.Empty(t, rec.names)
	})
}
