package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/soyeahso/proxychat/internal/domain"
	"github.com/soyeahso/proxychat/internal/hooks"
	"github.com/soyeahso/proxychat/internal/llm"
	"github.com/soyeahso/proxychat/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultMaxTurns limits how many model calls a single run can make.
const DefaultMaxTurns = 10

const tracerName = "github.com/soyeahso/proxychat/internal/agent"

// RunConfig tunes one run.
type RunConfig struct {
	// MaxTurns bounds the model calls of the run. Zero means DefaultMaxTurns.
	MaxTurns int

	// HistoryLimit caps how many stored items are replayed. Zero replays all.
	HistoryLimit int

	// Tracing enables spans. When false a no-op provider is used regardless
	// of TracerProvider.
	Tracing bool

	// TracerProvider receives spans when Tracing is set. Nil uses the
	// global provider.
	TracerProvider trace.TracerProvider
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	FinalOutput string        `json:"finalOutput"`
	NewItems    []domain.Item `json:"newItems"`
	Usage       llm.Usage     `json:"usage"`
	Turns       int           `json:"turns"`
	Model       string        `json:"model,omitempty"`
	ResponseID  string        `json:"responseId,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// MaxTurnsError is returned when the model keeps calling tools past the
// turn limit.
type MaxTurnsError struct {
	MaxTurns int
}

func (e *MaxTurnsError) Error() string {
	return fmt.Sprintf("max turns (%d) exceeded", e.MaxTurns)
}

// Runner is the agent orchestration loop.
type Runner struct {
	model llm.Model
	hooks *hooks.Manager
	log   *logging.Logger
}

// NewRunner creates an agent runner. hooks may be nil.
func NewRunner(model llm.Model, hm *hooks.Manager, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{
		model: model,
		hooks: hm,
		log:   log.Sub("agent"),
	}
}

func (cfg RunConfig) tracer() trace.Tracer {
	if !cfg.Tracing {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	if cfg.TracerProvider != nil {
		return cfg.TracerProvider.Tracer(tracerName)
	}
	return otel.GetTracerProvider().Tracer(tracerName)
}

// Run sends input to the agent within sess. Stored history is replayed
// before the input; on success the input and every generated item are
// appended to sess in one call. A failed run stores nothing.
func (r *Runner) Run(ctx context.Context, a *Agent, input string, sess Session, cfg RunConfig) (*RunResult, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("session is required")
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	start := time.Now()
	tracer := cfg.tracer()
	ctx, span := tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.name", a.Name),
		attribute.String("agent.model", a.Model),
		attribute.String("session.id", sess.ID()),
	))
	defer span.End()

	fail := func(turns int, err error) (*RunResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent run failed")
		r.hooks.Emit(ctx, hooks.EventAgentEnd, map[string]any{
			"agent": a.Name,
			"turns": turns,
			"error": err.Error(),
		})
		return nil, err
	}

	history, err := sess.Items(ctx, cfg.HistoryLimit)
	if err != nil {
		return fail(0, fmt.Errorf("loading session %s: %w", sess.ID(), err))
	}

	r.log.Info().
		Str("agent", a.Name).
		Str("model", a.Model).
		Str("sessionId", sess.ID()).
		Int("historyLen", len(history)).
		Msg("processing input")
	r.hooks.Emit(ctx, hooks.EventAgentStart, map[string]any{
		"agent":   a.Name,
		"model":   a.Model,
		"session": sess.ID(),
		"history": len(history),
	})

	tools := NewToolRegistry(a.Tools...)
	defs := tools.Definitions()
	newItems := []domain.Item{domain.UserMessage(input)}

	result := &RunResult{}
	for turn := 1; turn <= maxTurns; turn++ {
		req := llm.Request{
			Model:           a.Model,
			Instructions:    a.Instructions,
			Input:           slices.Concat(history, newItems),
			Tools:           defs,
			Store:           a.Settings.Store,
			Include:         a.Settings.Include,
			Temperature:     a.Settings.Temperature,
			MaxOutputTokens: a.Settings.MaxOutputTokens,
		}

		r.hooks.Emit(ctx, hooks.EventModelRequest, map[string]any{
			"turn":  turn,
			"items": len(req.Input),
		})
		resp, err := r.respond(ctx, tracer, turn, req)
		if err != nil {
			return fail(turn, fmt.Errorf("model call: %w", err))
		}

		result.Turns = turn
		result.Model = resp.Model
		result.ResponseID = resp.ID
		result.Usage.Add(resp.Usage)
		newItems = append(newItems, resp.Output...)

		calls := resp.FunctionCalls()
		r.hooks.Emit(ctx, hooks.EventModelResponse, map[string]any{
			"turn":          turn,
			"responseId":    resp.ID,
			"outputItems":   len(resp.Output),
			"functionCalls": len(calls),
		})

		if len(calls) == 0 {
			result.FinalOutput = resp.OutputText()
			break
		}

		r.log.Debug().Int("toolCalls", len(calls)).Int("turn", turn).Msg("executing tool calls")
		for _, call := range calls {
			output := r.invokeTool(ctx, tracer, tools, call)
			newItems = append(newItems, domain.FunctionCallOutput(call.CallID(), output))
		}

		if turn == maxTurns {
			return fail(turn, &MaxTurnsError{MaxTurns: maxTurns})
		}
	}

	if err := sess.AddItems(ctx, newItems); err != nil {
		return fail(result.Turns, fmt.Errorf("saving session %s: %w", sess.ID(), err))
	}

	result.NewItems = newItems
	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("agent.turns", result.Turns),
		attribute.Int("usage.input_tokens", result.Usage.InputTokens),
		attribute.Int("usage.output_tokens", result.Usage.OutputTokens),
	)
	span.SetStatus(codes.Ok, "ok")

	r.log.Info().
		Str("sessionId", sess.ID()).
		Str("model", result.Model).
		Int("turns", result.Turns).
		Int("inputTokens", result.Usage.InputTokens).
		Int("outputTokens", result.Usage.OutputTokens).
		Dur("duration", result.Duration).
		Msg("response generated")
	r.hooks.Emit(ctx, hooks.EventAgentEnd, map[string]any{
		"agent":  a.Name,
		"turns":  result.Turns,
		"output": result.FinalOutput,
	})
	return result, nil
}

func (r *Runner) respond(ctx context.Context, tracer trace.Tracer, turn int, req llm.Request) (*llm.Response, error) {
	ctx, span := tracer.Start(ctx, "model.respond",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("model", req.Model),
			attribute.Int("turn", turn),
			attribute.Int("input_items", len(req.Input)),
			attribute.Int("tools", len(req.Tools)),
		),
	)
	defer span.End()

	resp, err := r.model.Respond(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model respond failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("response.id", resp.ID),
		attribute.Int("usage.total_tokens", resp.Usage.TotalTokens),
	)
	span.SetStatus(codes.Ok, "ok")
	return resp, nil
}

// invokeTool runs one function call. Failures are reported to the model as
// the call's output so it can recover.
func (r *Runner) invokeTool(ctx context.Context, tracer trace.Tracer, tools *ToolRegistry, call domain.Item) string {
	ctx, span := tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
		attribute.String("tool.name", call.Name()),
		attribute.String("tool.call_id", call.CallID()),
	))
	defer span.End()

	r.hooks.Emit(ctx, hooks.EventToolStart, map[string]any{
		"tool":      call.Name(),
		"callId":    call.CallID(),
		"arguments": call.Arguments(),
	})

	var output string
	var err error
	if tool, ok := tools.Get(call.Name()); ok {
		output, err = tool.Invoke(ctx, call.Arguments())
	} else {
		err = fmt.Errorf("tool %s not found", call.Name())
	}

	if err != nil {
		toolErr := &ToolError{Tool: call.Name(), Err: err}
		span.RecordError(toolErr)
		span.SetStatus(codes.Error, "tool failed")
		r.log.Warn().Err(err).Str("tool", call.Name()).Msg("tool invocation failed")
		output = toolErrorOutput(err)
	} else {
		span.SetStatus(codes.Ok, "ok")
	}

	end := map[string]any{
		"tool":   call.Name(),
		"callId": call.CallID(),
		"output": output,
	}
	if err != nil {
		end["error"] = err.Error()
	}
	r.hooks.Emit(ctx, hooks.EventToolEnd, end)
	return output
}
