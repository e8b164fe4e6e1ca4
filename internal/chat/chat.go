// Package chat performs one agent turn against an OpenAI-compatible proxy
// with a SQLite-backed session.
package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/soyeahso/proxychat/internal/agent"
	"github.com/soyeahso/proxychat/internal/config"
	"github.com/soyeahso/proxychat/internal/hooks"
	"github.com/soyeahso/proxychat/internal/llm"
	"github.com/soyeahso/proxychat/internal/logging"
	"github.com/soyeahso/proxychat/internal/store"
	"go.opentelemetry.io/otel/trace"
)

// DefaultAgentName names the agent in logs, hooks and spans.
const DefaultAgentName = "proxy-assistant"

// Instructions given to the agent.
const (
	BasicInstructions = "You are a concise and helpful assistant."
	ToolInstructions  = BasicInstructions +
		" When the user asks about the current date or time, call get_current_time" +
		" and answer from its result." +
		" When the user asks to add numbers, call add_numbers instead of computing the sum yourself."
)

// ReasoningSettings keeps responses out of upstream storage and asks for
// encrypted reasoning items, which are then replayed from the local session.
func ReasoningSettings() agent.ModelSettings {
	store := false
	return agent.ModelSettings{
		Store:   &store,
		Include: []string{"reasoning.encrypted_content"},
	}
}

// SessionOpener opens the session a run reads from and appends to.
type SessionOpener func(path, id string, log *logging.Logger) (agent.Session, error)

// OpenSQLiteSession is the default SessionOpener.
func OpenSQLiteSession(path, id string, log *logging.Logger) (agent.Session, error) {
	return store.OpenSession(path, id, log)
}

// Options carry everything about a run that is not user configuration.
// The zero value runs the basic agent with tracing disabled.
type Options struct {
	AgentName    string // DefaultAgentName when empty
	Instructions string // BasicInstructions when empty
	Settings     agent.ModelSettings
	Tools        []agent.Tool

	MaxTurns     int
	HistoryLimit int

	Tracing        bool
	TracerProvider trace.TracerProvider

	HTTPClient  *http.Client
	OpenSession SessionOpener
	Hooks       *hooks.Manager
	Log         *logging.Logger
}

// NewAgent builds the agent definition for one invocation.
func NewAgent(cfg config.RuntimeConfig, opts Options) *agent.Agent {
	a := &agent.Agent{
		Name:         opts.AgentName,
		Model:        cfg.Model,
		Instructions: opts.Instructions,
		Tools:        opts.Tools,
		Settings:     opts.Settings,
	}
	if a.Name == "" {
		a.Name = DefaultAgentName
	}
	if a.Instructions == "" {
		a.Instructions = BasicInstructions
	}
	return a
}

// Invoke sends cfg.Input to the agent in session cfg.SessionID and returns
// the run result. The session and the HTTP client are released before it
// returns, on success and on failure alike.
func Invoke(ctx context.Context, cfg config.RuntimeConfig, opts Options) (result *agent.RunResult, err error) {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	open := opts.OpenSession
	if open == nil {
		open = OpenSQLiteSession
	}

	model := llm.NewResponsesModel(llm.ResponsesConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: opts.HTTPClient,
	}, log)
	defer func() {
		err = errors.Join(err, model.Close())
	}()

	sess, err := open(cfg.DBPath, cfg.SessionID, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("sessionId", cfg.SessionID).Msg("closing session")
			err = errors.Join(err, cerr)
		}
	}()

	runner := agent.NewRunner(model, opts.Hooks, log)
	return runner.Run(ctx, NewAgent(cfg, opts), cfg.Input, sess, agent.RunConfig{
		MaxTurns:       opts.MaxTurns,
		HistoryLimit:   opts.HistoryLimit,
		Tracing:        opts.Tracing,
		TracerProvider: opts.TracerProvider,
	})
}
