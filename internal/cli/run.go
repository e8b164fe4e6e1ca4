package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soyeahso/proxychat/internal/agent"
	"github.com/soyeahso/proxychat/internal/chat"
	"github.com/soyeahso/proxychat/internal/config"
	"github.com/soyeahso/proxychat/internal/hooks"
	"github.com/spf13/cobra"
)

// runChat sends --input to the agent and prints the session id and reply.
// Configuration is fully validated before any database or network access.
func (a *app) runChat(cmd *cobra.Command, _ []string) error {
	a.flags.InputSet = cmd.Flags().Changed("input")
	cfg, err := config.Build(a.flags, a.variant.Policy, a.file, a.env)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log.Debug().
		Str("sessionId", cfg.SessionID).
		Bool("newSession", cfg.SessionIsNew).
		Str("model", cfg.Model).
		Str("baseUrl", cfg.BaseURL).
		Str("dbPath", cfg.DBPath).
		Msg("invoking agent")

	result, err := chat.Invoke(ctx, cfg, chat.Options{
		AgentName:    a.file.Agent.Name,
		Instructions: a.variant.Instructions,
		Settings:     a.variant.Settings,
		Tools:        a.agentTools(),
		MaxTurns:     a.file.Agent.MaxTurns,
		HistoryLimit: a.file.Agent.HistoryLimit,
		HTTPClient:   a.httpClient,
		Hooks:        a.debugHooks(),
		Log:          a.log,
	})
	if err != nil {
		return err
	}

	a.log.Info().
		Int("turns", result.Turns).
		Int("inputTokens", result.Usage.InputTokens).
		Int("outputTokens", result.Usage.OutputTokens).
		Dur("duration", result.Duration).
		Msg("agent finished")

	a.report(cfg, result)
	return nil
}

// report writes the run outcome to stdout.
func (a *app) report(cfg config.RuntimeConfig, result *agent.RunResult) {
	fmt.Fprintf(a.stdout, "SESSION_ID=%s\n", cfg.SessionID)
	if a.variant.ReportNewSession && cfg.SessionIsNew {
		fmt.Fprintln(a.stdout, "SESSION_ID_STATUS=New")
	}
	fmt.Fprintln(a.stdout, result.FinalOutput)
}

// debugHooks logs every lifecycle event at debug level.
func (a *app) debugHooks() *hooks.Manager {
	hm := hooks.NewManager(a.log)
	hm.OnAll("debug-log", func(_ context.Context, p hooks.Payload) error {
		a.log.Debug().Str("event", p.Event).Fields(p.Data).Msg("hook")
		return nil
	})
	return hm
}
