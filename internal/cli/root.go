// Package cli implements the proxychat command-line programs.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/soyeahso/proxychat/internal/agent"
	"github.com/soyeahso/proxychat/internal/chat"
	"github.com/soyeahso/proxychat/internal/config"
	"github.com/soyeahso/proxychat/internal/logging"
	"github.com/soyeahso/proxychat/internal/tools"
	"github.com/spf13/cobra"
)

// Variant describes one of the shipped programs.
type Variant struct {
	Name  string
	Short string

	Policy       config.Policy
	Instructions string
	Settings     agent.ModelSettings

	// Tools builds the tool set; nil means no tools.
	Tools func(now func() time.Time) []agent.Tool

	// ReportNewSession prints SESSION_ID_STATUS=New for minted session ids.
	ReportNewSession bool
}

// Basic is the plain chat program with lenient configuration.
var Basic = Variant{
	Name:         "proxychat",
	Short:        "Chat with an agent through a LiteLLM proxy",
	Policy:       config.Lenient,
	Instructions: chat.BasicInstructions,
}

// WithTools is the tool-enabled program with strict configuration.
var WithTools = Variant{
	Name:             "proxychat-tools",
	Short:            "Chat with a tool-using agent through a LiteLLM proxy",
	Policy:           config.Strict,
	Instructions:     chat.ToolInstructions,
	Settings:         chat.ReasoningSettings(),
	Tools:            tools.Builtin,
	ReportNewSession: true,
}

// app holds the state of one command-line invocation.
type app struct {
	variant Variant
	stdout  io.Writer
	stderr  io.Writer

	env        config.Lookup
	dotEnvPath string
	httpClient *http.Client
	now        func() time.Time

	cfgFile  string
	logLevel string
	flags    config.Flags

	paths    config.Paths
	pathsErr error
	file     config.File
	log      *logging.Logger
}

func newApp(v Variant, stdout, stderr io.Writer) *app {
	return &app{
		variant:    v,
		stdout:     stdout,
		stderr:     stderr,
		env:        os.LookupEnv,
		dotEnvPath: ".env",
		now:        time.Now,
		log:        logging.Nop(),
	}
}

// Main runs the program with the given arguments and returns the process
// exit code. Failures are reported on stderr as "Error: <message>".
func Main(v Variant, args []string, stdout, stderr io.Writer) int {
	return newApp(v, stdout, stderr).execute(context.Background(), args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               a.variant.Name,
		Short:             a.variant.Short,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		RunE:              a.runChat,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	f := cmd.Flags()
	f.StringVar(&a.flags.Input, "input", "", "user input to send to the agent (required)")
	f.StringVar(&a.flags.SessionID, "session-id", "", "reuse an existing session id; a uuid v7 is generated when omitted")
	if a.variant.Policy.ModelFromEnv {
		f.StringVar(&a.flags.Model, "model", "", "model alias on the proxy (default $"+config.EnvModel+")")
	} else {
		f.StringVar(&a.flags.Model, "model", "", "model alias on the proxy (required)")
	}

	pf := cmd.PersistentFlags()
	if a.variant.Policy.DefaultDBPath != "" {
		pf.StringVar(&a.flags.DBPath, "db-path", "", "SQLite path for sessions (default $"+config.EnvDBPath+" or "+a.variant.Policy.DefaultDBPath+")")
	} else {
		pf.StringVar(&a.flags.DBPath, "db-path", "", "SQLite path for sessions (default $"+config.EnvDBPath+")")
	}
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ~/.proxychat/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(a.versionCmd())
	cmd.AddCommand(a.configCmd())
	cmd.AddCommand(a.sessionCmd())
	cmd.AddCommand(a.agentCmd())
	cmd.AddCommand(a.statusCmd())

	return cmd
}

// setup loads .env, the config file and the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(a.dotEnvPath); err != nil {
		return err
	}

	// The config file is optional: without a home directory the run
	// continues on flags and environment alone.
	paths, err := config.ResolvePaths()
	if err != nil {
		a.pathsErr = err
	}
	if a.cfgFile != "" {
		paths.Config = a.cfgFile
		a.pathsErr = nil
	}
	a.paths = paths

	file, err := config.LoadFile(paths.Config)
	if err != nil {
		return err
	}
	a.file = file

	level := a.logLevel
	if level == "" {
		level = file.Logging.Level
	}
	if level == "" {
		level = logging.DefaultLevel
	}
	if file.Logging.Format == "json" {
		a.log = logging.New(a.stderr, level)
	} else {
		a.log = logging.NewConsole(a.stderr, level)
	}

	if a.pathsErr != nil {
		a.log.Debug().Err(a.pathsErr).Msg("no config file location, using flags and environment only")
	}
	return nil
}

// configPath returns the config file location, or why there is none.
func (a *app) configPath() (string, error) {
	if a.pathsErr != nil {
		return "", fmt.Errorf("cannot locate the config file (pass --config or set %s): %w", config.EnvHome, a.pathsErr)
	}
	return a.paths.Config, nil
}

// agentTools builds the variant's tools, or nil.
func (a *app) agentTools() []agent.Tool {
	if a.variant.Tools == nil {
		return nil
	}
	return a.variant.Tools(a.now)
}
