package cli

import (
	"encoding/json"
	"fmt"

	"github.com/soyeahso/proxychat/internal/agent"
	"github.com/soyeahso/proxychat/internal/chat"
	"github.com/spf13/cobra"
)

func (a *app) agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect the agent this program runs",
	}

	cmd.AddCommand(a.agentInfoCmd())
	cmd.AddCommand(a.agentToolsCmd())
	return cmd
}

func (a *app) agentInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the agent definition",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := a.stdout
			name := a.file.Agent.Name
			if name == "" {
				name = chat.DefaultAgentName
			}
			maxTurns := a.file.Agent.MaxTurns
			if maxTurns <= 0 {
				maxTurns = agent.DefaultMaxTurns
			}

			fmt.Fprintf(out, "Agent: %s\n", name)
			fmt.Fprintf(out, "  Instructions: %s\n", a.variant.Instructions)
			fmt.Fprintf(out, "  MaxTurns:     %d\n", maxTurns)
			if limit := a.file.Agent.HistoryLimit; limit > 0 {
				fmt.Fprintf(out, "  History:      last %d items\n", limit)
			} else {
				fmt.Fprintln(out, "  History:      all items")
			}
			if s := a.variant.Settings.Store; s != nil {
				fmt.Fprintf(out, "  Store:        %v\n", *s)
			}
			if len(a.variant.Settings.Include) > 0 {
				fmt.Fprintf(out, "  Include:      %v\n", a.variant.Settings.Include)
			}
			fmt.Fprintf(out, "  Tools:        %d\n", len(a.agentTools()))
		},
	}
}

func (a *app) agentToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool definitions sent to the model as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := agent.NewToolRegistry(a.agentTools()...).Definitions()
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(defs)
		},
	}
}
