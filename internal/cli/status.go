package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/proxychat/internal/config"
	"github.com/soyeahso/proxychat/internal/version"
	"github.com/spf13/cobra"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration without contacting the proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.stdout
			get := func(key string) string {
				v, _ := a.env(key)
				return v
			}

			fmt.Fprintf(out, "%s %s (commit %s)\n\n", a.variant.Name, version.Version, version.Commit)

			switch cfgPath, err := a.configPath(); {
			case err != nil:
				fmt.Fprintln(out, "Config:  (no home directory, using defaults)")
			case fileExists(cfgPath):
				fmt.Fprintf(out, "Config:  %s\n", cfgPath)
			default:
				fmt.Fprintf(out, "Config:  %s (not found, using defaults)\n", cfgPath)
			}

			baseURL := get(config.EnvBaseURL)
			if baseURL == "" {
				baseURL = a.file.BaseURL
			}
			if baseURL == "" {
				baseURL = a.variant.Policy.DefaultBaseURL
			}
			if baseURL != "" {
				fmt.Fprintf(out, "Proxy:   %s\n", config.NormalizeBaseURL(baseURL))
			} else {
				fmt.Fprintf(out, "Proxy:   (not set, %s is required)\n", config.EnvBaseURL)
			}

			model := a.flags.Model
			if model == "" && a.variant.Policy.ModelFromEnv {
				model = get(config.EnvModel)
				if model == "" {
					model = a.file.Model
				}
			}
			if model == "" {
				model = "(not set)"
			}
			fmt.Fprintf(out, "Model:   %s\n", model)

			if get(config.EnvAPIKey) != "" {
				fmt.Fprintln(out, "API key: set")
			} else {
				fmt.Fprintf(out, "API key: (not set, %s is required)\n", config.EnvAPIKey)
			}

			if dbPath, err := config.ResolveDBPath(a.flags.DBPath, a.variant.Policy, a.file, a.env); err == nil {
				fmt.Fprintf(out, "Store:   %s\n", dbPath)
			} else {
				fmt.Fprintf(out, "Store:   (not set: %v)\n", err)
			}

			if tools := a.agentTools(); len(tools) > 0 {
				names := make([]string, 0, len(tools))
				for _, t := range tools {
					names = append(names, t.Name())
				}
				fmt.Fprintf(out, "Tools:   %s\n", strings.Join(names, ", "))
			} else {
				fmt.Fprintln(out, "Tools:   (none)")
			}

			issues := config.ValidateFile(&a.file)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
