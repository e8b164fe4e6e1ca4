package cli

import (
	"fmt"
	"strings"

	"github.com/soyeahso/proxychat/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration values",
		Long: "Get or set values in the config file. Keys: " +
			strings.Join(config.Keys, ", ") + ".",
	}

	cmd.AddCommand(a.configGetCmd())
	cmd.AddCommand(a.configSetCmd())
	cmd.AddCommand(a.configUnsetCmd())
	cmd.AddCommand(a.configPathCmd())
	cmd.AddCommand(a.configShowCmd())

	return cmd
}

func (a *app) configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.ParseKey(args[0])
			if err != nil {
				return err
			}

			path, err := a.configPath()
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(path)
			if err != nil {
				return err
			}

			val, ok := config.GetValue(raw, key)
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}

			fmt.Fprintln(a.stdout, val)
			return nil
		},
	}
}

func (a *app) configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.ParseKey(args[0])
			if err != nil {
				return err
			}

			value, err := config.ParseValue(args[0], args[1])
			if err != nil {
				return err
			}

			path, err := a.configPath()
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(path)
			if err != nil {
				return err
			}

			config.SetValue(raw, key, value)

			if err := config.SaveRaw(path, raw); err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "Set %s = %v\n", args[0], value)
			return nil
		},
	}
}

func (a *app) configUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.ParseKey(args[0])
			if err != nil {
				return err
			}

			path, err := a.configPath()
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(path)
			if err != nil {
				return err
			}

			if !config.UnsetValue(raw, key) {
				return fmt.Errorf("key %q not found", args[0])
			}

			if err := config.SaveRaw(path, raw); err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "Unset %s\n", args[0])
			return nil
		},
	}
}

func (a *app) configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	}
}

func (a *app) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective file configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.file)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}
