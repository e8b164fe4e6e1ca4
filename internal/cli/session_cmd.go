package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/soyeahso/proxychat/internal/config"
	"github.com/soyeahso/proxychat/internal/domain"
	"github.com/soyeahso/proxychat/internal/store"
	"github.com/spf13/cobra"
)

func (a *app) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and edit stored conversation sessions",
	}

	cmd.AddCommand(a.sessionListCmd())
	cmd.AddCommand(a.sessionShowCmd())
	cmd.AddCommand(a.sessionPopCmd())
	cmd.AddCommand(a.sessionClearCmd())
	return cmd
}

// openStore opens the session database. It refuses to create one: the
// maintenance commands only operate on existing history.
func (a *app) openStore() (*store.DB, error) {
	path, err := config.ResolveDBPath(a.flags.DBPath, a.variant.Policy, a.file, a.env)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("session database %s does not exist", path)
		}
		return nil, err
	}
	return store.Open(path, a.log)
}

func (a *app) sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			sessions, err := store.ListSessions(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintf(a.stdout, "No sessions in %s.\n", db.Path())
				return nil
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPDATED\tITEMS")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%d\n", s.ID, s.UpdatedAt.Local().Format(time.DateTime), s.Items)
			}
			return w.Flush()
		},
	}
}

func (a *app) sessionShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the items of a session in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := store.NewSQLiteSession(db, args[0]).Items(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return fmt.Errorf("session %s has no items", args[0])
			}
			for _, it := range items {
				if asJSON {
					fmt.Fprintln(a.stdout, string(it.Raw()))
					continue
				}
				fmt.Fprintln(a.stdout, summarize(it))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw item JSON, one per line")
	return cmd
}

func (a *app) sessionPopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pop <session-id>",
		Short: "Remove the most recent item of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			it, ok, err := store.NewSQLiteSession(db, args[0]).PopItem(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("session %s has no items", args[0])
			}
			fmt.Fprintf(a.stdout, "Removed %s\n", summarize(it))
			return nil
		},
	}
}

func (a *app) sessionClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Delete a session and all of its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.NewSQLiteSession(db, args[0]).Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Cleared %s\n", args[0])
			return nil
		},
	}
}

// summarize renders an item as a single line.
func summarize(it domain.Item) string {
	switch it.Type() {
	case domain.ItemMessage:
		return fmt.Sprintf("[%s] %s", it.Role(), oneLine(it.Text()))
	case domain.ItemFunctionCall:
		return fmt.Sprintf("[call %s] %s(%s)", it.CallID(), it.Name(), oneLine(it.Arguments()))
	case domain.ItemFunctionCallOutput:
		return fmt.Sprintf("[output %s] %s", it.CallID(), oneLine(it.Output()))
	case "":
		return "[unknown]"
	default:
		return fmt.Sprintf("[%s]", it.Type())
	}
}

func oneLine(s string) string {
	const maxRunes = 120
	out := []rune(s)
	for i, r := range out {
		if r == '\n' || r == '\r' {
			out[i] = ' '
		}
	}
	if len(out) > maxRunes {
		return string(out[:maxRunes-3]) + "..."
	}
	return string(out)
}
