package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// FactsOptions holds flags for the facts command.
type FactsOptions struct {
	*RootOptions
	Database string
	Player   string
}

// NewFactsCommand creates the facts command.
func NewFactsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FactsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Show saved player facts",
		Long: `Print the facts saved for players when they disconnected.

Examples:
  typewriter facts --db ./typewriter.db
  typewriter facts --db ./typewriter.db --player alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacts(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Player, "player", "", "only this player")

	return cmd
}

func runFacts(opts *FactsOptions, cmd *cobra.Command) error {
	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	players := []string{opts.Player}
	if opts.Player == "" {
		if players, err = st.FactPlayers(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to list players", err)
		}
	}

	all := make(map[string]map[string]int, len(players))
	for _, p := range players {
		values, err := st.LoadFacts(ctx, p)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load facts", err)
		}
		all[p] = values
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.Success(all)
	}

	w := formatter.Writer
	for _, p := range players {
		fmt.Fprintf(w, "%s\n", p)
		names := make([]string, 0, len(all[p]))
		for name := range all[p] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s = %d\n", name, all[p][name])
		}
	}
	return nil
}
