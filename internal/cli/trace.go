package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ahdg6/TypeWriter/internal/ir"
	"github.com/ahdg6/TypeWriter/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Player   string
	Chain    string
	After    int64
	Limit    int
}

// TraceResult is the trace command's payload.
type TraceResult struct {
	Activations []ir.Activation `json:"activations"`
	Stats       TraceStats      `json:"stats"`
}

// TraceStats summarises a trace.
type TraceStats struct {
	Total   int            `json:"total"`
	Players int            `json:"players"`
	Chains  int            `json:"chains"`
	ByInput map[string]int `json:"by_input"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded activations",
		Long: `Read the activation log from a typewriter database.

Each line is one entry activation: its sequence number, the player, the
entry, the dialogue chain that was open and the input that caused it
(start, continue, actions or tick).

Examples:
  typewriter trace --db ./typewriter.db
  typewriter trace --db ./typewriter.db --player alice --limit 20
  typewriter trace --db ./typewriter.db --chain 0190c3e2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Player, "player", "", "only this player's activations")
	cmd.Flags().StringVar(&opts.Chain, "chain", "", "only activations in this chain")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only activations with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of activations (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be >= 0")
	}
	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	acts, err := st.ReadActivations(ctx, store.ActivationFilter{
		Player:   opts.Player,
		Chain:    opts.Chain,
		AfterSeq: opts.After,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read activations", err)
	}

	result := TraceResult{Activations: acts, Stats: traceStats(acts)}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

// openExistingStore opens path without creating a fresh database.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func traceStats(acts []ir.Activation) TraceStats {
	players := map[string]struct{}{}
	chains := map[string]struct{}{}
	stats := TraceStats{Total: len(acts), ByInput: map[string]int{}}
	for _, a := range acts {
		players[a.Player] = struct{}{}
		if a.Chain != "" {
			chains[a.Chain] = struct{}{}
		}
		stats.ByInput[a.Input]++
	}
	stats.Players = len(players)
	stats.Chains = len(chains)
	return stats
}

func outputTraceText(f *OutputFormatter, r TraceResult) {
	w := f.Writer
	if len(r.Activations) == 0 {
		fmt.Fprintln(w, "No activations found.")
		return
	}
	for _, a := range r.Activations {
		chain := a.Chain
		if chain == "" {
			chain = "-"
		}
		fmt.Fprintf(w, "%6d  %-12s %-24s %-8s %s\n", a.Seq, a.Player, a.EntryID, a.Input, chain)
	}

	inputs := make([]string, 0, len(r.Stats.ByInput))
	for in := range r.Stats.ByInput {
		inputs = append(inputs, in)
	}
	sort.Strings(inputs)
	fmt.Fprintf(w, "\n%d activation(s), %d player(s), %d chain(s)", r.Stats.Total, r.Stats.Players, r.Stats.Chains)
	for _, in := range inputs {
		fmt.Fprintf(w, ", %s=%d", in, r.Stats.ByInput[in])
	}
	fmt.Fprintln(w)
}
