package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahdg6/TypeWriter/internal/action"
	"github.com/ahdg6/TypeWriter/internal/config"
	"github.com/ahdg6/TypeWriter/internal/engine"
	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/loader"
	"github.com/ahdg6/TypeWriter/internal/store"
	"github.com/ahdg6/TypeWriter/internal/telemetry"
	"github.com/ahdg6/TypeWriter/internal/transport/ws"
)

// RunOptions holds flags for the run command. Empty or zero flags fall
// back to the environment (see config).
type RunOptions struct {
	*RootOptions
	EnvFile      string
	Database     string
	Addr         string
	TickInterval time.Duration
	OTelEndpoint string

	// ChainTokens overrides the chain token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	ChainTokens engine.ChainTokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [entries-dir]",
		Short: "Serve players over WebSocket",
		Long: `Load the entry graph, open the database and serve player sessions.

Players connect to /ws?player=<id>. Facts are loaded from the database on a
player's first input and saved when they disconnect. Every activation is
recorded. SIGHUP reloads the entry graph; SIGINT or SIGTERM shut down,
saving every connected player's facts.

Settings come from TYPEWRITER_* environment variables (optionally from a
.env file); flags override them.

Example:
  typewriter run ./entries --db ./typewriter.db --addr :8080
  TYPEWRITER_TICK_INTERVAL=100ms typewriter run ./entries -v`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveRunConfig(opts, args)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			return runServer(cmd, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to read before the environment")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $TYPEWRITER_DB_PATH)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $TYPEWRITER_HTTP_ADDR)")
	cmd.Flags().DurationVar(&opts.TickInterval, "tick", 0, "tick interval (default $TYPEWRITER_TICK_INTERVAL)")
	cmd.Flags().StringVar(&opts.OTelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint (default $TYPEWRITER_OTEL_ENDPOINT)")

	return cmd
}

// resolveRunConfig layers flags over the environment.
func resolveRunConfig(opts *RunOptions, args []string) (config.Config, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if len(args) == 1 {
		cfg.EntriesDir = args[0]
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
	}
	if opts.TickInterval > 0 {
		cfg.TickInterval = opts.TickInterval
	}
	if opts.OTelEndpoint != "" {
		cfg.OTelEndpoint = opts.OTelEndpoint
	}
	return cfg, cfg.Validate()
}

func runServer(cmd *cobra.Command, opts *RunOptions, cfg config.Config) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.RootOptions, cfg.Level())
	slog.SetDefault(logger)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("error flushing traces", "error", err)
		}
	}()

	g, err := loadGraph(logger, cfg.EntriesDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load entries", err)
	}

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()

	lastSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read activation log", err)
	}

	chains := opts.ChainTokens
	if chains == nil {
		chains = engine.UUIDv7Generator{}
	}

	facts := fact.NewMemory()
	hub := ws.NewHub(logger)
	runner := action.NewRunner(
		action.WithPresenter(hub),
		action.WithFacts(facts),
		action.WithLogger(logger),
		action.WithTimeout(cfg.ActionTimeout),
	)
	reg := engine.NewRegistry(g, facts,
		engine.WithActionRunner(runner),
		engine.WithPersister(st),
		engine.WithRecorder(st),
		engine.WithClock(engine.NewClockAt(lastSeq)),
		engine.WithChainTokens(chains),
		engine.WithTickInterval(cfg.TickInterval),
		engine.WithHistorySize(cfg.HistorySize),
		engine.WithMaxSteps(cfg.MaxSteps),
		engine.WithLogger(logger),
	)
	defer func() {
		if err := reg.Close(context.Background()); err != nil {
			logger.Error("error saving facts on shutdown", "error", err)
		}
	}()

	go watchReload(ctx, logger, cfg.EntriesDir, reg)

	reg.Start(ctx)
	logger.Info("typewriter starting", "addr", cfg.HTTPAddr, "entries", cfg.EntriesDir, "graph", g.Hash())
	fmt.Fprintf(cmd.OutOrStdout(), "Serving players on %s. Press Ctrl-C to stop.\n", cfg.HTTPAddr)

	server := ws.NewServer(reg, hub, ws.WithLogger(logger))
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("typewriter stopped gracefully")
	return nil
}

// loadGraph loads dir and logs any graph warnings.
func loadGraph(logger *slog.Logger, dir string) (*graph.Graph, error) {
	g, issues, err := loader.LoadGraph(dir)
	if err != nil {
		return nil, err
	}
	for _, w := range graph.Warnings(issues) {
		logger.Warn("entry graph warning", "code", w.Code, "entry", w.EntryID, "message", w.Message)
	}
	logger.Info("entries loaded", "dir", dir, "entries", g.Len())
	return g, nil
}

// watchReload swaps in a freshly loaded graph on SIGHUP. A graph that
// fails to load leaves the current one in place.
func watchReload(ctx context.Context, logger *slog.Logger, dir string, reg *engine.Registry) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			g, err := loadGraph(logger, dir)
			if err != nil {
				logger.Error("reload failed, keeping current entries", "error", err)
				continue
			}
			reg.SetGraph(g)
		}
	}
}
