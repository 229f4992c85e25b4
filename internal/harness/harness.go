package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/ahdg6/TypeWriter/internal/action"
	"github.com/ahdg6/TypeWriter/internal/engine"
	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/ir"
	"github.com/ahdg6/TypeWriter/internal/loader"
	"github.com/ahdg6/TypeWriter/internal/store"
)

// stepTimeout bounds how long one step may take to be processed.
const stepTimeout = 5 * time.Second

// Harness drives a Registry through a scenario and collects the trace.
//
// It is the Registry's Recorder and the action runner's Presenter, so
// activations and messages land in one ordered trace. Activations are also
// written through to the store.
type Harness struct {
	store  *store.Store
	reg    *engine.Registry
	facts  *fact.Memory
	logger *slog.Logger

	mu     sync.Mutex
	result *Result
}

// Record implements engine.Recorder.
func (h *Harness) Record(ctx context.Context, act ir.Activation) error {
	h.mu.Lock()
	h.result.AddActivation(act)
	h.mu.Unlock()
	return h.store.Record(ctx, act)
}

// Present implements action.Presenter.
func (h *Harness) Present(_ context.Context, player string, msg action.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.AddMessage(player, msg)
	return nil
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database.
//
// Execution flow:
// 1. Load entries and build the graph
// 2. Seed facts into the store
// 3. Execute steps, checking step expectations
// 4. Snapshot facts, then disconnect every player (saving facts)
// 5. Evaluate assertions against the trace and the store
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	g, err := buildGraph(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	for _, player := range sortedKeys(scenario.Facts) {
		if err := st.SaveFacts(ctx, player, scenario.Facts[player]); err != nil {
			return nil, fmt.Errorf("failed to seed facts: %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		store:  st,
		facts:  fact.NewMemory(),
		logger: logger,
		result: NewResult(),
	}

	runner := action.NewRunner(
		action.WithPresenter(h),
		action.WithFacts(h.facts),
		action.WithLogger(logger),
	)
	opts := []engine.RegistryOption{
		engine.WithActionRunner(runner),
		engine.WithRecorder(h),
		engine.WithPersister(st),
		engine.WithChainTokens(&engine.SequenceGenerator{Prefix: "chain"}),
		engine.WithClock(engine.NewClock()),
		engine.WithLogger(logger),
	}
	if scenario.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	h.reg = engine.NewRegistry(g, h.facts, opts...)

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step); err != nil {
			h.reg.Close(ctx)
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	for _, player := range h.reg.Players() {
		h.result.Facts[player] = h.facts.Snapshot(player)
	}
	if err := h.reg.Close(ctx); err != nil {
		return nil, fmt.Errorf("failed to close registry: %w", err)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// buildGraph loads the scenario's entry paths plus its inline entries.
func buildGraph(s *Scenario) (*graph.Graph, error) {
	var entries []ir.Entry
	for _, p := range s.Entries {
		loaded, err := loadPath(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load entries: %w", err)
		}
		entries = append(entries, loaded...)
	}
	entries = append(entries, s.Inline...)

	g, _, err := graph.New(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}

func loadPath(p string) ([]ir.Entry, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		res, err := loader.LoadDir(p)
		if err != nil {
			return nil, err
		}
		return res.Entries, nil
	}
	return loader.LoadFile(p)
}

// executeStep dispatches one step and waits for it to be processed.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) error {
	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	switch step.Ops()[0] {
	case OpStart:
		h.reg.StartDialogueWithOrTriggerEvent(ctx, step.Player, step.Start, step.Continue)
	case OpActions:
		h.reg.TriggerActions(ctx, step.Player, step.Actions...)
	case OpTick:
		for n := 0; n < step.Tick; n++ {
			h.reg.Tick()
			if err := h.reg.SyncAll(ctx); err != nil {
				return err
			}
		}
	case OpCommand:
		h.reg.PreprocessCommand(ctx, step.Player, step.Command)
	case OpChat:
		h.reg.RecordChat(ctx, step.Player, step.Chat)
	case OpEnd:
		h.reg.End(ctx, step.Player)
	case OpDisconnect:
		if err := h.reg.Disconnect(ctx, step.Player); err != nil {
			return err
		}
	}

	if err := h.reg.SyncAll(ctx); err != nil {
		return err
	}

	if step.Expect != nil {
		h.checkExpect(index, step)
	}
	return nil
}

// checkExpect compares the player's live state with the step's
// expectation.
func (h *Harness) checkExpect(index int, step Step) {
	exp := step.Expect

	if exp.State != "" {
		if got := h.reg.State(step.Player).String(); got != exp.State {
			h.result.AddError(fmt.Sprintf("steps[%d]: %s state = %s, expected %s", index, step.Player, got, exp.State))
		}
	}

	for _, name := range sortedKeys(exp.Facts) {
		if got := h.facts.Get(step.Player, name); got != exp.Facts[name] {
			h.result.AddError(fmt.Sprintf("steps[%d]: %s fact %s = %d, expected %d", index, step.Player, name, got, exp.Facts[name]))
		}
	}

	if exp.Chat != nil {
		if got := h.reg.ChatHistory(step.Player); !slices.Equal(got, exp.Chat) {
			h.result.AddError(fmt.Sprintf("steps[%d]: %s chat = %q, expected %q", index, step.Player, got, exp.Chat))
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
