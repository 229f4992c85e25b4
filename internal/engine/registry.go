package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

// tracerName is the instrumentation scope for engine spans.
const tracerName = "github.com/ahdg6/TypeWriter/internal/engine"

// Registry owns the player -> Interaction map and the tick driver.
//
// Thread-safety model:
//   - Dispatch methods, Disconnect, Sync and the accessors: safe from any
//     goroutine
//   - Start/Shutdown: safe from any goroutine; Start is idempotent
//
// INVARIANTS:
//   - At most one Interaction per player is ever reachable from the map
//   - Only the Interaction that won LoadOrStore has a running goroutine
//   - A disconnecting Interaction keeps its slot until its facts are saved
//     and cleared; a returning player waits for that before a new one is
//     created
type Registry struct {
	graph     atomic.Pointer[graph.Graph]
	facts     fact.Store
	actions   ActionRunner
	recorder  Recorder
	persister fact.Persister
	chains    ChainTokenGenerator
	clock     *Clock
	logger    *slog.Logger
	tracer    trace.Tracer

	tickInterval time.Duration
	historySize  int
	maxSteps     int

	actors sync.Map // player -> *Interaction

	// ctx bounds every actor goroutine; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	tickMu   sync.Mutex
	tickStop context.CancelFunc
	tickDone chan struct{}
}

// NewRegistry creates a Registry over g and facts.
// Options configure collaborators and limits (see RegistryOption).
func NewRegistry(g *graph.Graph, facts fact.Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		facts:        facts,
		chains:       UUIDv7Generator{},
		clock:        NewClock(),
		logger:       slog.Default(),
		tickInterval: DefaultTickInterval,
		historySize:  DefaultHistorySize,
		maxSteps:     DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	if r.facts == nil {
		r.facts = fact.NewMemory()
	}
	r.graph.Store(g)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Graph returns the live entry graph.
func (r *Registry) Graph() *graph.Graph {
	return r.graph.Load()
}

// SetGraph swaps in a new entry graph. Inputs already being processed
// finish against the graph they started with; open dialogue positions
// keep their held trigger ids and resolve them against the new graph.
func (r *Registry) SetGraph(g *graph.Graph) {
	r.graph.Store(g)
	r.logger.Info("entry graph replaced", "entries", g.Len(), "hash", g.Hash())
}

// Facts returns the fact store.
func (r *Registry) Facts() fact.Store {
	return r.facts
}

// interaction returns the player's Interaction, creating it on first
// touch. Concurrent first touches for the same player yield one actor;
// losing candidates are discarded without ever being started. If the
// player is still being disconnected, it waits for that to finish and
// returns nil if ctx ends first.
func (r *Registry) interaction(ctx context.Context, player string) *Interaction {
	for {
		v, ok := r.actors.Load(player)
		if !ok {
			var loaded bool
			v, loaded = r.actors.LoadOrStore(player, newInteraction(r, player))
			if !loaded {
				it := v.(*Interaction)
				r.restoreFacts(ctx, it)
				go it.run(r.ctx)
				r.logger.Debug("interaction created", "player", player)
				return it
			}
		}

		it := v.(*Interaction)
		if !it.retiring.Load() {
			return it
		}
		select {
		case <-it.retired:
		case <-ctx.Done():
			return nil
		}
	}
}

// restoreFacts seeds a new player's facts from the persister. A failed
// load is remembered so Disconnect does not overwrite the saved set.
func (r *Registry) restoreFacts(ctx context.Context, it *Interaction) {
	defer close(it.ready)
	if r.persister == nil {
		return
	}
	values, err := r.persister.LoadFacts(ctx, it.player)
	if err != nil {
		it.loadFailed.Store(true)
		r.logger.Warn("failed to load facts", "player", it.player, "error", err)
		return
	}
	r.facts.Seed(it.player, values)
}

// dispatch routes an input to the player's Interaction.
// Returns false if the Interaction closed before accepting it.
func (r *Registry) dispatch(ctx context.Context, it *Interaction, in input) bool {
	if it == nil {
		return false
	}
	// The caller's deadline must not cut the input short, but its trace
	// context should carry over.
	in.ctx = context.WithoutCancel(ctx)
	if !it.post(in) {
		r.logger.Debug("input dropped: interaction closed", "player", it.player, "input", in.kind.String())
		return false
	}
	return true
}

// StartDialogueWithOrTriggerEvent starts a fresh chain from initial, or,
// if the player is already in dialogue, processes only continueTrigger
// (when non-empty). Used for interactions that should not start a second
// dialogue on top of an open one.
func (r *Registry) StartDialogueWithOrTriggerEvent(ctx context.Context, player string, initial []string, continueTrigger string) bool {
	return r.dispatch(ctx, r.interaction(ctx, player), input{
		kind:     inputStartOrContinue,
		triggers: append([]string(nil), initial...),
		cont:     continueTrigger,
	})
}

// TriggerActions processes triggers regardless of dialogue state.
func (r *Registry) TriggerActions(ctx context.Context, player string, triggers ...string) bool {
	return r.dispatch(ctx, r.interaction(ctx, player), input{
		kind:     inputTriggerActions,
		triggers: append([]string(nil), triggers...),
	})
}

// TriggerEvent is TriggerActions for an Event.
func (r *Registry) TriggerEvent(ctx context.Context, ev ir.Event) bool {
	return r.TriggerActions(ctx, ev.Player, ev.Triggers...)
}

// PreprocessCommand is the host hook for a raw player command. Commands
// pre-empt dialogue, so the player's open chain is ended. Players with no
// Interaction have nothing to end.
func (r *Registry) PreprocessCommand(ctx context.Context, player, command string) bool {
	v, ok := r.actors.Load(player)
	if !ok {
		return false
	}
	r.logger.Debug("command pre-empts dialogue", "player", player, "command", command)
	return r.dispatch(ctx, v.(*Interaction), input{
		kind:     inputTriggerActions,
		triggers: []string{ir.TriggerDialogueEnd},
	})
}

// RecordChat appends a chat message to the player's history.
func (r *Registry) RecordChat(ctx context.Context, player, text string) bool {
	return r.dispatch(ctx, r.interaction(ctx, player), input{kind: inputChat, text: text})
}

// End closes the player's open chain, if any.
func (r *Registry) End(ctx context.Context, player string) bool {
	v, ok := r.actors.Load(player)
	if !ok {
		return false
	}
	return r.dispatch(ctx, v.(*Interaction), input{kind: inputEnd})
}

// ErrFactsNotLoaded is returned by Disconnect when the player's saved
// facts could not be loaded at first touch. The session's facts are
// dropped rather than written over the saved set.
var ErrFactsNotLoaded = errors.New("facts were never loaded")

// Disconnect removes the player's Interaction: the input in progress is
// cancelled, its chain is ended, its pending inputs dropped, its history
// cleared and no further ticks reach it. The player's facts are saved
// (when a persister is configured) and cleared. Returns once all of that
// is done; a concurrent Disconnect of the same player waits for the first.
// Disconnecting an unknown or already disconnected player is a no-op.
func (r *Registry) Disconnect(ctx context.Context, player string) error {
	v, ok := r.actors.Load(player)
	if !ok {
		return nil
	}
	it := v.(*Interaction)

	select {
	case <-it.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if !it.retiring.CompareAndSwap(false, true) {
		select {
		case <-it.retired:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer func() {
		r.actors.CompareAndDelete(player, it)
		close(it.retired)
		r.logger.Debug("interaction removed", "player", player)
	}()

	it.shutdown()

	var err error
	switch {
	case r.persister == nil:
	case it.loadFailed.Load():
		err = fmt.Errorf("save facts for %s: %w", player, ErrFactsNotLoaded)
	default:
		if saveErr := r.persister.SaveFacts(ctx, player, r.facts.Snapshot(player)); saveErr != nil {
			err = fmt.Errorf("save facts for %s: %w", player, saveErr)
		}
	}
	r.facts.Clear(player)
	return err
}

// Sync returns once every input queued for player before the call has
// been processed. Returns immediately for unknown players.
func (r *Registry) Sync(ctx context.Context, player string) error {
	v, ok := r.actors.Load(player)
	if !ok {
		return nil
	}
	done := make(chan struct{})
	if !v.(*Interaction).post(input{kind: inputSync, done: done}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SyncAll is Sync for every live player.
func (r *Registry) SyncAll(ctx context.Context) error {
	for _, p := range r.Players() {
		if err := r.Sync(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Tick posts one Tick to every live Interaction and returns how many
// were delivered. Interactions that still have a Tick pending are
// skipped.
func (r *Registry) Tick() int {
	delivered := 0
	r.actors.Range(func(_, v any) bool {
		if v.(*Interaction).postTick() {
			delivered++
		}
		return true
	})
	return delivered
}

// Start launches the tick driver. Calling Start while the driver runs is
// a no-op. The driver stops when ctx is cancelled or Shutdown is called.
func (r *Registry) Start(ctx context.Context) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	if r.tickStop != nil {
		return
	}

	tickCtx, cancel := context.WithCancel(ctx)
	r.tickStop = cancel
	r.tickDone = make(chan struct{})
	go r.tickLoop(tickCtx, r.tickDone)
}

func (r *Registry) tickLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	r.logger.Info("tick driver starting", "interval", r.tickInterval)
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("tick driver stopping")
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Shutdown stops the tick driver and waits for it to exit. The player map
// and every Interaction are left as they are.
func (r *Registry) Shutdown() {
	r.tickMu.Lock()
	stop, done := r.tickStop, r.tickDone
	r.tickStop, r.tickDone = nil, nil
	r.tickMu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

// Close stops the tick driver and disconnects every player. Errors from
// saving facts are joined.
func (r *Registry) Close(ctx context.Context) error {
	r.Shutdown()

	var errs []error
	for _, p := range r.Players() {
		if err := r.Disconnect(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	r.cancel()
	return errors.Join(errs...)
}

// Lookup returns the player's Interaction without creating one.
func (r *Registry) Lookup(player string) (*Interaction, bool) {
	v, ok := r.actors.Load(player)
	if !ok {
		return nil, false
	}
	return v.(*Interaction), true
}

// State returns the player's dialogue state; unknown players are Idle.
func (r *Registry) State(player string) State {
	it, ok := r.Lookup(player)
	if !ok {
		return Idle
	}
	return it.State()
}

// ChatHistory returns the player's chat history, or nil for unknown
// players.
func (r *Registry) ChatHistory(player string) []string {
	it, ok := r.Lookup(player)
	if !ok {
		return nil
	}
	return it.ChatHistory()
}

// Len returns the number of live Interactions.
func (r *Registry) Len() int {
	n := 0
	r.actors.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Players returns the players with a live Interaction, sorted.
func (r *Registry) Players() []string {
	var out []string
	r.actors.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}
