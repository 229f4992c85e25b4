package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahdg6/TypeWriter/internal/ir"
	"github.com/ahdg6/TypeWriter/internal/rules"
)

// State is an interaction's dialogue state.
type State int

const (
	// Idle means no chain is open.
	Idle State = iota
	// InDialogue means a chain is open.
	InDialogue
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InDialogue:
		return "in_dialogue"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Activation input labels.
const (
	InputStart    = "start"
	InputContinue = "continue"
	InputActions  = "actions"
	InputTick     = "tick"
)

// position is the open dialogue line. Its downstream triggers are held
// until the player continues or the line times out.
type position struct {
	entryID   string
	held      []string
	remaining int // ticks left; 0 waits for system.dialogue.next
}

// Interaction is one player's actor.
//
// Thread-safety: inputs arrive through the mailbox from any goroutine and
// are processed one at a time by the actor goroutine. The accessors
// (State, ChatHistory, Position, Chain) are safe from any goroutine; they
// wait for the input in progress to finish.
type Interaction struct {
	player      string
	reg         *Registry
	logger      *slog.Logger
	mailbox     *mailbox
	tickPending atomic.Bool
	stopped     chan struct{}

	// Teardown. ready closes once facts are restored; retired closes once
	// Disconnect has saved and cleared them and freed the map slot.
	ready      chan struct{}
	retired    chan struct{}
	retiring   atomic.Bool
	loadFailed atomic.Bool

	// stopping is set before shutdown cancels the input in progress.
	stopping    atomic.Bool
	cancelMu    sync.Mutex
	cancelInput context.CancelFunc

	mu       sync.Mutex // held for the whole of one input
	closed   bool
	state    State
	position *position
	chain    string
	history  *history
}

func newInteraction(reg *Registry, player string) *Interaction {
	return &Interaction{
		player:  player,
		reg:     reg,
		logger:  reg.logger.With("player", player),
		mailbox: newMailbox(),
		stopped: make(chan struct{}),
		ready:   make(chan struct{}),
		retired: make(chan struct{}),
		history: newHistory(reg.historySize),
	}
}

// Player returns the owning player's id.
func (i *Interaction) Player() string {
	return i.player
}

// State returns the current dialogue state.
func (i *Interaction) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Chain returns the token of the open chain, or "" when Idle.
func (i *Interaction) Chain() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.chain
}

// ChatHistory returns a copy of the chat history, oldest first.
func (i *Interaction) ChatHistory() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.history.Messages()
}

// Position returns the open dialogue line and its remaining ticks.
func (i *Interaction) Position() (entryID string, remaining int, ok bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.position == nil {
		return "", 0, false
	}
	return i.position.entryID, i.position.remaining, true
}

// post enqueues an input. Returns false once the interaction is closed.
func (i *Interaction) post(in input) bool {
	return i.mailbox.Enqueue(in)
}

// postTick enqueues a Tick unless one is already pending.
func (i *Interaction) postTick() bool {
	if !i.tickPending.CompareAndSwap(false, true) {
		return false
	}
	if !i.mailbox.Enqueue(input{kind: inputTick}) {
		i.tickPending.Store(false)
		return false
	}
	return true
}

// run drains the mailbox until it is closed or ctx is cancelled.
// Must be called from exactly one goroutine.
func (i *Interaction) run(ctx context.Context) {
	defer close(i.stopped)

	for {
		if in, ok := i.mailbox.TryDequeue(); ok {
			i.handle(ctx, in)
			continue
		}

		select {
		case <-ctx.Done():
			for _, in := range i.mailbox.Close() {
				in.release()
			}
			return

		case <-i.mailbox.Wait():
			// The signal channel closes when the mailbox is closed, which
			// makes this case fire immediately.
			if i.mailbox.Closed() && i.mailbox.Len() == 0 {
				return
			}
		}
	}
}

// pass is the per-input processing state.
type pass struct {
	ctx       context.Context
	input     string
	quota     *QuotaEnforcer
	activated bool
	err       error
}

// handle processes one input to completion.
func (i *Interaction) handle(base context.Context, in input) {
	defer in.release()
	if in.kind == inputTick {
		i.tickPending.Store(false)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}

	ctx := in.ctx
	if ctx == nil {
		ctx = base
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !i.setInputCancel(cancel) {
		return
	}
	defer i.setInputCancel(nil)

	var span trace.Span
	if in.kind != inputTick && in.kind != inputSync {
		ctx, span = i.reg.tracer.Start(ctx, "interaction."+in.kind.String(),
			trace.WithAttributes(
				attribute.String("typewriter.player", i.player),
				attribute.StringSlice("typewriter.triggers", in.triggers),
			))
		defer span.End()
	}

	p := &pass{ctx: ctx, quota: NewQuotaEnforcer(i.reg.maxSteps)}
	before := i.state

	switch in.kind {
	case inputStartOrContinue:
		i.startOrContinue(p, in.triggers, in.cont)
	case inputTriggerActions:
		i.triggerActions(p, in.triggers)
	case inputTick:
		i.tick(p)
	case inputEnd:
		i.end()
	case inputChat:
		i.history.Append(in.text)
	case inputSync:
	}

	if p.err != nil && span != nil {
		span.RecordError(p.err)
		span.SetStatus(codes.Error, p.err.Error())
	}
	if i.state != before {
		i.logger.Debug("interaction state changed",
			"from", before.String(),
			"to", i.state.String(),
			"input", in.kind.String(),
			"chain", i.chain,
		)
	}
}

// setInputCancel publishes the cancel func of the input in progress.
// Returns false when shutdown has begun and the input must not run.
func (i *Interaction) setInputCancel(cancel context.CancelFunc) bool {
	i.cancelMu.Lock()
	defer i.cancelMu.Unlock()
	if cancel != nil && i.stopping.Load() {
		return false
	}
	i.cancelInput = cancel
	return true
}

// startOrContinue continues the open chain with cont, or starts a fresh
// chain from initial when Idle. While InDialogue, initial is never
// reprocessed.
func (i *Interaction) startOrContinue(p *pass, initial []string, cont string) {
	if i.state == InDialogue {
		if cont == "" {
			return
		}
		p.input = InputContinue
		i.process(p, []string{cont})
		i.settle(p, false)
		return
	}

	p.input = InputStart
	i.process(p, initial)
	i.settle(p, true)
}

// triggerActions processes triggers from whatever chain state holds.
func (i *Interaction) triggerActions(p *pass, triggers []string) {
	p.input = InputActions
	i.process(p, triggers)
	i.settle(p, false)
}

// tick counts down the open dialogue line and forwards its held triggers
// when it expires. A chain with nothing left to wait for concludes.
func (i *Interaction) tick(p *pass) {
	p.input = InputTick
	if pos := i.position; pos != nil && pos.remaining > 0 {
		pos.remaining--
		if pos.remaining == 0 {
			i.position = nil
			i.process(p, pos.held)
		}
	}
	if i.state == InDialogue && i.position == nil {
		i.end()
	}
	i.settle(p, false)
}

// settle fixes up state after trigger processing. An open position always
// means InDialogue; opening on activation applies only to fresh starts.
func (i *Interaction) settle(p *pass, openOnActivation bool) {
	if i.position != nil || (openOnActivation && p.activated) {
		i.state = InDialogue
	}
	if i.state == Idle {
		i.chain = ""
	}
}

// end closes the chain. Calling it on an Idle interaction is a no-op.
func (i *Interaction) end() {
	i.state = Idle
	i.position = nil
	i.chain = ""
}

// process visits triggers in order. A quota abort or a cancelled input
// stops the rest.
func (i *Interaction) process(p *pass, ids []string) {
	for _, id := range ids {
		if p.err != nil || p.ctx.Err() != nil {
			return
		}
		i.visit(p, id)
	}
}

// visit resolves one trigger reference.
func (i *Interaction) visit(p *pass, id string) {
	if ir.IsSystemTrigger(id) {
		i.system(p, id)
		return
	}

	g := i.reg.Graph()
	e, ok := g.Lookup(id)
	if !ok {
		i.logger.Debug("dangling trigger ignored", "error", NewUnknownEntryError(i.player, id))
		return
	}
	if !e.HasForwarding() {
		return
	}

	if err := p.quota.Check(i.player); err != nil {
		var se *StepsExceededError
		errors.As(err, &se)
		p.err = NewQuotaError(i.player, i.chain, se)
		i.logger.Warn("input aborted", "input", p.input, "error", p.err)
		return
	}

	if !e.HasCriteriaGate() {
		i.process(p, g.DownstreamOf(id))
		return
	}

	if !rules.Activate(i.reg.facts, i.player, e.Criteria, e.Modifiers) {
		return
	}

	p.activated = true
	if i.chain == "" {
		i.chain = i.reg.chains.Generate()
	}
	i.execute(p, e)
	i.record(p, e)

	downstream := g.DownstreamOf(id)
	if e.ResolvedKind() == ir.KindDialogue {
		i.hold(e, downstream)
		return
	}
	i.process(p, downstream)
}

// system handles reserved triggers.
func (i *Interaction) system(p *pass, id string) {
	switch id {
	case ir.TriggerDialogueEnd:
		i.end()
		p.activated = false
	case ir.TriggerDialogueNext:
		if pos := i.position; pos != nil {
			i.position = nil
			i.process(p, pos.held)
		}
	default:
		i.logger.Debug("unknown system trigger ignored", "trigger", id)
	}
}

// hold opens a chain position at a dialogue entry. A newer line replaces
// an older one still waiting; the older line's held triggers are dropped.
func (i *Interaction) hold(e ir.Entry, held []string) {
	if i.position != nil {
		i.logger.Debug("dialogue line replaced", "previous", i.position.entryID, "entry", e.ID)
	}
	remaining := 0
	if e.Dialogue != nil {
		remaining = e.Dialogue.Duration
	}
	i.position = &position{
		entryID:   e.ID,
		held:      held,
		remaining: remaining,
	}
}

// execute runs the entry's effect, isolating the actor from its failure.
func (i *Interaction) execute(p *pass, e ir.Entry) {
	runner := i.reg.actions
	if runner == nil {
		return
	}
	switch e.ResolvedKind() {
	case ir.KindAction, ir.KindDialogue:
	default:
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			err := NewActionError(i.player, e.ID, i.chain, fmt.Errorf("panic: %v", rec))
			trace.SpanFromContext(p.ctx).RecordError(err)
			i.logger.Error("action panicked", "error", err)
		}
	}()

	if err := runner.Execute(p.ctx, i.player, e); err != nil {
		err = NewActionError(i.player, e.ID, i.chain, err)
		trace.SpanFromContext(p.ctx).RecordError(err)
		i.logger.Warn("action failed", "error", err)
	}
}

// record stamps and emits an activation.
func (i *Interaction) record(p *pass, e ir.Entry) {
	act := ir.Activation{
		Seq:       i.reg.clock.Next(),
		Player:    i.player,
		EntryID:   e.ID,
		EntryName: e.DisplayName(),
		Chain:     i.chain,
		Input:     p.input,
	}
	i.logger.Debug("entry activated",
		"entry", e.ID,
		"seq", act.Seq,
		"chain", act.Chain,
		"input", act.Input,
	)
	if i.reg.recorder == nil {
		return
	}
	if err := i.reg.recorder.Record(p.ctx, act); err != nil {
		i.logger.Warn("failed to record activation", "entry", e.ID, "seq", act.Seq, "error", err)
	}
}

// shutdown closes the interaction: pending inputs are dropped, the input
// in progress is cancelled, the chain is ended and history cleared. Safe
// to call more than once.
func (i *Interaction) shutdown() {
	i.stopping.Store(true)
	for _, in := range i.mailbox.Close() {
		in.release()
	}

	i.cancelMu.Lock()
	if i.cancelInput != nil {
		i.cancelInput()
	}
	i.cancelMu.Unlock()

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.end()
	i.history.Clear()
	i.closed = true
}
