package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

var ctx = context.Background()

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "in_dialogue", InDialogue.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestInteraction_ModifierAppliedAndDownstreamFired(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{
			ID:        "bonus",
			Kind:      ir.KindTriggerable,
			Criteria:  []ir.Criteria{{Fact: "level", Operator: ir.GreaterThanOrEqual, Value: 1}},
			Modifiers: []ir.Modifier{{Fact: "score", Operator: ir.Add, Value: 5}},
			Triggers:  []string{"reward"},
		},
		action("reward"),
	})
	env.facts.Seed("p1", map[string]int{"level": 1, "score": 10})

	require.True(t, env.reg.TriggerActions(ctx, "p1", "bonus"))
	env.sync(t, "p1")

	assert.Equal(t, 15, env.facts.Get("p1", "score"))
	assert.Equal(t, []string{"p1:reward"}, env.runner.Calls())
	assert.Equal(t, []string{"bonus", "reward"}, env.rec.EntryIDs())
}

func TestInteraction_StartWhileIdleOpensDialogue(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")

	it, ok := env.reg.Lookup("p1")
	require.True(t, ok)
	assert.Equal(t, InDialogue, it.State())
	assert.Equal(t, "chain-1", it.Chain())

	id, remaining, ok := it.Position()
	require.True(t, ok)
	assert.Equal(t, "hello", id)
	assert.Equal(t, 0, remaining)
}

func TestInteraction_StartWithoutActivationStaysIdle(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		gated("locked", ir.Criteria{Fact: "met", Operator: ir.Equals, Value: 1}, "hello"),
		dialogue("hello", 0),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"locked"}, "")
	env.sync(t, "p1")

	assert.Equal(t, Idle, env.reg.State("p1"))
	it, _ := env.reg.Lookup("p1")
	assert.Empty(t, it.Chain())
	assert.Empty(t, env.rec.Activations())
}

func TestInteraction_StaticAndTriggerOnlyDoNotOpenDialogue(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "route", Kind: ir.KindTrigger, Triggers: []string{"data"}},
		{ID: "data", Kind: ir.KindStatic},
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"route"}, "")
	env.sync(t, "p1")

	assert.Equal(t, Idle, env.reg.State("p1"))
	assert.Empty(t, env.rec.Activations())
}

func TestInteraction_ContinueDoesNotReprocessInitial(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0),
		action("next_line"),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "next_line")
	env.sync(t, "p1")

	assert.Equal(t, []string{"greet", "hello", "next_line"}, env.rec.EntryIDs())
	assert.Equal(t, []string{"p1:hello", "p1:next_line"}, env.runner.Calls())
	assert.Equal(t, InDialogue, env.reg.State("p1"))

	acts := env.rec.Activations()
	assert.Equal(t, InputStart, acts[0].Input)
	assert.Equal(t, InputContinue, acts[2].Input)
	assert.Equal(t, acts[0].Chain, acts[2].Chain, "continue stays on the open chain")
}

func TestInteraction_ContinueWithoutTriggerDoesNothing(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")

	assert.Equal(t, []string{"greet", "hello"}, env.rec.EntryIDs())
}

func TestInteraction_ForwardingOrderAndSiblingIndependence(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "root", Kind: ir.KindTrigger, Triggers: []string{"a", "b", "c"}},
		gated("a", ir.Criteria{Fact: "never", Operator: ir.Equals, Value: 1}, "x"),
		action("x"),
		action("b", "b1"),
		action("b1"),
		action("c"),
	})

	env.reg.TriggerActions(ctx, "p1", "root")
	env.sync(t, "p1")

	assert.Equal(t, []string{"p1:b", "p1:b1", "p1:c"}, env.runner.Calls())
}

func TestInteraction_ModifiersAllOrNothing(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{
			ID:   "reward",
			Kind: ir.KindTriggerable,
			Criteria: []ir.Criteria{
				{Fact: "x", Operator: ir.Equals, Value: 1},
				{Fact: "y", Operator: ir.Equals, Value: 1},
			},
			Modifiers: []ir.Modifier{
				{Fact: "z", Operator: ir.Set, Value: 7},
				{Fact: "w", Operator: ir.Add, Value: 1},
			},
		},
	})
	env.facts.Seed("p1", map[string]int{"x": 1})

	env.reg.TriggerActions(ctx, "p1", "reward")
	env.sync(t, "p1")
	assert.Equal(t, 0, env.facts.Get("p1", "z"))
	assert.Equal(t, 0, env.facts.Get("p1", "w"))

	env.facts.Apply("p1", "y", ir.Set, 1)
	env.reg.TriggerActions(ctx, "p1", "reward")
	env.sync(t, "p1")
	assert.Equal(t, 7, env.facts.Get("p1", "z"))
	assert.Equal(t, 1, env.facts.Get("p1", "w"))
}

func TestInteraction_EarlierActivationGatesLaterOne(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{
			ID:        "once",
			Kind:      ir.KindTriggerable,
			Criteria:  []ir.Criteria{{Fact: "count", Operator: ir.Equals, Value: 0}},
			Modifiers: []ir.Modifier{{Fact: "count", Operator: ir.Add, Value: 1}},
		},
	})

	env.reg.TriggerActions(ctx, "p1", "once", "once")
	env.sync(t, "p1")

	assert.Equal(t, 1, env.facts.Get("p1", "count"))
	assert.Equal(t, []string{"once"}, env.rec.EntryIDs())
}

func TestInteraction_ActionFailureIsIsolated(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"broken", "exploding", "after"}},
		action("broken"),
		action("exploding"),
		action("after"),
	})
	env.runner.fail["broken"] = errActionFailed
	env.runner.panics["exploding"] = true

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")

	assert.Equal(t, []string{"p1:broken", "p1:exploding", "p1:after"}, env.runner.Calls())
	assert.Equal(t, InDialogue, env.reg.State("p1"))
	assert.Equal(t, []string{"greet", "broken", "exploding", "after"}, env.rec.EntryIDs())

	// The actor survives the panic.
	env.reg.TriggerActions(ctx, "p1", "after")
	env.sync(t, "p1")
	assert.Len(t, env.runner.Calls(), 4)
}

func TestInteraction_DialogueNextForwardsHeldTriggers(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0, "bye"),
		action("bye"),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")
	assert.Equal(t, []string{"p1:hello"}, env.runner.Calls(), "downstream of a dialogue line is held")

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, ir.TriggerDialogueNext)
	env.sync(t, "p1")
	assert.Equal(t, []string{"p1:hello", "p1:bye"}, env.runner.Calls())

	it, _ := env.reg.Lookup("p1")
	_, _, open := it.Position()
	assert.False(t, open)
	assert.Equal(t, InDialogue, it.State(), "chain concludes on the next tick")

	env.tick(t)
	assert.Equal(t, Idle, it.State())
	assert.Empty(t, it.Chain())
}

func TestInteraction_DialogueTimesOutAfterDuration(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 2, "bye"),
		action("bye"),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")
	it, _ := env.reg.Lookup("p1")

	env.tick(t)
	_, remaining, open := it.Position()
	require.True(t, open)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, []string{"p1:hello"}, env.runner.Calls())

	env.tick(t)
	assert.Equal(t, []string{"p1:hello", "p1:bye"}, env.runner.Calls())
	assert.Equal(t, Idle, it.State())

	acts := env.rec.Activations()
	require.Len(t, acts, 3)
	assert.Equal(t, InputTick, acts[2].Input)
	assert.Equal(t, "chain-1", acts[2].Chain)
}

func TestInteraction_ZeroDurationWaitsForNext(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0, "bye"),
		action("bye"),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")
	for range 5 {
		env.tick(t)
	}

	it, _ := env.reg.Lookup("p1")
	id, _, open := it.Position()
	require.True(t, open)
	assert.Equal(t, "hello", id)
	assert.Equal(t, InDialogue, it.State())
}

func TestInteraction_HeldTriggersFixedAtActivation(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{dialogue("hello", 0, "first"), action("first"), action("second")})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"hello"}, "")
	env.sync(t, "p1")

	env.reg.SetGraph(graph.MustNew(dialogue("hello", 0, "second"), action("first"), action("second")))
	env.reg.TriggerActions(ctx, "p1", ir.TriggerDialogueNext)
	env.sync(t, "p1")

	assert.Equal(t, []string{"p1:hello", "p1:first"}, env.runner.Calls())
}

func TestInteraction_NewerLineReplacesOlder(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"line1", "line2"}},
		dialogue("line1", 0, "a"),
		dialogue("line2", 0, "b"),
		action("a"),
		action("b"),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.reg.TriggerActions(ctx, "p1", ir.TriggerDialogueNext)
	env.sync(t, "p1")

	assert.Equal(t, []string{"p1:line1", "p1:line2", "p1:b"}, env.runner.Calls())
}

func TestInteraction_ChainConcludesOnTickWithoutPosition(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable},
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")
	assert.Equal(t, InDialogue, env.reg.State("p1"))

	env.tick(t)
	assert.Equal(t, Idle, env.reg.State("p1"))
}

func TestInteraction_EndIsIdempotent(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0),
	})

	assert.False(t, env.reg.End(ctx, "p1"), "no interaction to end")
	assert.Equal(t, 0, env.reg.Len())

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.reg.End(ctx, "p1")
	env.sync(t, "p1")

	it, _ := env.reg.Lookup("p1")
	assert.Equal(t, Idle, it.State())
	assert.Empty(t, it.Chain())
	_, _, open := it.Position()
	assert.False(t, open)

	env.reg.End(ctx, "p1")
	env.sync(t, "p1")
	assert.Equal(t, Idle, it.State())
	assert.Empty(t, it.Chain())
}

func TestInteraction_DialogueEndTriggerClosesChain(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0, "bye"),
		action("bye"),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.reg.TriggerActions(ctx, "p1", ir.TriggerDialogueEnd, ir.TriggerDialogueNext)
	env.sync(t, "p1")

	assert.Equal(t, Idle, env.reg.State("p1"))
	assert.Equal(t, []string{"p1:hello"}, env.runner.Calls(), "held triggers are dropped on end")
}

func TestInteraction_ChainTokens(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "greet", Kind: ir.KindTriggerable, Triggers: []string{"hello"}},
		dialogue("hello", 0),
	})

	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.reg.End(ctx, "p1")
	env.reg.StartDialogueWithOrTriggerEvent(ctx, "p1", []string{"greet"}, "")
	env.sync(t, "p1")

	var chains []string
	for _, a := range env.rec.Activations() {
		chains = append(chains, a.Chain)
	}
	assert.Equal(t, []string{"chain-1", "chain-1", "chain-2", "chain-2"}, chains)
}

func TestInteraction_ActivationSeqIncreases(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "root", Kind: ir.KindTrigger, Triggers: []string{"a", "b", "c"}},
		action("a"),
		action("b"),
		action("c"),
	})

	env.reg.TriggerActions(ctx, "p1", "root")
	env.reg.TriggerActions(ctx, "p2", "root")
	env.sync(t, "p1")
	env.sync(t, "p2")

	acts := env.rec.Activations()
	require.Len(t, acts, 6)
	seen := map[int64]bool{}
	for _, a := range acts {
		assert.False(t, seen[a.Seq], "seq %d reused", a.Seq)
		seen[a.Seq] = true
		assert.Equal(t, InputActions, a.Input)
	}
}

func TestInteraction_DanglingAndUnknownSystemTriggersIgnored(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "root", Kind: ir.KindTrigger, Triggers: []string{"missing", "b"}},
		action("b"),
	})

	env.reg.TriggerActions(ctx, "p1", "root", "system.unknown", "nowhere")
	env.sync(t, "p1")

	assert.Equal(t, []string{"p1:b"}, env.runner.Calls())
}

func TestInteraction_QuotaAbortsInputOnly(t *testing.T) {
	env := newTestEnv(t, []ir.Entry{
		{ID: "loop", Kind: ir.KindTrigger, Triggers: []string{"loop"}},
		action("after"),
	}, WithMaxSteps(10))

	env.reg.TriggerActions(ctx, "p1", "loop", "after")
	env.sync(t, "p1")
	assert.Empty(t, env.runner.Calls(), "rest of the input is dropped")

	env.reg.TriggerActions(ctx, "p1", "after")
	env.sync(t, "p1")
	assert.Equal(t, []string{"p1:after"}, env.runner.Calls())
}

func TestInteraction_ChatHistory(t *testing.T) {
	env := newTestEnv(t, nil, WithHistorySize(2))

	for _, msg := range []string{"one", "two", "three"} {
		env.reg.RecordChat(ctx, "p1", msg)
	}
	env.sync(t, "p1")

	assert.Equal(t, []string{"two", "three"}, env.reg.ChatHistory("p1"))
	assert.Nil(t, env.reg.ChatHistory("nobody"))
}
