package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahdg6/TypeWriter/internal/engine"
	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

func TestRegistryPersistsThroughStore(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := graph.MustNew(ir.Entry{
		ID:        "kill",
		Name:      "Kill counter",
		Kind:      ir.KindTriggerable,
		Modifiers: []ir.Modifier{{Fact: "kills", Operator: ir.Add, Value: 1}},
	})
	newRegistry := func() (*engine.Registry, *fact.Memory) {
		facts := fact.NewMemory()
		seq, err := s.MaxSeq(ctx)
		require.NoError(t, err)
		return engine.NewRegistry(g, facts,
			engine.WithPersister(s),
			engine.WithRecorder(s),
			engine.WithClock(engine.NewClockAt(seq)),
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		), facts
	}

	// First session.
	reg, _ := newRegistry()
	reg.TriggerActions(ctx, "p1", "kill", "kill")
	require.NoError(t, reg.Sync(ctx, "p1"))
	require.NoError(t, reg.Close(ctx))

	saved, err := s.LoadFacts(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"kills": 2}, saved)

	// Second session picks up where the first left off.
	reg, facts := newRegistry()
	defer reg.Close(ctx)
	reg.TriggerActions(ctx, "p1", "kill")
	require.NoError(t, reg.Sync(ctx, "p1"))
	assert.Equal(t, 3, facts.Get("p1", "kills"))

	acts, err := s.ReadActivations(ctx, ActivationFilter{Player: "p1"})
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{acts[0].Seq, acts[1].Seq, acts[2].Seq})
	assert.Equal(t, "Kill counter", acts[0].EntryName)
	assert.Equal(t, engine.InputActions, acts[0].Input)
}
