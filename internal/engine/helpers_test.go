package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

// fakeRunner records which entries it executed, in order.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	panics map[string]bool
	hang   map[string]bool // wait for ctx to end

	// block, when set, makes Execute wait on it before returning.
	block   chan struct{}
	started chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{fail: map[string]error{}, panics: map[string]bool{}, hang: map[string]bool{}}
}

func (f *fakeRunner) Execute(ctx context.Context, player string, e ir.Entry) error {
	f.mu.Lock()
	f.calls = append(f.calls, player+":"+e.ID)
	fail, panics, hang, block, started := f.fail[e.ID], f.panics[e.ID], f.hang[e.ID], f.block, f.started
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if panics {
		panic("boom: " + e.ID)
	}
	return fail
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// memRecorder keeps activations in memory.
type memRecorder struct {
	mu   sync.Mutex
	acts []ir.Activation
}

func (m *memRecorder) Record(_ context.Context, act ir.Activation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acts = append(m.acts, act)
	return nil
}

func (m *memRecorder) Activations() []ir.Activation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.Activation(nil), m.acts...)
}

func (m *memRecorder) EntryIDs() []string {
	var ids []string
	for _, a := range m.Activations() {
		ids = append(ids, a.EntryID)
	}
	return ids
}

// memPersister is a fact.Persister backed by a map.
type memPersister struct {
	mu      sync.Mutex
	saved   map[string]map[string]int
	loadErr error
	saveErr error
}

func newMemPersister() *memPersister {
	return &memPersister{saved: map[string]map[string]int{}}
}

func (p *memPersister) LoadFacts(_ context.Context, player string) (map[string]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.saved[player], nil
}

func (p *memPersister) SaveFacts(_ context.Context, player string, values map[string]int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved[player] = values
	return nil
}

// gatedPersister holds SaveFacts until release is closed.
type gatedPersister struct {
	*memPersister
	saving  chan struct{}
	release chan struct{}
}

func newGatedPersister() *gatedPersister {
	return &gatedPersister{
		memPersister: newMemPersister(),
		saving:       make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (p *gatedPersister) SaveFacts(ctx context.Context, player string, values map[string]int) error {
	select {
	case p.saving <- struct{}{}:
	default:
	}
	<-p.release
	return p.memPersister.SaveFacts(ctx, player, values)
}

func (p *memPersister) Saved(player string) map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved[player]
}

var errActionFailed = errors.New("action failed")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv bundles a registry with its collaborators.
type testEnv struct {
	reg    *Registry
	facts  *fact.Memory
	runner *fakeRunner
	rec    *memRecorder
}

func newTestEnv(t *testing.T, entries []ir.Entry, opts ...RegistryOption) *testEnv {
	t.Helper()

	env := &testEnv{
		facts:  fact.NewMemory(),
		runner: newFakeRunner(),
		rec:    &memRecorder{},
	}
	base := []RegistryOption{
		WithActionRunner(env.runner),
		WithRecorder(env.rec),
		WithChainTokens(&SequenceGenerator{Prefix: "chain"}),
		WithLogger(discardLogger()),
	}
	env.reg = NewRegistry(graph.MustNew(entries...), env.facts, append(base, opts...)...)
	t.Cleanup(func() {
		_ = env.reg.Close(context.Background())
	})
	return env
}

// sync waits until everything queued for player has been processed.
func (e *testEnv) sync(t *testing.T, player string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.reg.Sync(ctx, player))
}

// tick delivers one tick to every actor and waits for it to be handled.
func (e *testEnv) tick(t *testing.T) {
	t.Helper()
	e.reg.Tick()
	for _, p := range e.reg.Players() {
		e.sync(t, p)
	}
}

func dialogue(id string, duration int, triggers ...string) ir.Entry {
	return ir.Entry{
		ID:       id,
		Kind:     ir.KindDialogue,
		Dialogue: &ir.DialogueSpec{Speaker: "guide", Text: id, Duration: duration},
		Triggers: triggers,
	}
}

func action(id string, triggers ...string) ir.Entry {
	return ir.Entry{
		ID:       id,
		Kind:     ir.KindAction,
		Action:   &ir.ActionSpec{Kind: "test"},
		Triggers: triggers,
	}
}

func gated(id string, c ir.Criteria, triggers ...string) ir.Entry {
	return ir.Entry{
		ID:       id,
		Kind:     ir.KindTriggerable,
		Criteria: []ir.Criteria{c},
		Triggers: triggers,
	}
}
