package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

// DefaultTickInterval is the tick cadence: one game tick.
const DefaultTickInterval = 50 * time.Millisecond

// ActionRunner performs the effect of an activated action or dialogue
// entry. It is called exactly once per activation, after criteria pass and
// modifiers apply, before downstream forwarding. Errors and panics are
// logged and otherwise ignored.
//
// Implementations must not call back into the Registry for the same player
// and wait on the result; the player's actor is busy running the action.
type ActionRunner interface {
	Execute(ctx context.Context, player string, entry ir.Entry) error
}

// Recorder receives every activation. Implemented by the SQLite store and
// the scenario harness.
type Recorder interface {
	Record(ctx context.Context, act ir.Activation) error
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTickInterval sets the tick cadence.
// Default: 50ms (DefaultTickInterval)
func WithTickInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// WithHistorySize sets how many chat messages each interaction keeps.
// Default: 64 (DefaultHistorySize)
func WithHistorySize(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.historySize = n
		}
	}
}

// WithMaxSteps sets the per-input entry visit quota.
//
// Default: 1000 steps (DefaultMaxSteps)
// Use WithMaxSteps(10) for testing quota enforcement.
func WithMaxSteps(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// WithActionRunner sets the collaborator that executes action and
// dialogue entries. Without one, activations have no effect beyond their
// modifiers.
func WithActionRunner(a ActionRunner) RegistryOption {
	return func(r *Registry) {
		r.actions = a
	}
}

// WithRecorder sets the activation sink.
func WithRecorder(rec Recorder) RegistryOption {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// WithPersister loads a player's facts on first touch and saves them on
// disconnect.
func WithPersister(p fact.Persister) RegistryOption {
	return func(r *Registry) {
		r.persister = p
	}
}

// WithChainTokens sets the chain token generator.
// Default: UUIDv7Generator.
func WithChainTokens(g ChainTokenGenerator) RegistryOption {
	return func(r *Registry) {
		r.chains = g
	}
}

// WithClock sets the activation clock.
func WithClock(c *Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithTracer sets the tracer used for per-input spans.
// Default: the global OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) RegistryOption {
	return func(r *Registry) {
		r.tracer = t
	}
}
