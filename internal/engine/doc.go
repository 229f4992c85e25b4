// Package engine implements the per-player interaction runtime.
//
// ARCHITECTURE:
//
// One Actor Per Player:
// Every player that has been referenced owns an Interaction. An
// Interaction has a FIFO mailbox drained by a single goroutine, and all of
// its mutable state (dialogue state, chain position, chat history) is
// touched only while one input is being processed. Inputs for the same
// player are therefore serialized, never interleaved; inputs for
// different players run in parallel and share nothing but the fact store
// (which locks per player) and the read-only entry graph.
//
// Input Processing Flow:
//  1. A host signal (chat, command, interact, disconnect) reaches the
//     Registry on an arbitrary goroutine.
//  2. The Registry finds or creates the player's Interaction
//     (sync.Map LoadOrStore, so concurrent first touches yield one actor).
//  3. The input is enqueued and the caller returns immediately.
//  4. The actor goroutine dequeues and processes it to completion:
//     triggers are resolved against the graph, criteria gate activation,
//     modifiers write facts, actions run, activations are recorded, and
//     downstream triggers are forwarded in declared order.
//
// Ticks:
// A single ticker goroutine posts a Tick to every live Interaction on a
// fixed cadence (50ms by default). At most one Tick is pending per actor;
// a slow actor misses ticks instead of accumulating them, and never blocks
// the ticker. Timed dialogue waits are counted in ticks and resume on a
// later Tick rather than sleeping.
//
// Failure Isolation:
// Action errors and panics are logged and swallowed; the chain continues
// as if the action had succeeded. A per-input step quota aborts runaway
// fan-out from cyclic content without affecting the actor's later inputs.
// Dangling trigger references resolve to nothing.
//
// Lifecycle:
// NewRegistry builds an explicitly owned instance; Start launches the tick
// driver and Shutdown stops it without touching the map. Disconnect
// removes a player's actor synchronously and idempotently. Close tears
// every actor down at process exit.
package engine
