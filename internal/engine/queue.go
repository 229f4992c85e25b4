package engine

import (
	"context"
	"sync"
)

// inputKind distinguishes the inputs an Interaction processes.
type inputKind int

const (
	// inputStartOrContinue starts a fresh chain or continues the open one.
	inputStartOrContinue inputKind = iota + 1
	// inputTriggerActions processes triggers regardless of chain state.
	inputTriggerActions
	// inputTick advances timed waits.
	inputTick
	// inputEnd closes the open chain.
	inputEnd
	// inputChat appends to chat history.
	inputChat
	// inputSync does nothing; its done channel marks a barrier.
	inputSync
)

func (k inputKind) String() string {
	switch k {
	case inputStartOrContinue:
		return "start_or_continue"
	case inputTriggerActions:
		return "trigger_actions"
	case inputTick:
		return "tick"
	case inputEnd:
		return "end"
	case inputChat:
		return "chat"
	case inputSync:
		return "sync"
	default:
		return "unknown"
	}
}

// input is one unit of work for an Interaction.
type input struct {
	kind     inputKind
	triggers []string
	cont     string // continue trigger for inputStartOrContinue
	text     string // chat text
	ctx      context.Context
	done     chan struct{} // closed once processed or dropped; may be nil
}

// release closes the done channel, if any.
func (in input) release() {
	if in.done != nil {
		close(in.done)
	}
}

// mailbox is a thread-safe FIFO of inputs for one Interaction.
//
// The mailbox is unbounded so callers on game threads never block. Ticks
// are coalesced before they reach it (see Interaction.postTick), so a slow
// actor cannot pile up ticks.
//
// The mailbox uses a channel for signaling to enable context-aware waiting
// in the run loop.
type mailbox struct {
	mu     sync.Mutex
	inputs []input
	closed bool
	signal chan struct{} // Signals input availability (buffered, size 1)
}

// newMailbox creates an empty mailbox.
func newMailbox() *mailbox {
	return &mailbox{
		inputs: make([]input, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an input to the back of the mailbox.
// Thread-safe: may be called from any goroutine.
// Returns false if the mailbox is closed.
func (m *mailbox) Enqueue(in input) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.inputs = append(m.inputs, in)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case m.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (input{}, false) if the mailbox is empty.
func (m *mailbox) TryDequeue() (input, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.inputs) == 0 {
		return input{}, false
	}

	in := m.inputs[0]

	// Nil out the slot so the backing array does not retain trigger
	// slices and contexts.
	m.inputs[0] = input{}

	if len(m.inputs) == 1 {
		m.inputs = m.inputs[:0]
	} else {
		m.inputs = m.inputs[1:]
	}

	return in, true
}

// Wait returns a channel that signals when inputs may be available.
// The channel is closed once the mailbox is closed.
func (m *mailbox) Wait() <-chan struct{} {
	return m.signal
}

// Len returns the current mailbox length.
func (m *mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// Closed reports whether Close has been called.
func (m *mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close stops the mailbox accepting inputs and returns whatever was still
// queued. Closing twice returns nil the second time.
func (m *mailbox) Close() []input {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.signal)

	pending := m.inputs
	m.inputs = nil
	return pending
}
