package harness

import (
	"github.com/ahdg6/TypeWriter/internal/action"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Trace event types.
const (
	EventActivation = "activation"
	EventMessage    = "message"
)

// TraceEvent is either an entry activation or a message presented to a
// player. Messages carry no seq; their position in the trace orders them.
type TraceEvent struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	Player  string `json:"player"`
	Entry   string `json:"entry,omitempty"`
	Chain   string `json:"chain,omitempty"`
	Input   string `json:"input,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains activations and messages in processing order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Facts is every player's fact snapshot at the end of the run, before
	// players were disconnected.
	Facts map[string]map[string]int `json:"facts,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Facts:  make(map[string]map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddActivation appends an activation to the trace.
func (r *Result) AddActivation(act ir.Activation) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventActivation,
		Seq:    act.Seq,
		Player: act.Player,
		Entry:  act.EntryID,
		Chain:  act.Chain,
		Input:  act.Input,
	})
}

// AddMessage appends a presented message to the trace.
func (r *Result) AddMessage(player string, msg action.Message) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventMessage,
		Player:  player,
		Entry:   msg.EntryID,
		Kind:    msg.Kind,
		Speaker: msg.Speaker,
		Text:    msg.Text,
	})
}

// Activations returns only the activation events.
func (r *Result) Activations() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Type == EventActivation {
			out = append(out, ev)
		}
	}
	return out
}

// Messages returns the texts presented to player, in order.
func (r *Result) Messages(player string) []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type == EventMessage && ev.Player == player {
			out = append(out, ev.Text)
		}
	}
	return out
}
