package ir

import "fmt"

// EntryKind tags which facets an entry carries.
type EntryKind string

const (
	// KindStatic entries carry data only and never trigger.
	KindStatic EntryKind = "static"
	// KindTrigger entries forward activation unconditionally.
	KindTrigger EntryKind = "trigger"
	// KindTriggerable entries are gated by criteria and apply modifiers.
	KindTriggerable EntryKind = "triggerable"
	// KindAction entries are triggerable and run an action when activated.
	KindAction EntryKind = "action"
	// KindDialogue entries are triggerable dialogue lines that hold their
	// downstream triggers until the player continues or the line times out.
	KindDialogue EntryKind = "dialogue"
)

// Entry is one node of the authored content graph.
//
// Facets are flags on a single record: HasForwarding reports the Trigger
// facet, HasCriteriaGate the Triggerable facet. Dispatch on those, not on
// the concrete kind.
type Entry struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	Kind      EntryKind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Triggers  []string      `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Criteria  []Criteria    `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	Modifiers []Modifier    `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Action    *ActionSpec   `json:"action,omitempty" yaml:"action,omitempty"`
	Dialogue  *DialogueSpec `json:"dialogue,omitempty" yaml:"dialogue,omitempty"`
}

// ActionSpec names the concrete effect an action entry performs.
// Params are interpreted by the handler registered for Kind.
type ActionSpec struct {
	Kind   string         `json:"kind" yaml:"kind"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// DialogueSpec is a single line of dialogue.
// Duration is measured in ticks; zero waits for the player to continue.
type DialogueSpec struct {
	Speaker  string `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text     string `json:"text" yaml:"text"`
	Duration int    `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ResolvedKind returns the entry's kind, inferring it from the populated
// facets when Kind is empty.
func (e Entry) ResolvedKind() EntryKind {
	if e.Kind != "" {
		return e.Kind
	}
	switch {
	case e.Dialogue != nil:
		return KindDialogue
	case e.Action != nil:
		return KindAction
	case len(e.Criteria) > 0 || len(e.Modifiers) > 0:
		return KindTriggerable
	case len(e.Triggers) > 0:
		return KindTrigger
	default:
		return KindStatic
	}
}

// HasForwarding reports whether the entry forwards activation to its
// Triggers (the Trigger facet).
func (e Entry) HasForwarding() bool {
	return e.ResolvedKind() != KindStatic
}

// HasCriteriaGate reports whether activation is gated by Criteria and
// followed by Modifiers (the Triggerable facet).
func (e Entry) HasCriteriaGate() bool {
	switch e.ResolvedKind() {
	case KindTriggerable, KindAction, KindDialogue:
		return true
	default:
		return false
	}
}

// DisplayName returns Name, falling back to ID.
func (e Entry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Check reports structural problems with a single entry that make it
// unusable regardless of the rest of the graph.
func (e Entry) Check() error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if IsSystemTrigger(e.ID) {
		return fmt.Errorf("entry %s: id uses the reserved %q namespace", e.ID, SystemPrefix)
	}
	switch e.ResolvedKind() {
	case KindStatic, KindTrigger, KindTriggerable:
	case KindAction:
		if e.Action == nil || e.Action.Kind == "" {
			return fmt.Errorf("entry %s: action entries need action.kind", e.ID)
		}
	case KindDialogue:
		if e.Dialogue == nil {
			return fmt.Errorf("entry %s: dialogue entries need a dialogue block", e.ID)
		}
		if e.Dialogue.Duration < 0 {
			return fmt.Errorf("entry %s: dialogue duration must be >= 0", e.ID)
		}
	default:
		return fmt.Errorf("entry %s: unknown kind %q", e.ID, e.Kind)
	}
	if !e.HasCriteriaGate() && (len(e.Criteria) > 0 || len(e.Modifiers) > 0) {
		return fmt.Errorf("entry %s: %s entries cannot carry criteria or modifiers", e.ID, e.ResolvedKind())
	}
	for i, c := range e.Criteria {
		if c.Fact == "" {
			return fmt.Errorf("entry %s: criteria[%d]: fact is required", e.ID, i)
		}
		if !c.Operator.Valid() {
			return fmt.Errorf("entry %s: criteria[%d]: invalid operator", e.ID, i)
		}
	}
	for i, m := range e.Modifiers {
		if m.Fact == "" {
			return fmt.Errorf("entry %s: modifiers[%d]: fact is required", e.ID, i)
		}
		if !m.Operator.Valid() {
			return fmt.Errorf("entry %s: modifiers[%d]: invalid operator", e.ID, i)
		}
	}
	return nil
}

// Criteria is a read-only comparison gate on a fact.
type Criteria struct {
	Fact     string           `json:"fact" yaml:"fact"`
	Operator CriteriaOperator `json:"operator" yaml:"operator"`
	Value    int              `json:"value" yaml:"value"`
}

// Modifier is a write to a fact.
type Modifier struct {
	Fact     string           `json:"fact" yaml:"fact"`
	Operator ModifierOperator `json:"operator" yaml:"operator"`
	Value    int              `json:"value" yaml:"value"`
}
