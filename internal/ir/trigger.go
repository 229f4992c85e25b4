package ir

import "strings"

// SystemPrefix marks trigger ids handled by the interaction itself rather
// than resolved through the entry graph.
const SystemPrefix = "system."

// Reserved system triggers.
const (
	// TriggerDialogueEnd closes any open dialogue chain. Fired when the
	// player issues a command, since commands pre-empt dialogue.
	TriggerDialogueEnd = "system.dialogue.end"

	// TriggerDialogueNext forwards the held triggers of the current
	// dialogue line.
	TriggerDialogueNext = "system.dialogue.next"
)

// IsSystemTrigger reports whether id is in the reserved namespace.
func IsSystemTrigger(id string) bool {
	return strings.HasPrefix(id, SystemPrefix)
}

// Event is one externally-arriving request to fire triggers for a player.
type Event struct {
	Player   string
	Triggers []string
}

// NewEvent builds an event for player firing triggers in order.
func NewEvent(player string, triggers ...string) Event {
	return Event{Player: player, Triggers: triggers}
}

// Activation records one entry activation.
//
// Seq comes from the engine's logical clock; Chain is the token of the
// dialogue chain that was open (or opened) when the entry activated.
type Activation struct {
	Seq       int64  `json:"seq" yaml:"seq"`
	Player    string `json:"player" yaml:"player"`
	EntryID   string `json:"entry_id" yaml:"entry_id"`
	EntryName string `json:"entry_name" yaml:"entry_name"`
	Chain     string `json:"chain,omitempty" yaml:"chain,omitempty"`
	Input     string `json:"input" yaml:"input"`
}
