// Package testutil holds entry builders and quiet collaborators shared by
// package tests outside the engine.
package testutil

import (
	"io"
	"log/slog"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Trigger builds an unconditional forwarding entry.
func Trigger(id string, triggers ...string) ir.Entry {
	return ir.Entry{ID: id, Kind: ir.KindTrigger, Triggers: triggers}
}

// Dialogue builds a dialogue line spoken by speaker. A zero duration waits
// for the player to continue.
func Dialogue(id, speaker, text string, duration int, triggers ...string) ir.Entry {
	return ir.Entry{
		ID:       id,
		Kind:     ir.KindDialogue,
		Triggers: triggers,
		Dialogue: &ir.DialogueSpec{Speaker: speaker, Text: text, Duration: duration},
	}
}

// Say builds an action entry that presents text with the say handler.
func Say(id, text string, triggers ...string) ir.Entry {
	return ir.Entry{
		ID:       id,
		Kind:     ir.KindAction,
		Triggers: triggers,
		Action:   &ir.ActionSpec{Kind: "say", Params: map[string]any{"text": text}},
	}
}

// When adds criteria to e.
func When(e ir.Entry, criteria ...ir.Criteria) ir.Entry {
	e.Criteria = append(e.Criteria, criteria...)
	return e
}

// Then adds modifiers to e.
func Then(e ir.Entry, modifiers ...ir.Modifier) ir.Entry {
	e.Modifiers = append(e.Modifiers, modifiers...)
	return e
}
