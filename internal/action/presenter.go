package action

import (
	"context"
	"log/slog"
	"sync"
)

// Message kinds.
const (
	MessageSay      = "say"
	MessageDialogue = "dialogue"
)

// Message is text delivered to one player.
type Message struct {
	Kind    string `json:"type"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
	EntryID string `json:"entry_id,omitempty"`
}

// Presenter delivers messages to players. The WebSocket transport is the
// production implementation.
type Presenter interface {
	Present(ctx context.Context, player string, msg Message) error
}

// LogPresenter writes messages to a logger. Used when no transport is
// attached (validate runs, scripted tests).
type LogPresenter struct {
	Logger *slog.Logger
}

// Present implements Presenter.
func (p LogPresenter) Present(ctx context.Context, player string, msg Message) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "present",
		"player", player,
		"kind", msg.Kind,
		"speaker", msg.Speaker,
		"text", msg.Text,
	)
	return nil
}

// Capture records presented messages in memory.
//
// Thread-safety: safe for concurrent use.
type Capture struct {
	mu       sync.Mutex
	messages map[string][]Message
}

// NewCapture creates an empty Capture.
func NewCapture() *Capture {
	return &Capture{messages: make(map[string][]Message)}
}

// Present implements Presenter.
func (c *Capture) Present(_ context.Context, player string, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[player] = append(c.messages[player], msg)
	return nil
}

// Messages returns a copy of the messages presented to player.
func (c *Capture) Messages(player string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages[player]...)
}

// Texts returns just the text of each message presented to player.
func (c *Capture) Texts(player string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.messages[player]))
	for _, m := range c.messages[player] {
		out = append(out, m.Text)
	}
	return out
}
