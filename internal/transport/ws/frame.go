package ws

import (
	"encoding/json"
	"fmt"
)

// Client frame types.
const (
	FrameChat     = "chat"
	FrameCommand  = "command"
	FrameInteract = "interact"
	FrameTrigger  = "trigger"
	FrameNext     = "next"
	FrameEnd      = "end"
)

// FrameError is the server frame sent when a client frame is rejected.
const FrameError = "error"

// ClientFrame is one JSON message from a player.
//
//	{"type":"interact","triggers":["greet"],"continue":"greet.again"}
//	{"type":"command","text":"/home"}
type ClientFrame struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Triggers []string `json:"triggers,omitempty"`
	Continue string   `json:"continue,omitempty"`
}

// ServerFrame is one JSON message to a player. Say and dialogue frames
// carry action.Message fields; error frames carry only Text.
type ServerFrame struct {
	Type    string `json:"type"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
	EntryID string `json:"entry_id,omitempty"`
}

// decodeFrame parses and checks a client frame.
func decodeFrame(data []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientFrame{}, fmt.Errorf("malformed frame: %w", err)
	}
	switch f.Type {
	case FrameChat, FrameCommand:
		if f.Text == "" {
			return ClientFrame{}, fmt.Errorf("%s frame needs text", f.Type)
		}
	case FrameInteract, FrameTrigger:
		if len(f.Triggers) == 0 {
			return ClientFrame{}, fmt.Errorf("%s frame needs triggers", f.Type)
		}
	case FrameNext, FrameEnd:
	case "":
		return ClientFrame{}, fmt.Errorf("frame type is required")
	default:
		return ClientFrame{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return f, nil
}
