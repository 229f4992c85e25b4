package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

func sayHandler(ctx context.Context, call Call) error {
	text := stringParam(call.Params, "text")
	if text == "" {
		return fmt.Errorf("params.text is required")
	}
	return call.Presenter.Present(ctx, call.Player, Message{
		Kind:    MessageSay,
		Speaker: stringParam(call.Params, "speaker"),
		Text:    Expand(text, call.Player, call.Facts),
		EntryID: call.Entry.ID,
	})
}

func logHandler(ctx context.Context, call Call) error {
	msg := Expand(stringParam(call.Params, "message"), call.Player, call.Facts)
	call.Logger.Log(ctx, parseLevel(stringParam(call.Params, "level")), msg, "player", call.Player)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
