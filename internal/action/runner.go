package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Call is the input to a Handler.
type Call struct {
	Player    string
	Entry     ir.Entry
	Params    map[string]any
	Facts     fact.Reader
	Presenter Presenter
	Logger    *slog.Logger
}

// Handler performs one action kind.
type Handler func(ctx context.Context, call Call) error

// UnknownKindError is returned for an action kind with no handler.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("no handler registered for action kind %q", e.Kind)
}

// DefaultTimeout bounds a single action. A script that runs past it is
// interrupted and reported as failed.
const DefaultTimeout = 5 * time.Second

// Runner executes entry effects.
//
// Handlers are registered before the runner is shared; Execute is safe for
// concurrent use once registration is done.
type Runner struct {
	handlers  map[string]Handler
	presenter Presenter
	facts     fact.Reader
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithPresenter sets where say and dialogue text goes.
// Default: LogPresenter.
func WithPresenter(p Presenter) Option {
	return func(r *Runner) {
		r.presenter = p
	}
}

// WithFacts exposes facts to handlers (read-only).
func WithFacts(f fact.Reader) Option {
	return func(r *Runner) {
		r.facts = f
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithTimeout sets the per-action deadline. Zero or negative disables it.
// Default: 5s (DefaultTimeout)
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a Runner with the built-in say, log and lua handlers.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.presenter == nil {
		r.presenter = LogPresenter{Logger: r.logger}
	}
	if r.facts == nil {
		r.facts = fact.NewMemory()
	}

	r.Register("say", sayHandler)
	r.Register("log", logHandler)
	r.Register("lua", luaHandler)
	return r
}

// Register adds or replaces the handler for kind.
func (r *Runner) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

// Kinds returns the registered action kinds, sorted.
func (r *Runner) Kinds() []string {
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Execute performs the effect of an activated entry.
// Dialogue entries present their line; action entries dispatch to their
// handler. Other kinds have no effect. Each call runs under the runner's
// timeout.
func (r *Runner) Execute(ctx context.Context, player string, entry ir.Entry) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	switch entry.ResolvedKind() {
	case ir.KindDialogue:
		if entry.Dialogue == nil {
			return nil
		}
		return r.presenter.Present(ctx, player, Message{
			Kind:    MessageDialogue,
			Speaker: entry.Dialogue.Speaker,
			Text:    Expand(entry.Dialogue.Text, player, r.facts),
			EntryID: entry.ID,
		})

	case ir.KindAction:
		if entry.Action == nil {
			return nil
		}
		h, ok := r.handlers[entry.Action.Kind]
		if !ok {
			return &UnknownKindError{Kind: entry.Action.Kind}
		}
		call := Call{
			Player:    player,
			Entry:     entry,
			Params:    entry.Action.Params,
			Facts:     r.facts,
			Presenter: r.presenter,
			Logger:    r.logger.With("entry", entry.ID, "action", entry.Action.Kind),
		}
		if err := h(ctx, call); err != nil {
			return fmt.Errorf("action %s: %w", entry.Action.Kind, err)
		}
		return nil

	default:
		return nil
	}
}

// Expand substitutes placeholders in text: {player} becomes the player id
// and {fact:name} the player's current value of fact name.
func Expand(text, player string, facts fact.Reader) string {
	if !strings.Contains(text, "{") {
		return text
	}
	text = strings.ReplaceAll(text, "{player}", player)

	var b strings.Builder
	for {
		start := strings.Index(text, "{fact:")
		if start < 0 {
			b.WriteString(text)
			return b.String()
		}
		end := strings.IndexByte(text[start:], '}')
		if end < 0 {
			b.WriteString(text)
			return b.String()
		}
		name := text[start+len("{fact:") : start+end]
		b.WriteString(text[:start])
		b.WriteString(strconv.Itoa(facts.Get(player, name)))
		text = text[start+end+1:]
	}
}

// stringParam returns params[key] as a string, or "" when absent.
func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
