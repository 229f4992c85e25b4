package graph

import (
	"sort"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Graph is an immutable, validated set of entries.
type Graph struct {
	entries map[string]ir.Entry
	order   []string
	hash    string
}

// New validates entries and builds a Graph.
//
// On error-level issues it returns a *BuildError and no graph. Otherwise it
// returns the graph along with any warnings. Entries are copied; mutating
// the input afterwards does not affect the graph.
func New(entries []ir.Entry) (*Graph, []Issue, error) {
	issues := Validate(entries)
	if len(Errors(issues)) > 0 {
		return nil, issues, &BuildError{Issues: issues}
	}

	hash, err := ir.GraphHash(entries)
	if err != nil {
		return nil, issues, err
	}

	g := &Graph{
		entries: make(map[string]ir.Entry, len(entries)),
		order:   make([]string, 0, len(entries)),
		hash:    hash,
	}
	for _, e := range entries {
		g.entries[e.ID] = cloneEntry(e)
		g.order = append(g.order, e.ID)
	}
	return g, issues, nil
}

// MustNew is New for tests and fixtures; it panics on error.
func MustNew(entries ...ir.Entry) *Graph {
	g, _, err := New(entries)
	if err != nil {
		panic(err)
	}
	return g
}

// Lookup returns the entry with id.
func (g *Graph) Lookup(id string) (ir.Entry, bool) {
	e, ok := g.entries[id]
	return e, ok
}

// DownstreamOf returns the ids id forwards to, in declared order.
// Static and unknown entries forward nowhere. The result is a copy.
func (g *Graph) DownstreamOf(id string) []string {
	e, ok := g.entries[id]
	if !ok || !e.HasForwarding() || len(e.Triggers) == 0 {
		return nil
	}
	out := make([]string, len(e.Triggers))
	copy(out, e.Triggers)
	return out
}

// Len returns the number of entries.
func (g *Graph) Len() int {
	return len(g.entries)
}

// IDs returns every entry id, sorted.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	sort.Strings(out)
	return out
}

// Entries returns the entries in declaration order.
func (g *Graph) Entries() []ir.Entry {
	out := make([]ir.Entry, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entries[id])
	}
	return out
}

// Hash identifies the loaded content; see ir.GraphHash.
func (g *Graph) Hash() string {
	return g.hash
}

func cloneEntry(e ir.Entry) ir.Entry {
	if e.Triggers != nil {
		e.Triggers = append([]string(nil), e.Triggers...)
	}
	if e.Criteria != nil {
		e.Criteria = append([]ir.Criteria(nil), e.Criteria...)
	}
	if e.Modifiers != nil {
		e.Modifiers = append([]ir.Modifier(nil), e.Modifiers...)
	}
	if e.Dialogue != nil {
		d := *e.Dialogue
		e.Dialogue = &d
	}
	if e.Action != nil {
		a := *e.Action
		if a.Params != nil {
			params := make(map[string]any, len(a.Params))
			for k, v := range a.Params {
				params[k] = v
			}
			a.Params = params
		}
		e.Action = &a
	}
	return e
}
