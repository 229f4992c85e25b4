package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// cycle is a forwarding loop found by findCycles.
//
// Cycles are warnings, not errors, because criteria usually break them at
// runtime (a greeting that re-arms itself once a fact changes). The
// per-input activation quota stops the ones that don't.
type cycle struct {
	Path    []string
	Message string
}

// forwardGraph maps entry id to the known entries it forwards to.
type forwardGraph map[string][]string

func buildForwardGraph(entries []ir.Entry) forwardGraph {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ID != "" {
			known[e.ID] = true
		}
	}

	g := make(forwardGraph, len(known))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, dup := g[e.ID]; dup {
			continue
		}
		g[e.ID] = []string{}
		if !e.HasForwarding() {
			continue
		}
		for _, ref := range e.Triggers {
			if known[ref] {
				g[e.ID] = append(g[e.ID], ref)
			}
		}
	}
	return g
}

// findCycles reports every strongly connected component of the forwarding
// graph that is a real cycle: more than one node, or a self-loop.
// Output is deterministic: nodes are visited in sorted id order.
func findCycles(entries []ir.Entry) []cycle {
	g := buildForwardGraph(entries)
	if len(g) == 0 {
		return nil
	}

	var out []cycle
	for _, scc := range tarjanSCC(g) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], g) {
			continue
		}
		out = append(out, sccToCycle(scc, g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path[0] < out[j].Path[0] })
	return out
}

func hasSelfLoop(node string, g forwardGraph) bool {
	for _, n := range g[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(g forwardGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// sccToCycle walks the component from its smallest id, following declared
// edge order, until it returns to the start.
func sccToCycle(scc []string, g forwardGraph) cycle {
	members := make(map[string]bool, len(scc))
	start := scc[0]
	for _, n := range scc {
		members[n] = true
		if n < start {
			start = n
		}
	}

	if len(scc) == 1 {
		return cycle{
			Path:    []string{start, start},
			Message: fmt.Sprintf("entry triggers itself: %s -> %s", start, start),
		}
	}

	path := []string{start}
	visited := map[string]bool{}
	current := start
	for {
		visited[current] = true
		next := ""
		for _, n := range g[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return cycle{
		Path:    path,
		Message: fmt.Sprintf("forwarding cycle: %s", strings.Join(path, " -> ")),
	}
}
