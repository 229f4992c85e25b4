// Package graph holds the loaded entry graph.
//
// A Graph is immutable once built: lookups and downstream resolution are
// safe from any number of goroutines without locking. Building a graph runs
// Validate first; structural errors (empty or duplicate ids, malformed
// entries) refuse the build, while dangling forward references and
// forwarding cycles are reported as warnings and the graph still builds.
// At runtime a dangling reference is simply an edge to nothing.
package graph
