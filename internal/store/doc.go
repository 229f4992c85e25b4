// Package store provides SQLite-backed persistence for TypeWriter.
//
// Two tables:
//   - facts: the last saved fact values per player, written on disconnect
//     and read back on the player's next first touch
//   - activations: an append-only log of entry activations
//
// # Ordering
//
// Activations are keyed and ordered by seq, the engine's logical clock,
// never by wall time. Reads use ORDER BY seq ASC, so identical runs give
// identical results. A process that reopens an existing database should
// start its clock at MaxSeq.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
