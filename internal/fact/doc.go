// Package fact holds player-scoped integer facts.
//
// A fact is a named integer owned by one player. Reading a fact that was
// never written yields 0; there is no "unknown fact" error. Facts are only
// written through modifier application and are dropped when the owning
// player's state is torn down.
//
// Each player's facts sit behind their own lock, so actors working on
// different players never contend with each other.
package fact
