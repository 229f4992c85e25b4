// Package action runs the effects of activated entries.
//
// A Runner maps action kinds to handlers. Three kinds ship with the
// runtime:
//
//   - say: present params.text to the player
//   - log: write params.message to the structured log
//   - lua: run params.script in a sandboxed Lua state
//
// Dialogue entries have no handler; the Runner presents their line
// directly. Hosts register further kinds (spawning creatures, giving
// items) with Register.
package action
