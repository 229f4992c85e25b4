// Package harness runs scripted interaction scenarios against the real
// engine and compares their traces with golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: greeting_flow
//	description: "What this scenario validates"
//	entries:
//	  - greeting.yaml       # files or directories, relative to the base path
//	inline:                 # extra entries written in place
//	  - id: bonus
//	    kind: triggerable
//	    modifiers: [{fact: score, operator: "+", value: 5}]
//	facts:
//	  alice: {kills: 3}
//	steps:
//	  - player: alice
//	    start: [greet]
//	    expect:
//	      state: in_dialogue
//	  - tick: 2
//	  - player: alice
//	    command: /spawn
//	    expect:
//	      state: idle
//	assertions:
//	  - type: trace_order
//	    entries: [greet, hello]
//	  - type: final_state
//	    table: facts
//	    where: {player: alice, fact: kills}
//	    expect: {value: 3}
//
// # Steps
//
// Each step performs exactly one operation:
//
//   - start / continue: StartDialogueWithOrTriggerEvent
//   - actions: TriggerActions
//   - tick: deliver N ticks to every player
//   - command: PreprocessCommand
//   - chat: RecordChat
//   - end: End
//   - disconnect: Disconnect
//
// The harness waits for every step to be fully processed before the next
// one, so traces are deterministic.
//
// # Assertion Types
//
//   - trace_contains: an entry activated (optionally for a player)
//   - trace_order: entries activated in the given order
//   - trace_count: an entry activated exactly N times
//   - said: the exact messages presented to a player
//   - final_state: a row of the store (facts or activations) after all
//     players were disconnected
//
// # Deterministic Testing
//
// The harness uses:
//   - Sequential chain tokens (chain-1, chain-2, ...)
//   - A logical clock starting at 0
//   - A fresh in-memory SQLite store per run
//
// This ensures identical traces across runs for golden file comparison.
package harness
