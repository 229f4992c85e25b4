package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const guideEntries = `entries:
  - id: greet
    kind: trigger
    triggers: [hello]
  - id: hello
    kind: dialogue
    criteria:
      - {fact: met, operator: "==", value: 0}
    modifiers:
      - {fact: met, operator: "=", value: 1}
    dialogue:
      speaker: Guide
      text: "Welcome, {player}."
      duration: 2
    triggers: [bounty]
  - id: bounty
    kind: action
    criteria:
      - {fact: kills, operator: ">=", value: 3}
    modifiers:
      - {fact: gold, operator: "+", value: 10}
    action:
      kind: say
      params:
        text: "You have {fact:gold} gold."
`

const guideScenario = `name: guide
description: The guide pays the bounty when the welcome line times out
entries: [guide.yaml]
facts:
  alice: {kills: 3}
steps:
  - player: alice
    start: [greet]
  - player: alice
    tick: 2
    expect:
      state: idle
      facts: {gold: 10}
assertions:
  - type: trace_order
    player: alice
    entries: [hello, bounty]
  - type: said
    player: alice
    texts: ["Welcome, alice.", "You have 10 gold."]
`

// writeFile writes content to dir/name, creating parents.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// guideDir returns an entries directory holding guide.yaml.
func guideDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "entries")
	writeFile(t, dir, "guide.yaml", guideEntries)
	return dir
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}
