package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Scenario defines a scripted run: the content under test, the starting
// facts, a sequence of player inputs and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Entries lists entry files or directories to load.
	// Paths are relative to the base path given to LoadScenarioWithBasePath.
	Entries []string `yaml:"entries,omitempty"`

	// Inline entries are added to the loaded ones.
	Inline []ir.Entry `yaml:"inline,omitempty"`

	// Facts seeds player facts before the first step. They are loaded the
	// way saved facts are: on the player's first touch.
	Facts map[string]map[string]int `yaml:"facts,omitempty"`

	// Steps are executed in order; each is fully processed before the next.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store state.
	// Supported types: trace_contains, trace_order, trace_count, said,
	// final_state
	Assertions []Assertion `yaml:"assertions"`

	// MaxSteps overrides the per-input visit quota (0 keeps the default).
	MaxSteps int `yaml:"max_steps,omitempty"`
}

// Step is one scripted input.
type Step struct {
	// Player is required for every operation except tick.
	Player string `yaml:"player,omitempty"`

	// Start and Continue form a StartDialogueWithOrTriggerEvent input.
	Start    []string `yaml:"start,omitempty"`
	Continue string   `yaml:"continue,omitempty"`

	// Actions is a TriggerActions input.
	Actions []string `yaml:"actions,omitempty"`

	// Tick delivers this many ticks to every player.
	Tick int `yaml:"tick,omitempty"`

	// Command is a raw player command; it pre-empts dialogue.
	Command string `yaml:"command,omitempty"`

	// Chat appends to the player's chat history.
	Chat string `yaml:"chat,omitempty"`

	// End closes the player's chain.
	End bool `yaml:"end,omitempty"`

	// Disconnect removes the player.
	Disconnect bool `yaml:"disconnect,omitempty"`

	// Expect is checked after the step is processed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpStart      = "start"
	OpActions    = "actions"
	OpTick       = "tick"
	OpCommand    = "command"
	OpChat       = "chat"
	OpEnd        = "end"
	OpDisconnect = "disconnect"
)

// Ops returns the operations the step sets. A valid step sets exactly one.
func (s Step) Ops() []string {
	var ops []string
	if len(s.Start) > 0 || s.Continue != "" {
		ops = append(ops, OpStart)
	}
	if len(s.Actions) > 0 {
		ops = append(ops, OpActions)
	}
	if s.Tick > 0 {
		ops = append(ops, OpTick)
	}
	if s.Command != "" {
		ops = append(ops, OpCommand)
	}
	if s.Chat != "" {
		ops = append(ops, OpChat)
	}
	if s.End {
		ops = append(ops, OpEnd)
	}
	if s.Disconnect {
		ops = append(ops, OpDisconnect)
	}
	return ops
}

// StepExpect specifies the player's state after a step.
type StepExpect struct {
	// State is "idle" or "in_dialogue".
	State string `yaml:"state,omitempty"`

	// Facts is a subset match against the player's live facts.
	Facts map[string]int `yaml:"facts,omitempty"`

	// Chat is the exact chat history.
	Chat []string `yaml:"chat,omitempty"`
}

// Assertion validates the trace or final store state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check an entry activated
	// - "trace_order": Check entries activated in order
	// - "trace_count": Check an entry activated exactly N times
	// - "said": Check the exact messages presented to a player
	// - "final_state": Query a store table and verify expected values
	Type string `yaml:"type"`

	// Entry is the entry id (used by trace_contains, trace_count).
	Entry string `yaml:"entry,omitempty"`

	// Player narrows trace assertions to one player; required by said.
	Player string `yaml:"player,omitempty"`

	// Entries is the expected activation order (used by trace_order).
	Entries []string `yaml:"entries,omitempty"`

	// Count is the expected number of activations (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Texts are the expected messages (used by said).
	Texts []string `yaml:"texts,omitempty"`

	// Table is the store table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertSaid          = "said"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Entry paths are
// resolved relative to the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving entry paths relative to basePath.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve entry paths BEFORE validation
	for i, p := range scenario.Entries {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Entries[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Entries) == 0 && len(s.Inline) == 0 {
		return fmt.Errorf("entries or inline is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Entries {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("entry path not found: %s", p)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step performs exactly one operation.
func validateStep(index int, s Step) error {
	ops := s.Ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: no operation", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one operation allowed, got %v", index, ops)
	}

	if ops[0] != OpTick && s.Player == "" {
		return fmt.Errorf("steps[%d]: player is required for %s", index, ops[0])
	}
	if s.Tick < 0 {
		return fmt.Errorf("steps[%d]: tick must be non-negative", index)
	}
	if s.Expect != nil {
		if s.Player == "" {
			return fmt.Errorf("steps[%d].expect: player is required", index)
		}
		switch s.Expect.State {
		case "", "idle", "in_dialogue":
		default:
			return fmt.Errorf("steps[%d].expect: unknown state %q", index, s.Expect.State)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Entries) == 0 {
			return fmt.Errorf("assertions[%d]: entries list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertSaid:
		if a.Player == "" {
			return fmt.Errorf("assertions[%d]: player is required for said", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
