package graph

import (
	"fmt"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// knownSystemTriggers are the system triggers the interaction handles.
var knownSystemTriggers = map[string]bool{
	ir.TriggerDialogueEnd:  true,
	ir.TriggerDialogueNext: true,
}

// Validate checks a set of entries and returns every issue found (it does
// not fail fast). Issues come back in entry declaration order, with cycle
// warnings last.
func Validate(entries []ir.Entry) []Issue {
	var issues []Issue

	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			issues = append(issues, Issue{
				Code:    ErrEmptyID,
				Level:   LevelError,
				Message: fmt.Sprintf("entry #%d has no id", i),
			})
			continue
		}
		if seen[e.ID] {
			issues = append(issues, Issue{
				Code:    ErrDuplicateID,
				Level:   LevelError,
				EntryID: e.ID,
				Message: "duplicate entry id",
			})
			continue
		}
		seen[e.ID] = true

		if err := e.Check(); err != nil {
			issues = append(issues, Issue{
				Code:    ErrInvalidEntry,
				Level:   LevelError,
				EntryID: e.ID,
				Message: err.Error(),
			})
		}
	}

	for _, e := range entries {
		if e.ID == "" || !e.HasForwarding() {
			continue
		}
		for _, ref := range e.Triggers {
			switch {
			case ir.IsSystemTrigger(ref):
				if !knownSystemTriggers[ref] {
					issues = append(issues, Issue{
						Code:    WarnUnknownSystem,
						Level:   LevelWarning,
						EntryID: e.ID,
						Message: fmt.Sprintf("unknown system trigger %q", ref),
					})
				}
			case !seen[ref]:
				issues = append(issues, Issue{
					Code:    WarnDanglingRef,
					Level:   LevelWarning,
					EntryID: e.ID,
					Message: fmt.Sprintf("triggers unknown entry %q", ref),
				})
			}
		}
	}

	for _, c := range findCycles(entries) {
		issues = append(issues, Issue{
			Code:    WarnCycle,
			Level:   LevelWarning,
			EntryID: c.Path[0],
			Message: c.Message,
			Path:    c.Path,
		})
	}

	return issues
}
