package graph

import (
	"fmt"
	"strings"
)

// Issue codes. E2xx refuse the build, W2xx are warnings.
const (
	ErrEmptyID        = "E200" // entry has no id
	ErrDuplicateID    = "E201" // two entries share an id
	ErrInvalidEntry   = "E202" // entry fails its own structural check
	WarnDanglingRef   = "W210" // forward list names an unknown entry
	WarnCycle         = "W211" // forwarding edges form a cycle
	WarnUnknownSystem = "W212" // forward list names an unknown system trigger
)

// Level is the severity of an Issue.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Issue is one finding from Validate.
type Issue struct {
	Code    string   `json:"code"`
	Level   Level    `json:"level"`
	EntryID string   `json:"entry_id,omitempty"`
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if i.EntryID != "" {
		return fmt.Sprintf("[%s] %s: %s", i.Code, i.EntryID, i.Message)
	}
	return fmt.Sprintf("[%s] %s", i.Code, i.Message)
}

// IsError reports whether the issue refuses the build.
func (i Issue) IsError() bool {
	return i.Level == LevelError
}

// BuildError is returned by New when validation found errors.
type BuildError struct {
	Issues []Issue
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		if i.IsError() {
			msgs = append(msgs, i.Error())
		}
	}
	return fmt.Sprintf("entry graph invalid: %s", strings.Join(msgs, "; "))
}

// Errors returns only the error-level issues.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns only the warning-level issues.
func Warnings(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if !i.IsError() {
			out = append(out, i)
		}
	}
	return out
}
