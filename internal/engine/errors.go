package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error detected while an interaction processes input.
//
// None of these escape to callers: the interaction logs them and carries
// on. They are typed so logs and tests can match on Code.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Player identifies the affected interaction.
	Player string

	// EntryID identifies the entry involved, if any.
	EntryID string

	// Chain is the chain token open at the time, if any.
	Chain string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownEntry indicates a trigger named no known entry.
	ErrCodeUnknownEntry RuntimeErrorCode = "UNKNOWN_ENTRY"

	// ErrCodeActionFailed indicates an entry's action returned an error or
	// panicked.
	ErrCodeActionFailed RuntimeErrorCode = "ACTION_FAILED"

	// ErrCodeQuotaExceeded indicates an input visited too many entries.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntryID != "" {
		msg = fmt.Sprintf("%s (player=%s, entry=%s)", msg, e.Player, e.EntryID)
	} else if e.Player != "" {
		msg = fmt.Sprintf("%s (player=%s)", msg, e.Player)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsActionError returns true if the error is a failed action.
func IsActionError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeActionFailed
}

// NewActionError creates a RuntimeError for a failed action.
func NewActionError(player, entryID, chain string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeActionFailed,
		Message: "action failed",
		Player:  player,
		EntryID: entryID,
		Chain:   chain,
		Err:     cause,
	}
}

// NewUnknownEntryError creates a RuntimeError for a dangling trigger.
func NewUnknownEntryError(player, entryID string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownEntry,
		Message: "trigger names no known entry",
		Player:  player,
		EntryID: entryID,
	}
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(player, chain string, cause *StepsExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("input exceeded max steps (%d > %d)", cause.Steps, cause.Limit),
		Player:  player,
		Chain:   chain,
		Err:     cause,
	}
}
