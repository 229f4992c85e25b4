package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps is the default number of entry visits one input may make.
const DefaultMaxSteps = 1000

// QuotaEnforcer counts entry visits while one input is processed and stops
// runaway fan-out.
//
// Forwarding cycles are legal content (criteria usually break them), so
// they are only warned about at load time. The quota is what guarantees an
// input terminates when they don't.
//
// A fresh enforcer is created per input; it is not safe for concurrent use.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one visit and returns a StepsExceededError once the limit
// is passed.
func (q *QuotaEnforcer) Check(player string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Player: player,
			Steps:  q.current,
			Limit:  q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError aborts the rest of an input. The interaction stays
// usable; only the remaining fan-out of that one input is dropped.
type StepsExceededError struct {
	Player string
	Steps  int
	Limit  int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("player %s exceeded max steps quota: %d steps > %d limit",
		e.Player, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
