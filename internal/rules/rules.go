// Package rules evaluates criteria and applies modifiers against player facts.
//
// Everything here is stateless. Criteria only read; modifiers only write.
package rules

import (
	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Valid reports whether value satisfies c. It is a total function of the
// value, operator and threshold; an invalid operator never holds.
func Valid(c ir.Criteria, value int) bool {
	switch c.Operator {
	case ir.Equals:
		return value == c.Value
	case ir.LessThan:
		return value < c.Value
	case ir.GreaterThan:
		return value > c.Value
	case ir.LessThanOrEquals:
		return value <= c.Value
	case ir.GreaterThanOrEqual:
		return value >= c.Value
	default:
		return false
	}
}

// Evaluate checks one criterion against player's current fact value.
// Unset facts read as 0.
func Evaluate(facts fact.Reader, player string, c ir.Criteria) bool {
	return Valid(c, facts.Get(player, c.Fact))
}

// EvaluateAll returns true if all criteria hold (AND logic).
// An empty criteria list is vacuously true.
func EvaluateAll(facts fact.Reader, player string, criteria []ir.Criteria) bool {
	for _, c := range criteria {
		if !Evaluate(facts, player, c) {
			return false
		}
	}
	return true
}

// ApplyAll applies modifiers in declared order.
//
// Callers evaluate every criterion of an activation before calling this, so
// a modifier never changes the outcome of a criterion in the same
// activation.
func ApplyAll(facts fact.Store, player string, modifiers []ir.Modifier) {
	for _, m := range modifiers {
		facts.Apply(player, m.Fact, m.Operator, m.Value)
	}
}

// Activate is the gate of a triggerable entry: if all criteria hold, it
// applies the modifiers and returns true. Otherwise nothing is written.
func Activate(facts fact.Store, player string, criteria []ir.Criteria, modifiers []ir.Modifier) bool {
	if !EvaluateAll(facts, player, criteria) {
		return false
	}
	ApplyAll(facts, player, modifiers)
	return true
}
