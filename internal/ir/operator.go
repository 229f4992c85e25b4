package ir

import (
	"fmt"
	"strings"
)

// CriteriaOperator compares a fact value against a threshold.
type CriteriaOperator int

const (
	Equals CriteriaOperator = iota + 1
	LessThan
	GreaterThan
	LessThanOrEquals
	GreaterThanOrEqual
)

var criteriaSymbols = map[CriteriaOperator]string{
	Equals:             "==",
	LessThan:           "<",
	GreaterThan:        ">",
	LessThanOrEquals:   "<=",
	GreaterThanOrEqual: ">=",
}

var criteriaNames = map[string]CriteriaOperator{
	"==":                    Equals,
	"EQUALS":                Equals,
	"<":                     LessThan,
	"LESS_THAN":             LessThan,
	">":                     GreaterThan,
	"GREATER_THAN":          GreaterThan,
	"<=":                    LessThanOrEquals,
	"LESS_THAN_OR_EQUALS":   LessThanOrEquals,
	">=":                    GreaterThanOrEqual,
	"GREATER_THAN_OR_EQUAL": GreaterThanOrEqual,
}

// Valid reports whether op is one of the defined operators.
func (op CriteriaOperator) Valid() bool {
	_, ok := criteriaSymbols[op]
	return ok
}

// String returns the authoring symbol, e.g. ">=".
func (op CriteriaOperator) String() string {
	if s, ok := criteriaSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("CriteriaOperator(%d)", int(op))
}

// MarshalText implements encoding.TextMarshaler.
func (op CriteriaOperator) MarshalText() ([]byte, error) {
	s, ok := criteriaSymbols[op]
	if !ok {
		return nil, fmt.Errorf("invalid criteria operator %d", int(op))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Both symbols ("<=") and names ("LESS_THAN_OR_EQUALS") are accepted.
func (op *CriteriaOperator) UnmarshalText(text []byte) error {
	parsed, err := ParseCriteriaOperator(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// ParseCriteriaOperator parses a symbol or operator name.
func ParseCriteriaOperator(s string) (CriteriaOperator, error) {
	key := strings.TrimSpace(s)
	if op, ok := criteriaNames[key]; ok {
		return op, nil
	}
	if op, ok := criteriaNames[strings.ToUpper(key)]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown criteria operator %q", s)
}

// ModifierOperator selects how a modifier writes its fact.
type ModifierOperator int

const (
	Set ModifierOperator = iota + 1
	Add
)

var modifierSymbols = map[ModifierOperator]string{
	Set: "=",
	Add: "+",
}

var modifierNames = map[string]ModifierOperator{
	"=":   Set,
	"SET": Set,
	"+":   Add,
	"ADD": Add,
}

// Valid reports whether op is one of the defined operators.
func (op ModifierOperator) Valid() bool {
	_, ok := modifierSymbols[op]
	return ok
}

// String returns the authoring symbol, "=" or "+".
func (op ModifierOperator) String() string {
	if s, ok := modifierSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("ModifierOperator(%d)", int(op))
}

// MarshalText implements encoding.TextMarshaler.
func (op ModifierOperator) MarshalText() ([]byte, error) {
	s, ok := modifierSymbols[op]
	if !ok {
		return nil, fmt.Errorf("invalid modifier operator %d", int(op))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *ModifierOperator) UnmarshalText(text []byte) error {
	parsed, err := ParseModifierOperator(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// ParseModifierOperator parses "=", "+", "SET" or "ADD".
func ParseModifierOperator(s string) (ModifierOperator, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if op, ok := modifierNames[key]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown modifier operator %q", s)
}
