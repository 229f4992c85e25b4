package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		op    ir.CriteriaOperator
		value int
		want  bool
	}{
		{"equals hit", ir.Equals, 3, true},
		{"equals miss", ir.Equals, 4, false},
		{"less than hit", ir.LessThan, 2, true},
		{"less than boundary", ir.LessThan, 3, false},
		{"greater than hit", ir.GreaterThan, 4, true},
		{"greater than boundary", ir.GreaterThan, 3, false},
		{"less or equal boundary", ir.LessThanOrEquals, 3, true},
		{"less or equal miss", ir.LessThanOrEquals, 4, false},
		{"greater or equal boundary", ir.GreaterThanOrEqual, 3, true},
		{"greater or equal miss", ir.GreaterThanOrEqual, 2, false},
		{"invalid operator", ir.CriteriaOperator(0), 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ir.Criteria{Fact: "kills", Operator: tt.op, Value: 3}
			assert.Equal(t, tt.want, Valid(c, tt.value))
			// Pure: same inputs, same answer.
			assert.Equal(t, Valid(c, tt.value), Valid(c, tt.value))
		})
	}
}

func TestEvaluate_KillsScenario(t *testing.T) {
	facts := fact.NewMemory()
	facts.Apply("steve", "kills", ir.Set, 3)

	assert.True(t, Evaluate(facts, "steve", ir.Criteria{Fact: "kills", Operator: ir.GreaterThanOrEqual, Value: 3}))
	assert.False(t, Evaluate(facts, "steve", ir.Criteria{Fact: "kills", Operator: ir.GreaterThan, Value: 3}))
}

func TestEvaluate_AbsentFactIsZero(t *testing.T) {
	facts := fact.NewMemory()

	assert.True(t, Evaluate(facts, "steve", ir.Criteria{Fact: "unknown", Operator: ir.Equals, Value: 0}))
	assert.False(t, Evaluate(facts, "steve", ir.Criteria{Fact: "unknown", Operator: ir.GreaterThan, Value: 0}))
}

func TestEvaluateAll(t *testing.T) {
	facts := fact.NewMemory()
	facts.Apply("steve", "kills", ir.Set, 3)
	facts.Apply("steve", "gold", ir.Set, 10)

	assert.True(t, EvaluateAll(facts, "steve", nil), "empty criteria list is vacuously true")
	assert.True(t, EvaluateAll(facts, "steve", []ir.Criteria{
		{Fact: "kills", Operator: ir.Equals, Value: 3},
		{Fact: "gold", Operator: ir.GreaterThanOrEqual, Value: 10},
	}))
	assert.False(t, EvaluateAll(facts, "steve", []ir.Criteria{
		{Fact: "kills", Operator: ir.Equals, Value: 3},
		{Fact: "gold", Operator: ir.GreaterThan, Value: 10},
	}))
}

func TestApplyAll_InOrder(t *testing.T) {
	facts := fact.NewMemory()

	ApplyAll(facts, "steve", []ir.Modifier{
		{Fact: "score", Operator: ir.Set, Value: 10},
		{Fact: "score", Operator: ir.Add, Value: 5},
		{Fact: "visits", Operator: ir.Add, Value: 1},
	})

	assert.Equal(t, 15, facts.Get("steve", "score"))
	assert.Equal(t, 1, facts.Get("steve", "visits"))
}

func TestActivate_AllOrNothing(t *testing.T) {
	facts := fact.NewMemory()
	facts.Apply("steve", "score", ir.Set, 10)

	criteria := []ir.Criteria{
		{Fact: "score", Operator: ir.GreaterThanOrEqual, Value: 10},
		{Fact: "quest", Operator: ir.Equals, Value: 1},
	}
	modifiers := []ir.Modifier{{Fact: "score", Operator: ir.Add, Value: 5}}

	assert.False(t, Activate(facts, "steve", criteria, modifiers))
	assert.Equal(t, 10, facts.Get("steve", "score"), "no partial modifier application")

	facts.Apply("steve", "quest", ir.Set, 1)
	assert.True(t, Activate(facts, "steve", criteria, modifiers))
	assert.Equal(t, 15, facts.Get("steve", "score"))
}

func TestActivate_CriteriaSeeStateBeforeModifiers(t *testing.T) {
	facts := fact.NewMemory()

	// The modifier sets the very fact the criterion checks. The criterion
	// must see the pre-activation value.
	criteria := []ir.Criteria{{Fact: "greeted", Operator: ir.Equals, Value: 0}}
	modifiers := []ir.Modifier{{Fact: "greeted", Operator: ir.Set, Value: 1}}

	assert.True(t, Activate(facts, "steve", criteria, modifiers))
	assert.False(t, Activate(facts, "steve", criteria, modifiers))
	assert.Equal(t, 1, facts.Get("steve", "greeted"))
}
