package conditions

import (
	"errors"
	"testing"
)

func TestValidateGroup(t *testing.T) {
	for _, logic := range LogicTypes {
		if err := ValidateGroup(&DataConditionGroup{LogicType: logic}); err != nil {
			t.Errorf("ValidateGroup(%s) failed: %v", logic, err)
		}
	}

	if err := ValidateGroup(&DataConditionGroup{LogicType: "ANY"}); !errors.Is(err, ErrUnknownLogicType) {
		t.Errorf("ValidateGroup(ANY) error = %v, want ErrUnknownLogicType", err)
	}
	if err := ValidateGroup(&DataConditionGroup{}); !errors.Is(err, ErrUnknownLogicType) {
		t.Errorf("ValidateGroup(empty) error = %v, want ErrUnknownLogicType", err)
	}
	if err := ValidateGroup(nil); err == nil {
		t.Error("ValidateGroup(nil) should fail")
	}
}

func TestValidateCondition(t *testing.T) {
	testCases := []struct {
		name      string
		condition *DataCondition
		wantErr   error
	}{
		{
			name:      "valid equality",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionEqual, Comparison: "error", ConditionResult: true},
		},
		{
			name:      "valid ordering on string",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionLess, Comparison: "m", ConditionResult: "early"},
		},
		{
			name:      "valid falsy result",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionGreater, Comparison: 0, ConditionResult: false},
		},
		{
			name:      "valid cel",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionCEL, Comparison: "value > 1", ConditionResult: 1},
		},
		{
			name:      "nil condition",
			condition: nil,
			wantErr:   ErrInvalidCondition,
		},
		{
			name:      "missing group",
			condition: &DataCondition{Type: ConditionEqual, Comparison: 1, ConditionResult: 1},
			wantErr:   ErrInvalidCondition,
		},
		{
			name:      "unknown type",
			condition: &DataCondition{ConditionGroupID: 1, Type: "contains", Comparison: 1, ConditionResult: 1},
			wantErr:   ErrUnknownConditionType,
		},
		{
			name:      "null result",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionEqual, Comparison: 1},
			wantErr:   ErrInvalidCondition,
		},
		{
			name:      "expression not a string",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionExpr, Comparison: 5, ConditionResult: 1},
			wantErr:   ErrInvalidCondition,
		},
		{
			name:      "blank expression",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionCEL, Comparison: "  ", ConditionResult: 1},
			wantErr:   ErrInvalidCondition,
		},
		{
			name:      "ordering on bool",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionGreaterOrEqual, Comparison: true, ConditionResult: 1},
			wantErr:   ErrInvalidCondition,
		},
		{
			name:      "equality on map",
			condition: &DataCondition{ConditionGroupID: 1, Type: ConditionEqual, Comparison: map[string]any{"a": 1}, ConditionResult: 1},
			wantErr:   ErrInvalidCondition,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCondition(tc.condition)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCondition() failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateCondition() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseLogicType(t *testing.T) {
	got, err := ParseLogicType("any-short")
	if err != nil {
		t.Fatalf("ParseLogicType() failed: %v", err)
	}
	if got != LogicAnyShortCircuit {
		t.Errorf("ParseLogicType() = %s, want %s", got, LogicAnyShortCircuit)
	}

	if _, err := ParseLogicType("any_short_circuit"); !errors.Is(err, ErrUnknownLogicType) {
		t.Errorf("ParseLogicType() error = %v, want ErrUnknownLogicType", err)
	}
}
