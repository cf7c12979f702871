package conditions

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestComparisonConditionOperators(t *testing.T) {
	testCases := []struct {
		name       string
		op         ConditionType
		value      any
		comparison any
		want       bool
	}{
		{"eq same int", ConditionEqual, 5, 5, true},
		{"eq int and float", ConditionEqual, 5, 5.0, true},
		{"eq json number", ConditionEqual, json.Number("5"), int64(5), true},
		{"eq different", ConditionEqual, 5, 6, false},
		{"eq string", ConditionEqual, "error", "error", true},
		{"eq string and number", ConditionEqual, "5", 5, false},
		{"eq bool", ConditionEqual, true, true, true},
		{"ne different", ConditionNotEqual, 5, 6, true},
		{"ne same", ConditionNotEqual, "a", "a", false},
		{"gt above", ConditionGreater, 11, 10, true},
		{"gt equal", ConditionGreater, 10, 10, false},
		{"gte equal", ConditionGreaterOrEqual, 10, 10.0, true},
		{"gte below", ConditionGreaterOrEqual, 9.99, 10, false},
		{"lt below", ConditionLess, uint8(3), 4, true},
		{"lt equal", ConditionLess, 4, 4, false},
		{"lte equal", ConditionLessOrEqual, float32(2.5), 2.5, true},
		{"lte above", ConditionLessOrEqual, 3, 2, false},
		{"gt strings", ConditionGreater, "b", "a", true},
		{"lt strings", ConditionLess, "apple", "banana", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cond, err := newComparisonCondition(tc.op, tc.comparison, "payload")
			if err != nil {
				t.Fatalf("newComparisonCondition() failed: %v", err)
			}

			payload, matched, err := cond.Evaluate(tc.value)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if matched != tc.want {
				t.Errorf("%v %s %v = %v, want %v", tc.value, tc.op, tc.comparison, matched, tc.want)
			}
			if matched && payload != "payload" {
				t.Errorf("payload = %v, want payload", payload)
			}
			if !matched && payload != nil {
				t.Errorf("unmatched condition returned payload %v", payload)
			}
		})
	}
}

func TestComparisonConditionReturnsFalsyResult(t *testing.T) {
	cond, err := newComparisonCondition(ConditionEqual, 1, false)
	if err != nil {
		t.Fatalf("newComparisonCondition() failed: %v", err)
	}

	payload, matched, err := cond.Evaluate(1)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !matched {
		t.Fatal("condition should match")
	}
	if payload != false {
		t.Errorf("payload = %v, want false", payload)
	}
}

func TestComparisonConditionIncomparable(t *testing.T) {
	testCases := []struct {
		name  string
		op    ConditionType
		value any
		cmp   any
	}{
		{"string against number", ConditionGreater, "high", 10},
		{"number against string", ConditionLess, 10, "high"},
		{"nil value", ConditionGreaterOrEqual, nil, 1},
		{"map value", ConditionLessOrEqual, map[string]any{"a": 1}, 1},
		{"NaN value", ConditionGreater, math.NaN(), 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cond, err := newComparisonCondition(tc.op, tc.cmp, "payload")
			if err != nil {
				t.Fatalf("newComparisonCondition() failed: %v", err)
			}

			_, matched, err := cond.Evaluate(tc.value)
			if !errors.Is(err, ErrIncomparable) {
				t.Errorf("Evaluate() error = %v, want ErrIncomparable", err)
			}
			if matched {
				t.Error("incomparable values should not match")
			}
		})
	}
}

func TestNewComparisonConditionRejectsBadOperands(t *testing.T) {
	if _, err := newComparisonCondition(ConditionGreater, []any{1}, "x"); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("gt with list comparison: error = %v, want ErrInvalidCondition", err)
	}
	if _, err := newComparisonCondition(ConditionCEL, "true", "x"); !errors.Is(err, ErrUnknownConditionType) {
		t.Errorf("cel as comparison operator: error = %v, want ErrUnknownConditionType", err)
	}
}

func TestConditionFunc(t *testing.T) {
	var seen any
	cond := ConditionFunc(func(value any) (any, bool, error) {
		seen = value
		return "hit", true, nil
	})

	payload, matched, err := cond.Evaluate(42)
	if err != nil || !matched || payload != "hit" {
		t.Errorf("Evaluate() = (%v, %v, %v), want (hit, true, nil)", payload, matched, err)
	}
	if seen != 42 {
		t.Errorf("function saw %v, want 42", seen)
	}
}
