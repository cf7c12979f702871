package conditions

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Condition evaluates an input value. matched=false means the condition is
// absent from the group's results; any payload returned with matched=true,
// including nil or false, counts as a match.
type Condition interface {
	Evaluate(value any) (payload any, matched bool, err error)
}

// ConditionFunc adapts a function into a Condition
type ConditionFunc func(value any) (any, bool, error)

// Evaluate calls f(value)
func (f ConditionFunc) Evaluate(value any) (any, bool, error) {
	return f(value)
}

// comparisonCondition applies op(value, comparison) and yields result on success
type comparisonCondition struct {
	op         ConditionType
	comparison any
	result     any
}

func newComparisonCondition(op ConditionType, comparison, result any) (*comparisonCondition, error) {
	switch op {
	case ConditionEqual, ConditionNotEqual:
	case ConditionGreater, ConditionGreaterOrEqual, ConditionLess, ConditionLessOrEqual:
		if _, ok := toFloat64(comparison); !ok {
			if _, ok := comparison.(string); !ok {
				return nil, fmt.Errorf("%w: %s requires a number or string comparison, got %T", ErrInvalidCondition, op, comparison)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q is not a comparison operator", ErrUnknownConditionType, op)
	}
	return &comparisonCondition{op: op, comparison: comparison, result: result}, nil
}

func (c *comparisonCondition) Evaluate(value any) (any, bool, error) {
	ok, err := compare(c.op, value, c.comparison)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return c.result, true, nil
}

func compare(op ConditionType, left, right any) (bool, error) {
	switch op {
	case ConditionEqual:
		return equal(left, right), nil
	case ConditionNotEqual:
		return !equal(left, right), nil
	}

	cmp, err := order(left, right)
	if err != nil {
		return false, err
	}
	switch op {
	case ConditionGreater:
		return cmp > 0, nil
	case ConditionGreaterOrEqual:
		return cmp >= 0, nil
	case ConditionLess:
		return cmp < 0, nil
	case ConditionLessOrEqual:
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownConditionType, op)
}

func equal(left, right any) bool {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if lok && rok {
		return lf == rf
	}
	return reflect.DeepEqual(left, right)
}

// order returns -1, 0 or 1. Numbers order numerically, strings lexically.
func order(left, right any) (int, error) {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if lok && rok {
		switch {
		case math.IsNaN(lf) || math.IsNaN(rf):
			return 0, fmt.Errorf("%w: NaN", ErrIncomparable)
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		}
		return 0, nil
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch {
		case ls < rs:
			return -1, nil
		case ls > rs:
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, left, right)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
