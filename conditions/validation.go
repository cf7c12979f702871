package conditions

import (
	"fmt"
	"strings"
)

// ValidateGroup checks a group definition before it is stored
func ValidateGroup(group *DataConditionGroup) error {
	if group == nil {
		return fmt.Errorf("condition group cannot be nil")
	}
	if !group.LogicType.Valid() {
		return fmt.Errorf("%w: %q (must be one of: all, any, any-short, none)", ErrUnknownLogicType, group.LogicType)
	}
	return nil
}

// ValidateCondition checks a condition definition before it is stored.
// Expressions are only checked for shape here; the Compiler reports
// compile errors.
func ValidateCondition(condition *DataCondition) error {
	if condition == nil {
		return fmt.Errorf("%w: condition cannot be nil", ErrInvalidCondition)
	}

	if condition.ConditionGroupID == 0 {
		return fmt.Errorf("%w: condition must belong to a group", ErrInvalidCondition)
	}

	if !condition.Type.Valid() {
		return fmt.Errorf("%w: %q (must be one of: eq, ne, gt, gte, lt, lte, cel, expr)", ErrUnknownConditionType, condition.Type)
	}

	// A null result would be indistinguishable from "no match"
	if condition.ConditionResult == nil {
		return fmt.Errorf("%w: condition result cannot be null", ErrInvalidCondition)
	}

	switch {
	case condition.Type.isExpression():
		src, ok := condition.Comparison.(string)
		if !ok {
			return fmt.Errorf("%w: %s comparison must be an expression string, got %T", ErrInvalidCondition, condition.Type, condition.Comparison)
		}
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("%w: %s expression cannot be empty", ErrInvalidCondition, condition.Type)
		}

	case condition.Type.isOrdering():
		if _, ok := toFloat64(condition.Comparison); ok {
			return nil
		}
		if _, ok := condition.Comparison.(string); ok {
			return nil
		}
		return fmt.Errorf("%w: %s comparison must be a number or string, got %T", ErrInvalidCondition, condition.Type, condition.Comparison)

	default:
		if !isScalar(condition.Comparison) {
			return fmt.Errorf("%w: %s comparison must be a number, string or bool, got %T", ErrInvalidCondition, condition.Type, condition.Comparison)
		}
	}

	return nil
}

func isScalar(v any) bool {
	if _, ok := toFloat64(v); ok {
		return true
	}
	switch v.(type) {
	case string, bool:
		return true
	}
	return false
}
