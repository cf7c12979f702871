package conditions

import "fmt"

// Evaluate combines the conditions under logic for one input value.
//
// ALL and ANY evaluate every condition. ANY_SHORT_CIRCUIT stops at the first
// match and reports only that payload. NONE stops at the first match and
// reports not triggered. A group with no conditions is vacuously triggered
// whatever its logic type. A condition error aborts the evaluation and is
// returned to the caller.
func Evaluate(logic LogicType, conditions []Condition, value any) (ProcessedResult, error) {
	switch logic {
	case LogicAll:
		return evaluateAll(conditions, value)
	case LogicAny:
		return evaluateAny(conditions, value)
	case LogicAnyShortCircuit:
		return evaluateAnyShortCircuit(conditions, value)
	case LogicNone:
		return evaluateNone(conditions, value)
	}
	return notTriggered(), fmt.Errorf("%w: %q", ErrUnknownLogicType, logic)
}

// fallback is the outcome when a combinator's predicate is not satisfied:
// only an empty group counts as triggered
func fallback(conditionCount int) ProcessedResult {
	return ProcessedResult{Triggered: conditionCount == 0, Results: []any{}}
}

func evaluateAll(conditions []Condition, value any) (ProcessedResult, error) {
	payloads := make([]any, 0, len(conditions))
	allMatched := true

	for i, c := range conditions {
		payload, matched, err := c.Evaluate(value)
		if err != nil {
			return notTriggered(), conditionError(i, err)
		}
		if !matched {
			allMatched = false
			continue
		}
		payloads = append(payloads, payload)
	}

	if allMatched {
		return triggered(payloads...), nil
	}
	return fallback(len(conditions)), nil
}

func evaluateAny(conditions []Condition, value any) (ProcessedResult, error) {
	payloads := make([]any, 0, len(conditions))

	for i, c := range conditions {
		payload, matched, err := c.Evaluate(value)
		if err != nil {
			return notTriggered(), conditionError(i, err)
		}
		if matched {
			payloads = append(payloads, payload)
		}
	}

	if len(payloads) > 0 {
		return triggered(payloads...), nil
	}
	return fallback(len(conditions)), nil
}

func evaluateAnyShortCircuit(conditions []Condition, value any) (ProcessedResult, error) {
	for i, c := range conditions {
		payload, matched, err := c.Evaluate(value)
		if err != nil {
			return notTriggered(), conditionError(i, err)
		}
		if matched {
			return ProcessedResult{Triggered: true, Results: []any{payload}}, nil
		}
	}
	return fallback(len(conditions)), nil
}

func evaluateNone(conditions []Condition, value any) (ProcessedResult, error) {
	for i, c := range conditions {
		_, matched, err := c.Evaluate(value)
		if err != nil {
			return notTriggered(), conditionError(i, err)
		}
		if matched {
			return notTriggered(), nil
		}
	}
	return triggered(), nil
}

func conditionError(position int, err error) error {
	return fmt.Errorf("condition at position %d failed: %w", position, err)
}
