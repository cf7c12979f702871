package conditions

import (
	"fmt"
	"time"
)

// LogicType is the combinator applied over a group's conditions
type LogicType string

const (
	// LogicAll triggers when every condition matches
	LogicAll LogicType = "all"
	// LogicAny triggers when at least one condition matches; every condition is evaluated
	LogicAny LogicType = "any"
	// LogicAnyShortCircuit triggers on the first matching condition and stops
	LogicAnyShortCircuit LogicType = "any-short"
	// LogicNone triggers when no condition matches; stops at the first match
	LogicNone LogicType = "none"
)

// LogicTypes lists every recognized combinator
var LogicTypes = []LogicType{LogicAll, LogicAny, LogicAnyShortCircuit, LogicNone}

// Valid reports whether l is one of the recognized combinators
func (l LogicType) Valid() bool {
	switch l {
	case LogicAll, LogicAny, LogicAnyShortCircuit, LogicNone:
		return true
	}
	return false
}

// ParseLogicType converts a string into a LogicType
func ParseLogicType(s string) (LogicType, error) {
	l := LogicType(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLogicType, s)
	}
	return l, nil
}

// ConditionType selects how a DataCondition compares the input value
type ConditionType string

const (
	ConditionEqual          ConditionType = "eq"
	ConditionNotEqual       ConditionType = "ne"
	ConditionGreater        ConditionType = "gt"
	ConditionGreaterOrEqual ConditionType = "gte"
	ConditionLess           ConditionType = "lt"
	ConditionLessOrEqual    ConditionType = "lte"

	// ConditionCEL evaluates Comparison as a CEL expression over `value`
	ConditionCEL ConditionType = "cel"
	// ConditionExpr evaluates Comparison as an expr-lang expression over `value`
	ConditionExpr ConditionType = "expr"
)

// Valid reports whether c is a known condition type
func (c ConditionType) Valid() bool {
	switch c {
	case ConditionEqual, ConditionNotEqual,
		ConditionGreater, ConditionGreaterOrEqual,
		ConditionLess, ConditionLessOrEqual,
		ConditionCEL, ConditionExpr:
		return true
	}
	return false
}

func (c ConditionType) isOrdering() bool {
	switch c {
	case ConditionGreater, ConditionGreaterOrEqual, ConditionLess, ConditionLessOrEqual:
		return true
	}
	return false
}

func (c ConditionType) isExpression() bool {
	return c == ConditionCEL || c == ConditionExpr
}

// DataConditionGroup is a set of conditions combined by one LogicType
type DataConditionGroup struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	LogicType      LogicType `json:"logicType"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DataCondition belongs to exactly one group. When the input value satisfies
// Type against Comparison, the condition yields ConditionResult.
type DataCondition struct {
	ID               int64         `json:"id"`
	ConditionGroupID int64         `json:"conditionGroupId"`
	Type             ConditionType `json:"type"`
	Comparison       any           `json:"comparison"`
	ConditionResult  any           `json:"conditionResult"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// ProcessedResult is the outcome of evaluating a group.
// Results holds payloads of matched conditions only, in evaluation order.
type ProcessedResult struct {
	Triggered bool  `json:"triggered"`
	Results   []any `json:"results"`
}

func triggered(results ...any) ProcessedResult {
	if results == nil {
		results = []any{}
	}
	return ProcessedResult{Triggered: true, Results: results}
}

func notTriggered() ProcessedResult {
	return ProcessedResult{Triggered: false, Results: []any{}}
}
