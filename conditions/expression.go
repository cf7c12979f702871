package conditions

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/cel-go/cel"
)

// DefaultCELCostLimit bounds the work a single CEL condition may do
const DefaultCELCostLimit uint64 = 1000000

// ValueVariable is the name the input value is bound to inside expressions
const ValueVariable = "value"

// NewCELEnv creates the CEL environment shared by all cel conditions.
// The input value is exposed as a dynamically typed variable.
func NewCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(ValueVariable, cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

type celCondition struct {
	prog   cel.Program
	result any
}

func compileCEL(env *cel.Env, expression string, costLimit uint64, result any) (*celCondition, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile error: %w", ErrInvalidCondition, issues.Err())
	}

	prog, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: program creation error: %w", ErrInvalidCondition, err)
	}

	return &celCondition{prog: prog, result: result}, nil
}

// Evaluate treats any non-boolean output as no match
func (c *celCondition) Evaluate(value any) (any, bool, error) {
	out, _, err := c.prog.Eval(map[string]any{ValueVariable: value})
	if err != nil {
		return nil, false, err
	}
	if matched, ok := out.Value().(bool); ok && matched {
		return c.result, true, nil
	}
	return nil, false, nil
}

type exprEnv struct {
	Value any `expr:"value"`
}

type exprCondition struct {
	program *vm.Program
	result  any
}

func compileExpr(expression string, result any) (*exprCondition, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidCondition)
	}

	program, err := expr.Compile(expression, expr.Env(exprEnv{}))
	if err != nil {
		return nil, fmt.Errorf("%w: compile error: %w", ErrInvalidCondition, err)
	}

	return &exprCondition{program: program, result: result}, nil
}

func (c *exprCondition) Evaluate(value any) (any, bool, error) {
	out, err := expr.Run(c.program, exprEnv{Value: value})
	if err != nil {
		return nil, false, err
	}
	if matched, ok := out.(bool); ok && matched {
		return c.result, true, nil
	}
	return nil, false, nil
}
