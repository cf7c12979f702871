package conditions

import (
	"errors"
	"testing"
)

func TestCELCondition(t *testing.T) {
	env, err := NewCELEnv()
	if err != nil {
		t.Fatalf("NewCELEnv() failed: %v", err)
	}

	testCases := []struct {
		name       string
		expression string
		value      any
		want       bool
	}{
		{"integer comparison", `value > 10`, 12, true},
		{"integer comparison miss", `value > 10`, 3, false},
		{"float comparison", `value >= 2.5`, 2.5, true},
		{"map field", `value.count >= 3`, map[string]any{"count": 5}, true},
		{"map string field", `value.level == "error"`, map[string]any{"level": "warning"}, false},
		{"has macro", `has(value.tags) && "urgent" in value.tags`, map[string]any{"tags": []any{"urgent"}}, true},
		{"string function", `value.startsWith("prod-")`, "prod-eu", true},
		{"non boolean output", `value + 1`, 1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cond, err := compileCEL(env, tc.expression, DefaultCELCostLimit, "payload")
			if err != nil {
				t.Fatalf("compileCEL(%q) failed: %v", tc.expression, err)
			}

			payload, matched, err := cond.Evaluate(tc.value)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if matched != tc.want {
				t.Errorf("%s with %v = %v, want %v", tc.expression, tc.value, matched, tc.want)
			}
			if matched && payload != "payload" {
				t.Errorf("payload = %v, want payload", payload)
			}
		})
	}
}

func TestCELConditionCompileError(t *testing.T) {
	env, err := NewCELEnv()
	if err != nil {
		t.Fatalf("NewCELEnv() failed: %v", err)
	}

	for _, expression := range []string{`value >`, `unknown_var > 1`, `value.(`} {
		if _, err := compileCEL(env, expression, DefaultCELCostLimit, "x"); !errors.Is(err, ErrInvalidCondition) {
			t.Errorf("compileCEL(%q) error = %v, want ErrInvalidCondition", expression, err)
		}
	}
}

func TestCELConditionRuntimeError(t *testing.T) {
	env, err := NewCELEnv()
	if err != nil {
		t.Fatalf("NewCELEnv() failed: %v", err)
	}

	cond, err := compileCEL(env, `value.missing > 1`, DefaultCELCostLimit, "x")
	if err != nil {
		t.Fatalf("compileCEL() failed: %v", err)
	}

	_, matched, err := cond.Evaluate(map[string]any{"present": 1})
	if err == nil {
		t.Fatal("Evaluate() should fail on a missing key")
	}
	if matched {
		t.Error("failed condition should not match")
	}
}

func TestCELConditionCostLimit(t *testing.T) {
	env, err := NewCELEnv()
	if err != nil {
		t.Fatalf("NewCELEnv() failed: %v", err)
	}

	cond, err := compileCEL(env, `value.all(x, x > 0)`, 10, "x")
	if err != nil {
		t.Fatalf("compileCEL() failed: %v", err)
	}

	values := make([]any, 1000)
	for i := range values {
		values[i] = i + 1
	}

	if _, _, err := cond.Evaluate(values); err == nil {
		t.Error("Evaluate() should fail once the cost limit is exceeded")
	}
}

func TestExprCondition(t *testing.T) {
	testCases := []struct {
		name       string
		expression string
		value      any
		want       bool
	}{
		{"integer comparison", `value > 10`, 12, true},
		{"integer comparison miss", `value > 10`, 3, false},
		{"map field", `value.count >= 3`, map[string]any{"count": 5}, true},
		{"string operator", `value startsWith "prod-"`, "prod-eu", true},
		{"membership", `"urgent" in value.tags`, map[string]any{"tags": []any{"low"}}, false},
		{"non boolean output", `value + 1`, 1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cond, err := compileExpr(tc.expression, "payload")
			if err != nil {
				t.Fatalf("compileExpr(%q) failed: %v", tc.expression, err)
			}

			payload, matched, err := cond.Evaluate(tc.value)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if matched != tc.want {
				t.Errorf("%s with %v = %v, want %v", tc.expression, tc.value, matched, tc.want)
			}
			if matched && payload != "payload" {
				t.Errorf("payload = %v, want payload", payload)
			}
		})
	}
}

func TestExprConditionCompileError(t *testing.T) {
	for _, expression := range []string{``, `   `, `value >`, `(value`} {
		if _, err := compileExpr(expression, "x"); !errors.Is(err, ErrInvalidCondition) {
			t.Errorf("compileExpr(%q) error = %v, want ErrInvalidCondition", expression, err)
		}
	}
}

func TestExprConditionRuntimeError(t *testing.T) {
	cond, err := compileExpr(`len(value) > 0`, "x")
	if err != nil {
		t.Fatalf("compileExpr() failed: %v", err)
	}

	_, matched, err := cond.Evaluate(42)
	if err == nil {
		t.Fatal("Evaluate() should fail for len of an int")
	}
	if matched {
		t.Error("failed condition should not match")
	}
}
