package conditions

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const sampleDefinitions = `
groups:
  - id: 1
    logic_type: any-short
    conditions:
      - type: gte
        comparison: 100
        result: high
      - type: gte
        comparison: 10
        result: medium
  - logic_type: none
    conditions:
      - type: cel
        comparison: value < 0
        result: negative
`

func TestLoadDefinitions(t *testing.T) {
	defs, err := LoadDefinitions(strings.NewReader(sampleDefinitions))
	if err != nil {
		t.Fatalf("LoadDefinitions() failed: %v", err)
	}

	if len(defs) != 2 {
		t.Fatalf("LoadDefinitions() returned %d groups, want 2", len(defs))
	}
	if defs[0].ID != 1 || defs[0].LogicType != LogicAnyShortCircuit {
		t.Errorf("first group = %+v", defs[0])
	}
	if len(defs[0].Conditions) != 2 {
		t.Fatalf("first group has %d conditions, want 2", len(defs[0].Conditions))
	}
	if defs[0].Conditions[0].Comparison != 100 || defs[0].Conditions[0].Result != "high" {
		t.Errorf("first condition = %+v", defs[0].Conditions[0])
	}
	if defs[1].Conditions[0].Type != ConditionCEL {
		t.Errorf("second group condition type = %s, want cel", defs[1].Conditions[0].Type)
	}
}

func TestLoadDefinitionsEmpty(t *testing.T) {
	defs, err := LoadDefinitions(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadDefinitions() failed: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("LoadDefinitions() returned %d groups, want 0", len(defs))
	}
}

func TestLoadDefinitionsErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"unknown logic type", "groups:\n  - logic_type: most\n", ErrUnknownLogicType},
		{"unknown condition type", "groups:\n  - logic_type: all\n    conditions:\n      - type: regex\n        comparison: x\n        result: y\n", ErrUnknownConditionType},
		{"unknown field", "groups:\n  - logic_type: all\n    priority: 3\n", nil},
		{"malformed yaml", "groups: [", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadDefinitions(strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("LoadDefinitions() should fail")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("LoadDefinitions() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	processor := newTestProcessor(t, NewInMemoryGroupStore(1))

	defs, err := LoadDefinitions(strings.NewReader(sampleDefinitions))
	if err != nil {
		t.Fatalf("LoadDefinitions() failed: %v", err)
	}

	groups, err := Seed(ctx, processor, defs)
	if err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Seed() created %d groups, want 2", len(groups))
	}
	if groups[0].ID != 1 {
		t.Errorf("first group ID = %d, want 1", groups[0].ID)
	}

	result, err := processor.Process(ctx, 1, 50)
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if !result.Triggered || len(result.Results) != 1 || result.Results[0] != "medium" {
		t.Errorf("Process(50) = %+v, want triggered with [medium]", result)
	}

	result, err = processor.Process(ctx, groups[1].ID, 5)
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if !result.Triggered {
		t.Errorf("none group with non-negative value should trigger, got %+v", result)
	}
}

func TestSeedStopsOnInvalidCondition(t *testing.T) {
	ctx := context.Background()
	processor := newTestProcessor(t, NewInMemoryGroupStore(1))

	defs := []GroupDefinition{{
		LogicType: LogicAll,
		Conditions: []ConditionDefinition{
			{Type: ConditionCEL, Comparison: "value >", Result: "x"},
		},
	}}

	if _, err := Seed(ctx, processor, defs); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("Seed() error = %v, want ErrInvalidCondition", err)
	}
}
