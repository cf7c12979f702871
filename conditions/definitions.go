package conditions

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// GroupDefinition is the file representation of a group and its conditions
type GroupDefinition struct {
	ID         int64                 `yaml:"id,omitempty"`
	LogicType  LogicType             `yaml:"logic_type"`
	Conditions []ConditionDefinition `yaml:"conditions"`
}

// ConditionDefinition is the file representation of a condition
type ConditionDefinition struct {
	ID         int64         `yaml:"id,omitempty"`
	Type       ConditionType `yaml:"type"`
	Comparison any           `yaml:"comparison"`
	Result     any           `yaml:"result"`
}

type definitionFile struct {
	Groups []GroupDefinition `yaml:"groups"`
}

// LoadDefinitions parses a YAML document of the form
//
//	groups:
//	  - logic_type: any-short
//	    conditions:
//	      - type: gte
//	        comparison: 100
//	        result: high
func LoadDefinitions(r io.Reader) ([]GroupDefinition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file definitionFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse group definitions: %w", err)
	}

	for i, g := range file.Groups {
		if !g.LogicType.Valid() {
			return nil, fmt.Errorf("group %d: %w: %q", i, ErrUnknownLogicType, g.LogicType)
		}
		for j, c := range g.Conditions {
			if !c.Type.Valid() {
				return nil, fmt.Errorf("group %d condition %d: %w: %q", i, j, ErrUnknownConditionType, c.Type)
			}
		}
	}

	return file.Groups, nil
}

// Seed creates the defined groups and conditions through the processor's
// write path and returns the created groups in definition order
func Seed(ctx context.Context, p *Processor, defs []GroupDefinition) ([]*DataConditionGroup, error) {
	groups := make([]*DataConditionGroup, 0, len(defs))
	for _, def := range defs {
		group := &DataConditionGroup{ID: def.ID, LogicType: def.LogicType}
		if err := p.AddGroup(ctx, group); err != nil {
			return groups, fmt.Errorf("failed to seed condition group: %w", err)
		}

		for _, c := range def.Conditions {
			condition := &DataCondition{
				ID:               c.ID,
				ConditionGroupID: group.ID,
				Type:             c.Type,
				Comparison:       c.Comparison,
				ConditionResult:  c.Result,
			}
			if err := p.AddCondition(ctx, condition); err != nil {
				return groups, fmt.Errorf("failed to seed condition for group %d: %w", group.ID, err)
			}
		}

		groups = append(groups, group)
	}
	return groups, nil
}
