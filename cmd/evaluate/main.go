// Command evaluate checks a JSON value against condition groups defined in a
// YAML file without a database or server.
//
//	evaluate -file groups.yaml -group 1 -value '{"count": 12}'
//	echo 12 | evaluate -file groups.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/liamcoop/conditions/conditions"
	"github.com/liamcoop/conditions/internal/logger"
)

type groupResult struct {
	GroupID   int64                `json:"groupId"`
	LogicType conditions.LogicType `json:"logicType"`
	Triggered bool                 `json:"triggered"`
	Results   []any                `json:"results"`
}

func main() {
	var (
		file     string
		groupID  int64
		rawValue string
		policy   string
	)
	flag.StringVar(&file, "file", "", "YAML group definitions file (required)")
	flag.Int64Var(&groupID, "group", 0, "Group ID to evaluate (default: every group in the file)")
	flag.StringVar(&rawValue, "value", "", "JSON value to evaluate (default: read from stdin)")
	flag.StringVar(&policy, "failure-policy", string(conditions.FailurePropagate), "Condition failure policy: propagate, unmatched")
	flag.Parse()

	if file == "" {
		logger.Fatal("-file is required")
	}

	results, err := run(context.Background(), file, groupID, rawValue, policy, os.Stdin)
	if err != nil {
		logger.Fatal("evaluation failed", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		logger.Fatal("failed to write results", "error", err)
	}
}

func run(ctx context.Context, file string, groupID int64, rawValue, policy string, stdin io.Reader) ([]groupResult, error) {
	failurePolicy, err := conditions.ParseFailurePolicy(policy)
	if err != nil {
		return nil, err
	}

	value, err := readValue(rawValue, stdin)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open definitions: %w", err)
	}
	defer f.Close()

	defs, err := conditions.LoadDefinitions(f)
	if err != nil {
		return nil, err
	}

	processor, err := conditions.NewProcessor(
		conditions.NewInMemoryGroupStore(0),
		nil,
		conditions.WithLogger(logger.Logger),
		conditions.WithFailurePolicy(failurePolicy),
	)
	if err != nil {
		return nil, err
	}

	groups, err := conditions.Seed(ctx, processor, defs)
	if err != nil {
		return nil, err
	}

	results := []groupResult{}
	for _, group := range groups {
		if groupID != 0 && group.ID != groupID {
			continue
		}
		result, err := processor.EvaluateGroup(ctx, group, value)
		if err != nil {
			return nil, err
		}
		results = append(results, groupResult{
			GroupID:   group.ID,
			LogicType: group.LogicType,
			Triggered: result.Triggered,
			Results:   result.Results,
		})
	}

	if groupID != 0 && len(results) == 0 {
		return nil, fmt.Errorf("condition group %d: %w", groupID, conditions.ErrGroupNotFound)
	}
	return results, nil
}

func readValue(raw string, stdin io.Reader) (any, error) {
	if raw == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read value from stdin: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("no value provided")
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("value is not valid JSON: %w", err)
	}
	return value, nil
}
