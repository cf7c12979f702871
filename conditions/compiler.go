package conditions

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
)

// Compiler turns stored DataConditions into evaluable Conditions and keeps
// the compiled form per condition id. An entry is reused only while the
// condition's UpdatedAt is unchanged.
type Compiler struct {
	env       *cel.Env
	costLimit uint64
	compiled  map[int64]compiledCondition
	mu        sync.RWMutex
}

type compiledCondition struct {
	version   time.Time
	condition Condition
}

// NewCompiler creates a compiler. A zero costLimit selects DefaultCELCostLimit.
func NewCompiler(costLimit uint64) (*Compiler, error) {
	env, err := NewCELEnv()
	if err != nil {
		return nil, err
	}
	if costLimit == 0 {
		costLimit = DefaultCELCostLimit
	}
	return &Compiler{
		env:       env,
		costLimit: costLimit,
		compiled:  make(map[int64]compiledCondition),
	}, nil
}

// Compile builds a Condition for dc without touching the compiled set
func (c *Compiler) Compile(dc *DataCondition) (Condition, error) {
	switch dc.Type {
	case ConditionEqual, ConditionNotEqual,
		ConditionGreater, ConditionGreaterOrEqual,
		ConditionLess, ConditionLessOrEqual:
		cond, err := newComparisonCondition(dc.Type, dc.Comparison, dc.ConditionResult)
		if err != nil {
			return nil, err
		}
		return cond, nil
	case ConditionCEL:
		src, ok := dc.Comparison.(string)
		if !ok || src == "" {
			return nil, fmt.Errorf("%w: cel comparison must be a non-empty string", ErrInvalidCondition)
		}
		cond, err := compileCEL(c.env, src, c.costLimit, dc.ConditionResult)
		if err != nil {
			return nil, err
		}
		return cond, nil
	case ConditionExpr:
		src, ok := dc.Comparison.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expr comparison must be a string", ErrInvalidCondition)
		}
		cond, err := compileExpr(src, dc.ConditionResult)
		if err != nil {
			return nil, err
		}
		return cond, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConditionType, dc.Type)
}

// Condition returns the compiled form of dc, compiling it on first use or
// when dc has changed since it was last compiled
func (c *Compiler) Condition(dc *DataCondition) (Condition, error) {
	c.mu.RLock()
	entry, exists := c.compiled[dc.ID]
	c.mu.RUnlock()

	if exists && entry.version.Equal(dc.UpdatedAt) {
		return entry.condition, nil
	}

	cond, err := c.Compile(dc)
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition %d: %w", dc.ID, err)
	}

	c.put(dc, cond)
	return cond, nil
}

func (c *Compiler) put(dc *DataCondition, cond Condition) {
	c.mu.Lock()
	c.compiled[dc.ID] = compiledCondition{version: dc.UpdatedAt, condition: cond}
	c.mu.Unlock()
}

// Forget drops the compiled form of a condition
func (c *Compiler) Forget(conditionID int64) {
	c.mu.Lock()
	delete(c.compiled, conditionID)
	c.mu.Unlock()
}

// Len returns the number of compiled conditions held
func (c *Compiler) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.compiled)
}
