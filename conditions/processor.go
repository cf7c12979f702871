package conditions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/liamcoop/conditions/internal/logger"
	"github.com/liamcoop/conditions/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// FailurePolicy decides what happens when a single condition fails to evaluate
type FailurePolicy string

const (
	// FailurePropagate aborts the group evaluation and returns the error
	FailurePropagate FailurePolicy = "propagate"
	// FailureUnmatched logs the error and treats the condition as not matched
	FailureUnmatched FailurePolicy = "unmatched"
)

// ParseFailurePolicy converts a string into a FailurePolicy
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case FailurePropagate, FailureUnmatched:
		return p, nil
	}
	return "", fmt.Errorf("unknown failure policy %q (must be propagate or unmatched)", s)
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger; slog.Default() is used otherwise
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithMetrics records evaluation metrics on c
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Processor) { p.metrics = c }
}

// WithCELCostLimit bounds the cost of each cel condition
func WithCELCostLimit(limit uint64) Option {
	return func(p *Processor) { p.celCostLimit = limit }
}

// WithFailurePolicy sets how condition failures are handled
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(p *Processor) { p.failurePolicy = policy }
}

// Processor evaluates condition groups by ID against input values.
// Group and condition lookups go through the cache; every write made through
// the Processor invalidates the affected groups. Safe for concurrent use.
type Processor struct {
	store    GroupStore
	cache    GroupCache
	compiler *Compiler
	loads    singleflight.Group

	// generations is bumped on every invalidation so loads that started
	// before a write do not repopulate the cache with stale rows
	generations map[int64]uint64
	genMu       sync.Mutex

	logger        *slog.Logger
	metrics       *metrics.Collector
	celCostLimit  uint64
	failurePolicy FailurePolicy
}

// NewProcessor creates a processor over store. A nil cache selects an
// unbounded in-memory cache.
func NewProcessor(store GroupStore, cache GroupCache, opts ...Option) (*Processor, error) {
	if store == nil {
		return nil, fmt.Errorf("group store is required")
	}
	if cache == nil {
		cache = NewInMemoryGroupCache(DefaultCacheConfig())
	}

	p := &Processor{
		store:         store,
		cache:         cache,
		generations:   make(map[int64]uint64),
		logger:        slog.Default(),
		failurePolicy: FailurePropagate,
	}
	for _, opt := range opts {
		opt(p)
	}

	if _, err := ParseFailurePolicy(string(p.failurePolicy)); err != nil {
		return nil, err
	}

	compiler, err := NewCompiler(p.celCostLimit)
	if err != nil {
		return nil, err
	}
	p.compiler = compiler

	return p, nil
}

// Process looks up a group and evaluates it. A missing group is not an
// error: it yields an untriggered result.
func (p *Processor) Process(ctx context.Context, groupID int64, value any) (ProcessedResult, error) {
	group, err := p.Group(ctx, groupID)
	if errors.Is(err, ErrGroupNotFound) {
		p.metrics.RecordGroupNotFound()
		p.logger.Debug("condition group not found", "group_id", groupID)
		return notTriggered(), nil
	}
	if err != nil {
		return notTriggered(), err
	}

	return p.EvaluateGroup(ctx, group, value)
}

// EvaluateGroup evaluates group's conditions, in ID order, against value
func (p *Processor) EvaluateGroup(ctx context.Context, group *DataConditionGroup, value any) (ProcessedResult, error) {
	start := time.Now()

	rows, err := p.Conditions(ctx, group.ID)
	if err != nil {
		return notTriggered(), err
	}

	conditions := make([]Condition, len(rows))
	for i, dc := range rows {
		cond, err := p.compiler.Condition(dc)
		if err != nil {
			cond = failedCondition(err)
		}
		conditions[i] = p.instrument(ctx, group.ID, dc, cond)
	}

	result, err := Evaluate(group.LogicType, conditions, value)
	if err != nil {
		return result, fmt.Errorf("failed to evaluate condition group %d: %w", group.ID, err)
	}

	p.metrics.RecordGroupEvaluation(string(group.LogicType), result.Triggered, time.Since(start))
	p.logger.Debug("condition group evaluated",
		"group_id", group.ID,
		"logic_type", group.LogicType,
		"conditions", len(conditions),
		"triggered", result.Triggered,
		"results", len(result.Results),
	)

	return result, nil
}

// instrument wraps a compiled condition with logging, metrics and the failure policy
func (p *Processor) instrument(ctx context.Context, groupID int64, dc *DataCondition, cond Condition) Condition {
	conditionType := string(dc.Type)
	return ConditionFunc(func(value any) (any, bool, error) {
		payload, matched, err := cond.Evaluate(value)
		if err != nil {
			p.metrics.RecordConditionError(conditionType)
			err = fmt.Errorf("condition %d (%s): %w", dc.ID, dc.Type, err)
			if p.failurePolicy == FailureUnmatched {
				p.logger.Warn("condition failed, treating as unmatched",
					"group_id", groupID, "condition_id", dc.ID, "error", err)
				return nil, false, nil
			}
			return nil, false, err
		}

		p.metrics.RecordConditionEvaluation(conditionType, matched)
		p.logger.Log(ctx, logger.LevelTrace, "condition evaluated",
			"group_id", groupID, "condition_id", dc.ID, "type", conditionType, "matched", matched)
		return payload, matched, nil
	})
}

func failedCondition(err error) Condition {
	return ConditionFunc(func(any) (any, bool, error) {
		return nil, false, err
	})
}

// Group returns a group through the cache
func (p *Processor) Group(ctx context.Context, id int64) (*DataConditionGroup, error) {
	if group, ok := p.cache.GetGroup(id); ok {
		p.metrics.RecordCacheLookup("group", true)
		return group, nil
	}
	p.metrics.RecordCacheLookup("group", false)

	gen := p.generation(id)
	v, err := p.load(ctx, loadKey("group", id, gen), func(ctx context.Context) (any, error) {
		group, err := p.store.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		p.ifCurrent(id, gen, func() { p.cache.SetGroup(group) })
		return group, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a load each get their own copy
	group := *v.(*DataConditionGroup)
	return &group, nil
}

// Conditions returns a group's conditions through the cache
func (p *Processor) Conditions(ctx context.Context, groupID int64) ([]*DataCondition, error) {
	if conditions, ok := p.cache.GetConditions(groupID); ok {
		p.metrics.RecordCacheLookup("conditions", true)
		return conditions, nil
	}
	p.metrics.RecordCacheLookup("conditions", false)

	gen := p.generation(groupID)
	v, err := p.load(ctx, loadKey("conditions", groupID, gen), func(ctx context.Context) (any, error) {
		conditions, err := p.store.ListConditions(ctx, groupID)
		if err != nil {
			return nil, err
		}
		p.ifCurrent(groupID, gen, func() { p.cache.SetConditions(groupID, conditions) })
		return conditions, nil
	})
	if err != nil {
		return nil, err
	}

	return copyConditions(v.([]*DataCondition)), nil
}

// load collapses concurrent store reads for key. The shared read is detached
// from the cancellation of whichever caller started it; each caller stops
// waiting when its own ctx is done.
func (p *Processor) load(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := p.loads.DoChan(key, func() (any, error) {
		return fn(loadCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func loadKey(kind string, id int64, gen uint64) string {
	return kind + ":" + strconv.FormatInt(id, 10) + ":" + strconv.FormatUint(gen, 10)
}

func (p *Processor) generation(groupID int64) uint64 {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	return p.generations[groupID]
}

// ifCurrent runs fill only if the group has not been invalidated since gen
func (p *Processor) ifCurrent(groupID int64, gen uint64, fill func()) {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	if p.generations[groupID] == gen {
		fill()
	}
}

// Invalidate drops cached rows for a group. Writers that change groups or
// conditions without going through the Processor must call it.
func (p *Processor) Invalidate(groupID int64) {
	p.genMu.Lock()
	defer p.genMu.Unlock()

	p.generations[groupID]++
	p.cache.Invalidate(groupID)
}

// ListGroups returns every group from the store
func (p *Processor) ListGroups(ctx context.Context) ([]*DataConditionGroup, error) {
	return p.store.ListGroups(ctx)
}

// GetCondition returns a single condition from the store
func (p *Processor) GetCondition(ctx context.Context, id int64) (*DataCondition, error) {
	return p.store.GetCondition(ctx, id)
}

// AddGroup validates and stores a new group
func (p *Processor) AddGroup(ctx context.Context, group *DataConditionGroup) error {
	if err := ValidateGroup(group); err != nil {
		return fmt.Errorf("condition group validation failed: %w", err)
	}
	if err := p.store.AddGroup(ctx, group); err != nil {
		return err
	}

	p.Invalidate(group.ID)
	return nil
}

// UpdateGroup validates and stores a group's new logic type
func (p *Processor) UpdateGroup(ctx context.Context, group *DataConditionGroup) error {
	if err := ValidateGroup(group); err != nil {
		return fmt.Errorf("condition group validation failed: %w", err)
	}
	if err := p.store.UpdateGroup(ctx, group); err != nil {
		return err
	}

	p.Invalidate(group.ID)
	return nil
}

// DeleteGroup removes a group together with its conditions
func (p *Processor) DeleteGroup(ctx context.Context, groupID int64) error {
	conditions, err := p.store.ListConditions(ctx, groupID)
	if err != nil {
		return err
	}
	if err := p.store.DeleteGroup(ctx, groupID); err != nil {
		return err
	}

	for _, c := range conditions {
		p.compiler.Forget(c.ID)
	}
	p.Invalidate(groupID)
	return nil
}

// AddCondition validates, compiles and stores a new condition
func (p *Processor) AddCondition(ctx context.Context, condition *DataCondition) error {
	cond, err := p.checkCondition(condition)
	if err != nil {
		return err
	}
	if err := p.store.AddCondition(ctx, condition); err != nil {
		return err
	}

	p.compiler.put(condition, cond)
	p.Invalidate(condition.ConditionGroupID)
	return nil
}

// UpdateCondition validates, recompiles and stores a condition. Moving a
// condition to another group invalidates both groups.
func (p *Processor) UpdateCondition(ctx context.Context, condition *DataCondition) error {
	existing, err := p.store.GetCondition(ctx, condition.ID)
	if err != nil {
		return err
	}

	cond, err := p.checkCondition(condition)
	if err != nil {
		return err
	}
	if err := p.store.UpdateCondition(ctx, condition); err != nil {
		return err
	}

	p.compiler.put(condition, cond)
	p.Invalidate(existing.ConditionGroupID)
	if existing.ConditionGroupID != condition.ConditionGroupID {
		p.Invalidate(condition.ConditionGroupID)
	}
	return nil
}

// DeleteCondition removes a condition
func (p *Processor) DeleteCondition(ctx context.Context, conditionID int64) error {
	existing, err := p.store.GetCondition(ctx, conditionID)
	if err != nil {
		return err
	}
	if err := p.store.DeleteCondition(ctx, conditionID); err != nil {
		return err
	}

	p.compiler.Forget(conditionID)
	p.Invalidate(existing.ConditionGroupID)
	return nil
}

func (p *Processor) checkCondition(condition *DataCondition) (Condition, error) {
	if err := ValidateCondition(condition); err != nil {
		return nil, fmt.Errorf("condition validation failed: %w", err)
	}
	cond, err := p.compiler.Compile(condition)
	if err != nil {
		return nil, fmt.Errorf("condition validation failed: %w", err)
	}
	return cond, nil
}
