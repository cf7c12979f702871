package conditions

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoGroupCache is a bounded GroupCache backed by ristretto.
// Writes are buffered: a Set may not be visible to Get until Wait returns,
// and ristretto may drop entries under its admission policy. Both only
// cause extra store lookups.
type RistrettoGroupCache struct {
	groups     *ristretto.Cache[int64, DataConditionGroup]
	conditions *ristretto.Cache[int64, []*DataCondition]
	config     CacheConfig
}

// NewRistrettoGroupCache creates a ristretto-backed cache holding up to
// config.MaxEntries groups (DefaultMaxEntries when unset)
func NewRistrettoGroupCache(config CacheConfig) (*RistrettoGroupCache, error) {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}

	groups, err := ristretto.NewCache(&ristretto.Config[int64, DataConditionGroup]{
		NumCounters: config.MaxEntries * 10,
		MaxCost:     config.MaxEntries,
		BufferItems: 64,

		// Cost counts entries, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group cache: %w", err)
	}

	conditions, err := ristretto.NewCache(&ristretto.Config[int64, []*DataCondition]{
		NumCounters: config.MaxEntries * 10,
		MaxCost:     config.MaxEntries,
		BufferItems: 64,

		// Cost counts entries, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		groups.Close()
		return nil, fmt.Errorf("failed to create condition cache: %w", err)
	}

	return &RistrettoGroupCache{
		groups:     groups,
		conditions: conditions,
		config:     config,
	}, nil
}

func (c *RistrettoGroupCache) GetGroup(id int64) (*DataConditionGroup, bool) {
	group, ok := c.groups.Get(id)
	if !ok {
		return nil, false
	}
	return &group, true
}

func (c *RistrettoGroupCache) SetGroup(group *DataConditionGroup) {
	c.groups.SetWithTTL(group.ID, *group, 1, c.config.TTL)
}

func (c *RistrettoGroupCache) GetConditions(groupID int64) ([]*DataCondition, bool) {
	conditions, ok := c.conditions.Get(groupID)
	if !ok {
		return nil, false
	}
	return copyConditions(conditions), true
}

func (c *RistrettoGroupCache) SetConditions(groupID int64, conditions []*DataCondition) {
	c.conditions.SetWithTTL(groupID, copyConditions(conditions), 1, c.config.TTL)
}

func (c *RistrettoGroupCache) Invalidate(groupID int64) {
	c.groups.Del(groupID)
	c.conditions.Del(groupID)
}

func (c *RistrettoGroupCache) InvalidateAll() {
	c.groups.Clear()
	c.conditions.Clear()
}

// Wait blocks until buffered writes have been applied
func (c *RistrettoGroupCache) Wait() {
	c.groups.Wait()
	c.conditions.Wait()
}

// Close stops ristretto's background goroutines
func (c *RistrettoGroupCache) Close() {
	c.groups.Close()
	c.conditions.Close()
}
