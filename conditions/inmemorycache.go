package conditions

import (
	"sync"
	"time"
)

// InMemoryGroupCache is a simple map-backed GroupCache.
// When MaxEntries is reached new groups are not cached until something is
// invalidated.
type InMemoryGroupCache struct {
	groups     map[int64]cachedGroup
	conditions map[int64]cachedConditions
	config     CacheConfig
	mu         sync.RWMutex
}

type cachedGroup struct {
	group    DataConditionGroup
	cachedAt time.Time
}

type cachedConditions struct {
	conditions []*DataCondition
	cachedAt   time.Time
}

// NewInMemoryGroupCache creates a new in-memory group cache
func NewInMemoryGroupCache(config CacheConfig) *InMemoryGroupCache {
	return &InMemoryGroupCache{
		groups:     make(map[int64]cachedGroup),
		conditions: make(map[int64]cachedConditions),
		config:     config,
	}
}

func (c *InMemoryGroupCache) expired(cachedAt time.Time) bool {
	return c.config.TTL > 0 && time.Since(cachedAt) > c.config.TTL
}

// GetGroup returns a copy of the cached group
func (c *InMemoryGroupCache) GetGroup(id int64) (*DataConditionGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.groups[id]
	if !ok || c.expired(entry.cachedAt) {
		return nil, false
	}
	group := entry.group
	return &group, true
}

// SetGroup stores a copy of group
func (c *InMemoryGroupCache) SetGroup(group *DataConditionGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.groups[group.ID]; !exists && c.atCapacity(len(c.groups)) {
		return
	}
	c.groups[group.ID] = cachedGroup{group: *group, cachedAt: time.Now()}
}

// GetConditions returns a copy of the cached condition list
func (c *InMemoryGroupCache) GetConditions(groupID int64) ([]*DataCondition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.conditions[groupID]
	if !ok || c.expired(entry.cachedAt) {
		return nil, false
	}
	return copyConditions(entry.conditions), true
}

// SetConditions stores a copy of a group's conditions
func (c *InMemoryGroupCache) SetConditions(groupID int64, conditions []*DataCondition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.conditions[groupID]; !exists && c.atCapacity(len(c.conditions)) {
		return
	}
	c.conditions[groupID] = cachedConditions{
		conditions: copyConditions(conditions),
		cachedAt:   time.Now(),
	}
}

// Invalidate drops a group and its conditions
func (c *InMemoryGroupCache) Invalidate(groupID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.groups, groupID)
	delete(c.conditions, groupID)
}

// InvalidateAll clears the cache
func (c *InMemoryGroupCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.groups = make(map[int64]cachedGroup)
	c.conditions = make(map[int64]cachedConditions)
}

// Len returns the number of cached groups
func (c *InMemoryGroupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups)
}

func (c *InMemoryGroupCache) atCapacity(n int) bool {
	return c.config.MaxEntries > 0 && int64(n) >= c.config.MaxEntries
}

// copyConditions copies the slice and each element so callers can't mutate cached rows
func copyConditions(conditions []*DataCondition) []*DataCondition {
	out := make([]*DataCondition, len(conditions))
	for i, cond := range conditions {
		c := *cond
		out[i] = &c
	}
	return out
}
