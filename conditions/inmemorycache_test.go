package conditions

import (
	"testing"
	"time"
)

func TestInMemoryGroupCacheGroups(t *testing.T) {
	cache := NewInMemoryGroupCache(DefaultCacheConfig())

	if _, ok := cache.GetGroup(1); ok {
		t.Fatal("empty cache should miss")
	}

	cache.SetGroup(&DataConditionGroup{ID: 1, LogicType: LogicAll})

	group, ok := cache.GetGroup(1)
	if !ok {
		t.Fatal("GetGroup() should hit after SetGroup()")
	}
	if group.LogicType != LogicAll {
		t.Errorf("LogicType = %s, want %s", group.LogicType, LogicAll)
	}

	group.LogicType = LogicNone
	again, _ := cache.GetGroup(1)
	if again.LogicType != LogicAll {
		t.Error("GetGroup() should return a copy")
	}
}

func TestInMemoryGroupCacheConditionsAreCopied(t *testing.T) {
	cache := NewInMemoryGroupCache(DefaultCacheConfig())

	source := []*DataCondition{{ID: 1, ConditionGroupID: 5, Type: ConditionEqual, Comparison: 1, ConditionResult: "a"}}
	cache.SetConditions(5, source)

	source[0].ConditionResult = "mutated after set"

	cached, ok := cache.GetConditions(5)
	if !ok {
		t.Fatal("GetConditions() should hit after SetConditions()")
	}
	if cached[0].ConditionResult != "a" {
		t.Errorf("cached result = %v, want a", cached[0].ConditionResult)
	}

	cached[0].ConditionResult = "mutated after get"
	again, _ := cache.GetConditions(5)
	if again[0].ConditionResult != "a" {
		t.Error("GetConditions() should return copies")
	}
}

func TestInMemoryGroupCacheEmptyConditionListIsCached(t *testing.T) {
	cache := NewInMemoryGroupCache(DefaultCacheConfig())
	cache.SetConditions(3, nil)

	conditions, ok := cache.GetConditions(3)
	if !ok {
		t.Fatal("an empty condition list should be cached")
	}
	if len(conditions) != 0 {
		t.Errorf("GetConditions() returned %d conditions, want 0", len(conditions))
	}
}

func TestInMemoryGroupCacheInvalidate(t *testing.T) {
	cache := NewInMemoryGroupCache(DefaultCacheConfig())

	for id := int64(1); id <= 3; id++ {
		cache.SetGroup(&DataConditionGroup{ID: id, LogicType: LogicAny})
		cache.SetConditions(id, []*DataCondition{})
	}

	cache.Invalidate(2)
	if _, ok := cache.GetGroup(2); ok {
		t.Error("invalidated group should miss")
	}
	if _, ok := cache.GetConditions(2); ok {
		t.Error("invalidated conditions should miss")
	}
	if _, ok := cache.GetGroup(1); !ok {
		t.Error("other groups should stay cached")
	}

	cache.InvalidateAll()
	if cache.Len() != 0 {
		t.Errorf("Len() after InvalidateAll() = %d, want 0", cache.Len())
	}
}

func TestInMemoryGroupCacheTTL(t *testing.T) {
	cache := NewInMemoryGroupCache(CacheConfig{TTL: 20 * time.Millisecond})

	cache.SetGroup(&DataConditionGroup{ID: 1, LogicType: LogicAll})
	if _, ok := cache.GetGroup(1); !ok {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := cache.GetGroup(1); ok {
		t.Error("expired entry should miss")
	}
}

func TestInMemoryGroupCacheMaxEntries(t *testing.T) {
	cache := NewInMemoryGroupCache(CacheConfig{MaxEntries: 2})

	for id := int64(1); id <= 3; id++ {
		cache.SetGroup(&DataConditionGroup{ID: id, LogicType: LogicAll})
	}

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if _, ok := cache.GetGroup(3); ok {
		t.Error("group beyond capacity should not be cached")
	}

	// Existing entries can still be refreshed at capacity
	cache.SetGroup(&DataConditionGroup{ID: 1, LogicType: LogicNone})
	group, ok := cache.GetGroup(1)
	if !ok || group.LogicType != LogicNone {
		t.Errorf("GetGroup(1) = %+v, %v, want refreshed entry", group, ok)
	}
}
