package conditions

import "time"

// GroupCache memoizes group and condition lookups by group ID.
// Implementations must be safe for concurrent use. Writers call Invalidate
// whenever a group or any of its conditions change.
type GroupCache interface {
	// GetGroup returns the cached group, or false on a miss or expiry
	GetGroup(id int64) (*DataConditionGroup, bool)

	SetGroup(group *DataConditionGroup)

	// GetConditions returns the cached conditions of a group, or false on a miss or expiry
	GetConditions(groupID int64) ([]*DataCondition, bool)

	SetConditions(groupID int64, conditions []*DataCondition)

	// Invalidate drops the group and its conditions
	Invalidate(groupID int64)

	// InvalidateAll clears the cache
	InvalidateAll()
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (manual invalidation only)
	TTL time.Duration

	// MaxEntries bounds the number of cached groups. 0 means unbounded for
	// the in-memory cache and DefaultMaxEntries for ristretto.
	MaxEntries int64
}

// DefaultMaxEntries is used by caches that require a bound
const DefaultMaxEntries int64 = 10000

// DefaultCacheConfig returns defaults for group caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        0, // No TTL - only invalidate on writes
		MaxEntries: 0,
	}
}
