package orgmanager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/liamcoop/conditions/conditions"
)

// ErrOrganizationNotFound is returned for organizations without a processor
var ErrOrganizationNotFound = errors.New("organization not found")

// StoreFactory returns the group store scoped to one organization
type StoreFactory func(organizationID int64) conditions.GroupStore

// CacheFactory returns a fresh cache for one organization's processor
type CacheFactory func() (conditions.GroupCache, error)

// Manager keeps one condition processor per organization
type Manager struct {
	processors map[int64]*conditions.Processor
	caches     map[int64]conditions.GroupCache
	newStore   StoreFactory
	newCache   CacheFactory
	opts       []conditions.Option
	mu         sync.RWMutex
}

// NewManager creates a manager. A nil newCache gives every organization an
// unbounded in-memory cache.
func NewManager(newStore StoreFactory, newCache CacheFactory, opts ...conditions.Option) *Manager {
	if newCache == nil {
		newCache = func() (conditions.GroupCache, error) {
			return conditions.NewInMemoryGroupCache(conditions.DefaultCacheConfig()), nil
		}
	}
	return &Manager{
		processors: make(map[int64]*conditions.Processor),
		caches:     make(map[int64]conditions.GroupCache),
		newStore:   newStore,
		newCache:   newCache,
		opts:       opts,
	}
}

// LoadAll creates processors for every organization in orgs
func (m *Manager) LoadAll(ctx context.Context, orgs OrganizationStore) error {
	organizations, err := orgs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch organizations: %w", err)
	}

	for _, org := range organizations {
		if err := m.CreateOrganization(org.ID); err != nil {
			return fmt.Errorf("failed to initialize organization %d: %w", org.ID, err)
		}
	}
	return nil
}

// CreateOrganization registers a processor for the organization.
// Registering an organization twice replaces its processor.
func (m *Manager) CreateOrganization(organizationID int64) error {
	cache, err := m.newCache()
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	processor, err := conditions.NewProcessor(m.newStore(organizationID), cache, m.opts...)
	if err != nil {
		closeCache(cache)
		return fmt.Errorf("failed to create processor: %w", err)
	}

	m.mu.Lock()
	previous := m.caches[organizationID]
	m.processors[organizationID] = processor
	m.caches[organizationID] = cache
	m.mu.Unlock()

	closeCache(previous)
	return nil
}

// GetProcessor retrieves the processor for an organization
func (m *Manager) GetProcessor(organizationID int64) (*conditions.Processor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	processor, exists := m.processors[organizationID]
	if !exists {
		return nil, fmt.Errorf("organization %d: %w", organizationID, ErrOrganizationNotFound)
	}
	return processor, nil
}

// ListOrganizations returns the IDs of all loaded organizations in ascending order
func (m *Manager) ListOrganizations() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.processors))
	for id := range m.processors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DeleteOrganization drops an organization's processor.
// Stored groups are left untouched.
func (m *Manager) DeleteOrganization(organizationID int64) error {
	m.mu.Lock()
	if _, exists := m.processors[organizationID]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("organization %d: %w", organizationID, ErrOrganizationNotFound)
	}

	cache := m.caches[organizationID]
	delete(m.processors, organizationID)
	delete(m.caches, organizationID)
	m.mu.Unlock()

	closeCache(cache)
	return nil
}

// closeCache stops caches that run background work, such as ristretto's
func closeCache(cache conditions.GroupCache) {
	if c, ok := cache.(interface{ Close() }); ok {
		c.Close()
	}
}
