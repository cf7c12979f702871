package conditions

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// GroupStore persists condition groups and their conditions
type GroupStore interface {
	// AddGroup stores a new group, assigning an ID when group.ID is zero
	AddGroup(ctx context.Context, group *DataConditionGroup) error

	// GetGroup returns ErrGroupNotFound when the group does not exist
	GetGroup(ctx context.Context, id int64) (*DataConditionGroup, error)

	UpdateGroup(ctx context.Context, group *DataConditionGroup) error

	// DeleteGroup removes the group and all of its conditions
	DeleteGroup(ctx context.Context, id int64) error

	ListGroups(ctx context.Context) ([]*DataConditionGroup, error)

	// AddCondition stores a new condition in an existing group
	AddCondition(ctx context.Context, condition *DataCondition) error

	GetCondition(ctx context.Context, id int64) (*DataCondition, error)

	UpdateCondition(ctx context.Context, condition *DataCondition) error

	DeleteCondition(ctx context.Context, id int64) error

	// ListConditions returns a group's conditions in ascending ID order
	ListConditions(ctx context.Context, groupID int64) ([]*DataCondition, error)
}

// InMemoryGroupStore implements GroupStore using in-memory maps.
// Safe for concurrent use.
type InMemoryGroupStore struct {
	organizationID  int64
	groups          map[int64]*DataConditionGroup
	conditions      map[int64]*DataCondition
	nextGroupID     int64
	nextConditionID int64
	mu              sync.RWMutex
}

// NewInMemoryGroupStore creates an in-memory group store for one organization
func NewInMemoryGroupStore(organizationID int64) *InMemoryGroupStore {
	return &InMemoryGroupStore{
		organizationID: organizationID,
		groups:         make(map[int64]*DataConditionGroup),
		conditions:     make(map[int64]*DataCondition),
	}
}

// AddGroup adds a new group to the store and sets its timestamps
func (s *InMemoryGroupStore) AddGroup(ctx context.Context, group *DataConditionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == 0 {
		s.nextGroupID++
		for s.groups[s.nextGroupID] != nil {
			s.nextGroupID++
		}
		group.ID = s.nextGroupID
	} else if _, exists := s.groups[group.ID]; exists {
		return fmt.Errorf("condition group %d %w", group.ID, ErrDuplicate)
	}

	now := time.Now()
	group.OrganizationID = s.organizationID
	group.CreatedAt = now
	group.UpdatedAt = now

	stored := *group
	s.groups[group.ID] = &stored
	return nil
}

// GetGroup returns a copy of the stored group
func (s *InMemoryGroupStore) GetGroup(ctx context.Context, id int64) (*DataConditionGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, exists := s.groups[id]
	if !exists {
		return nil, fmt.Errorf("condition group %d: %w", id, ErrGroupNotFound)
	}
	out := *group
	return &out, nil
}

// UpdateGroup replaces a group, preserving CreatedAt
func (s *InMemoryGroupStore) UpdateGroup(ctx context.Context, group *DataConditionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.groups[group.ID]
	if !exists {
		return fmt.Errorf("condition group %d: %w", group.ID, ErrGroupNotFound)
	}

	group.OrganizationID = s.organizationID
	group.CreatedAt = existing.CreatedAt
	group.UpdatedAt = time.Now()

	stored := *group
	s.groups[group.ID] = &stored
	return nil
}

// DeleteGroup removes a group and its conditions
func (s *InMemoryGroupStore) DeleteGroup(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[id]; !exists {
		return fmt.Errorf("condition group %d: %w", id, ErrGroupNotFound)
	}

	delete(s.groups, id)
	for cid, c := range s.conditions {
		if c.ConditionGroupID == id {
			delete(s.conditions, cid)
		}
	}
	return nil
}

// ListGroups returns all groups in ascending ID order
func (s *InMemoryGroupStore) ListGroups(ctx context.Context) ([]*DataConditionGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*DataConditionGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out := *g
		groups = append(groups, &out)
	}
	slices.SortFunc(groups, func(a, b *DataConditionGroup) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return groups, nil
}

// AddCondition adds a condition to an existing group
func (s *InMemoryGroupStore) AddCondition(ctx context.Context, condition *DataCondition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[condition.ConditionGroupID]; !exists {
		return fmt.Errorf("condition group %d: %w", condition.ConditionGroupID, ErrGroupNotFound)
	}

	if condition.ID == 0 {
		s.nextConditionID++
		for s.conditions[s.nextConditionID] != nil {
			s.nextConditionID++
		}
		condition.ID = s.nextConditionID
	} else if _, exists := s.conditions[condition.ID]; exists {
		return fmt.Errorf("condition %d %w", condition.ID, ErrDuplicate)
	}

	now := time.Now()
	condition.CreatedAt = now
	condition.UpdatedAt = now

	stored := *condition
	s.conditions[condition.ID] = &stored
	return nil
}

// GetCondition returns a copy of the stored condition
func (s *InMemoryGroupStore) GetCondition(ctx context.Context, id int64) (*DataCondition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	condition, exists := s.conditions[id]
	if !exists {
		return nil, fmt.Errorf("condition %d: %w", id, ErrConditionNotFound)
	}
	out := *condition
	return &out, nil
}

// UpdateCondition replaces a condition, preserving CreatedAt
func (s *InMemoryGroupStore) UpdateCondition(ctx context.Context, condition *DataCondition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.conditions[condition.ID]
	if !exists {
		return fmt.Errorf("condition %d: %w", condition.ID, ErrConditionNotFound)
	}
	if _, exists := s.groups[condition.ConditionGroupID]; !exists {
		return fmt.Errorf("condition group %d: %w", condition.ConditionGroupID, ErrGroupNotFound)
	}

	condition.CreatedAt = existing.CreatedAt
	condition.UpdatedAt = nextTimestamp(existing.UpdatedAt)

	stored := *condition
	s.conditions[condition.ID] = &stored
	return nil
}

// DeleteCondition removes a condition
func (s *InMemoryGroupStore) DeleteCondition(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conditions[id]; !exists {
		return fmt.Errorf("condition %d: %w", id, ErrConditionNotFound)
	}

	delete(s.conditions, id)
	return nil
}

// ListConditions returns a group's conditions ordered by ID
func (s *InMemoryGroupStore) ListConditions(ctx context.Context, groupID int64) ([]*DataCondition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conditions []*DataCondition
	for _, c := range s.conditions {
		if c.ConditionGroupID == groupID {
			out := *c
			conditions = append(conditions, &out)
		}
	}
	slices.SortFunc(conditions, func(a, b *DataCondition) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return conditions, nil
}

// nextTimestamp returns now, or a moment after prev when the clock has not
// advanced, so compiled conditions keyed by UpdatedAt are always refreshed
func nextTimestamp(prev time.Time) time.Time {
	now := time.Now()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}
