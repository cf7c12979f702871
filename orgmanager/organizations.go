package orgmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Organization owns condition groups
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrganizationStore persists organizations
type OrganizationStore interface {
	Create(ctx context.Context, name string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
}

// ErrInvalidOrganization is returned when an organization fails validation
var ErrInvalidOrganization = errors.New("invalid organization")

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOrganization)
	}
	if len(name) > 200 {
		return fmt.Errorf("%w: name length %d exceeds maximum of 200 characters", ErrInvalidOrganization, len(name))
	}
	return nil
}

// InMemoryOrganizationStore implements OrganizationStore in memory
type InMemoryOrganizationStore struct {
	organizations []*Organization
	mu            sync.RWMutex
}

// NewInMemoryOrganizationStore creates an empty in-memory organization store
func NewInMemoryOrganizationStore() *InMemoryOrganizationStore {
	return &InMemoryOrganizationStore{}
}

// Create adds an organization with the next sequential ID
func (s *InMemoryOrganizationStore) Create(ctx context.Context, name string) (*Organization, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	org := &Organization{
		ID:        int64(len(s.organizations) + 1),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.organizations = append(s.organizations, org)

	out := *org
	return &out, nil
}

// List returns all organizations in creation order
func (s *InMemoryOrganizationStore) List(ctx context.Context) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Organization, len(s.organizations))
	for i, org := range s.organizations {
		o := *org
		out[i] = &o
	}
	return out, nil
}

// PostgresOrganizationStore implements OrganizationStore backed by PostgreSQL
type PostgresOrganizationStore struct {
	db *sql.DB
}

// NewPostgresOrganizationStore creates a PostgreSQL-backed organization store
func NewPostgresOrganizationStore(db *sql.DB) *PostgresOrganizationStore {
	return &PostgresOrganizationStore{db: db}
}

// Create inserts a new organization
func (s *PostgresOrganizationStore) Create(ctx context.Context, name string) (*Organization, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	org := &Organization{Name: name}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, name).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

// List returns all organizations ordered by ID
func (s *PostgresOrganizationStore) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM organizations
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var organizations []*Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		organizations = append(organizations, &org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}
	return organizations, nil
}
