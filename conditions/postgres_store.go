package conditions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// PostgresGroupStore implements GroupStore backed by PostgreSQL.
// Every query is scoped to a single organization.
type PostgresGroupStore struct {
	db             *sql.DB
	organizationID int64
}

// NewPostgresGroupStore creates a PostgreSQL-backed GroupStore for one organization
func NewPostgresGroupStore(db *sql.DB, organizationID int64) *PostgresGroupStore {
	return &PostgresGroupStore{
		db:             db,
		organizationID: organizationID,
	}
}

func pgNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// AddGroup inserts a new group. A zero ID is assigned by the database.
func (s *PostgresGroupStore) AddGroup(ctx context.Context, group *DataConditionGroup) error {
	now := pgNow()
	group.OrganizationID = s.organizationID
	group.CreatedAt = now
	group.UpdatedAt = now

	var err error
	if group.ID == 0 {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO data_condition_groups (organization_id, logic_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, s.organizationID, group.LogicType, now, now).Scan(&group.ID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO data_condition_groups (id, organization_id, logic_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, group.ID, s.organizationID, group.LogicType, now, now)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("condition group %d %w", group.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert condition group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID
func (s *PostgresGroupStore) GetGroup(ctx context.Context, id int64) (*DataConditionGroup, error) {
	var group DataConditionGroup
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, logic_type, created_at, updated_at
		FROM data_condition_groups
		WHERE id = $1 AND organization_id = $2
	`, id, s.organizationID).Scan(
		&group.ID,
		&group.OrganizationID,
		&group.LogicType,
		&group.CreatedAt,
		&group.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("condition group %d: %w", id, ErrGroupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get condition group: %w", err)
	}
	return &group, nil
}

// UpdateGroup modifies a group's logic type
func (s *PostgresGroupStore) UpdateGroup(ctx context.Context, group *DataConditionGroup) error {
	now := pgNow()
	err := s.db.QueryRowContext(ctx, `
		UPDATE data_condition_groups
		SET logic_type = $1, updated_at = $2
		WHERE id = $3 AND organization_id = $4
		RETURNING created_at
	`, group.LogicType, now, group.ID, s.organizationID).Scan(&group.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("condition group %d: %w", group.ID, ErrGroupNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update condition group: %w", err)
	}

	group.OrganizationID = s.organizationID
	group.UpdatedAt = now
	return nil
}

// DeleteGroup removes a group; its conditions are removed by cascade
func (s *PostgresGroupStore) DeleteGroup(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM data_condition_groups
		WHERE id = $1 AND organization_id = $2
	`, id, s.organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete condition group: %w", err)
	}
	return expectAffected(result, fmt.Errorf("condition group %d: %w", id, ErrGroupNotFound))
}

// ListGroups returns all of the organization's groups ordered by ID
func (s *PostgresGroupStore) ListGroups(ctx context.Context) ([]*DataConditionGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, logic_type, created_at, updated_at
		FROM data_condition_groups
		WHERE organization_id = $1
		ORDER BY id ASC
	`, s.organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list condition groups: %w", err)
	}
	defer rows.Close()

	var groups []*DataConditionGroup
	for rows.Next() {
		var g DataConditionGroup
		if err := rows.Scan(&g.ID, &g.OrganizationID, &g.LogicType, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan condition group: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating condition groups: %w", err)
	}
	return groups, nil
}

// AddCondition inserts a condition into one of the organization's groups
func (s *PostgresGroupStore) AddCondition(ctx context.Context, condition *DataCondition) error {
	if _, err := s.GetGroup(ctx, condition.ConditionGroupID); err != nil {
		return err
	}

	comparison, result, err := marshalCondition(condition)
	if err != nil {
		return err
	}

	now := pgNow()
	condition.CreatedAt = now
	condition.UpdatedAt = now

	if condition.ID == 0 {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO data_conditions (condition_group_id, type, comparison, condition_result, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, condition.ConditionGroupID, condition.Type, comparison, result, now, now).Scan(&condition.ID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO data_conditions (id, condition_group_id, type, comparison, condition_result, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, condition.ID, condition.ConditionGroupID, condition.Type, comparison, result, now, now)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("condition %d %w", condition.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert condition: %w", err)
	}
	return nil
}

// GetCondition retrieves a condition by ID
func (s *PostgresGroupStore) GetCondition(ctx context.Context, id int64) (*DataCondition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.condition_group_id, c.type, c.comparison, c.condition_result, c.created_at, c.updated_at
		FROM data_conditions c
		JOIN data_condition_groups g ON g.id = c.condition_group_id
		WHERE c.id = $1 AND g.organization_id = $2
	`, id, s.organizationID)

	condition, err := scanCondition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("condition %d: %w", id, ErrConditionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get condition: %w", err)
	}
	return condition, nil
}

// UpdateCondition modifies a condition, possibly moving it to another group
func (s *PostgresGroupStore) UpdateCondition(ctx context.Context, condition *DataCondition) error {
	if _, err := s.GetCondition(ctx, condition.ID); err != nil {
		return err
	}
	if _, err := s.GetGroup(ctx, condition.ConditionGroupID); err != nil {
		return err
	}

	comparison, result, err := marshalCondition(condition)
	if err != nil {
		return err
	}

	now := pgNow()
	err = s.db.QueryRowContext(ctx, `
		UPDATE data_conditions
		SET condition_group_id = $1, type = $2, comparison = $3, condition_result = $4, updated_at = $5
		WHERE id = $6
		RETURNING created_at
	`, condition.ConditionGroupID, condition.Type, comparison, result, now, condition.ID).Scan(&condition.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("condition %d: %w", condition.ID, ErrConditionNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update condition: %w", err)
	}

	condition.UpdatedAt = now
	return nil
}

// DeleteCondition removes a condition
func (s *PostgresGroupStore) DeleteCondition(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM data_conditions c
		USING data_condition_groups g
		WHERE c.id = $1 AND g.id = c.condition_group_id AND g.organization_id = $2
	`, id, s.organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete condition: %w", err)
	}
	return expectAffected(result, fmt.Errorf("condition %d: %w", id, ErrConditionNotFound))
}

// ListConditions returns a group's conditions ordered by ID
func (s *PostgresGroupStore) ListConditions(ctx context.Context, groupID int64) ([]*DataCondition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.condition_group_id, c.type, c.comparison, c.condition_result, c.created_at, c.updated_at
		FROM data_conditions c
		JOIN data_condition_groups g ON g.id = c.condition_group_id
		WHERE c.condition_group_id = $1 AND g.organization_id = $2
		ORDER BY c.id ASC
	`, groupID, s.organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conditions: %w", err)
	}
	defer rows.Close()

	var conditions []*DataCondition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		conditions = append(conditions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conditions: %w", err)
	}
	return conditions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCondition(row rowScanner) (*DataCondition, error) {
	var (
		c          DataCondition
		comparison []byte
		result     []byte
	)
	if err := row.Scan(&c.ID, &c.ConditionGroupID, &c.Type, &comparison, &result, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(comparison, &c.Comparison); err != nil {
		return nil, fmt.Errorf("invalid comparison for condition %d: %w", c.ID, err)
	}
	if err := json.Unmarshal(result, &c.ConditionResult); err != nil {
		return nil, fmt.Errorf("invalid condition result for condition %d: %w", c.ID, err)
	}
	return &c, nil
}

// marshalCondition encodes the JSONB columns. They are passed as strings
// because lib/pq sends []byte parameters as bytea.
func marshalCondition(c *DataCondition) (comparison, result string, err error) {
	cb, err := json.Marshal(c.Comparison)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal comparison: %w", err)
	}
	rb, err := json.Marshal(c.ConditionResult)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal condition result: %w", err)
	}
	return string(cb), string(rb), nil
}

func expectAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
