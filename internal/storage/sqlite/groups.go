package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// CreateGroup persists a new group and its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate IDs if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.JoinCode == "" {
		group.JoinCode = generateJoinCode()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, join_code, currency, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.JoinCode, group.Currency, group.CreatedBy, group.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("group %w: %s", storage.ErrConflict, group.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range group.Members {
		m := &group.Members[i]
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.Position = i
		m.JoinedAt = group.CreatedAt
		m.LeftAt = 0

		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, member_id, display_name, user_id, position, joined_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			group.ID, m.ID, m.DisplayName, nullString(m.UserID), m.Position, m.JoinedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("member %w: %s", storage.ErrConflict, m.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID with its full member roster.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, join_code, currency, created_by, created_at
		 FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.JoinCode, &group.Currency, &group.CreatedBy, &group.CreatedAt)
	if isNoRows(err) {
		return nil, notFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.listMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return group, nil
}

// GetGroupByJoinCode retrieves a group by its join code (case-insensitive).
func (s *SQLiteStore) GetGroupByJoinCode(ctx context.Context, code string) (*models.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var groupID string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM groups WHERE join_code = ?", code).Scan(&groupID)
	if isNoRows(err) {
		return nil, notFound("join code", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up join code: %w", err)
	}

	return s.GetGroup(ctx, groupID)
}

// ListGroupsForUser retrieves the groups the user currently belongs to, oldest first.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ? AND m.left_at IS NULL
		 ORDER BY g.created_at, g.rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// AddGroupMember appends a member to the group's join order.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID string, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if isNoRows(err) {
		return notFound("group", groupID)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}

	var (
		position int
		joinedAt int64
		leftAt   sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		"SELECT position, joined_at, left_at FROM group_members WHERE group_id = ? AND member_id = ?",
		groupID, member.ID,
	).Scan(&position, &joinedAt, &leftAt)

	switch {
	case err == nil && !leftAt.Valid:
		return fmt.Errorf("member %w: %s", storage.ErrConflict, member.ID)
	case err == nil:
		// Returning member keeps their original join position
		_, err = tx.ExecContext(ctx,
			"UPDATE group_members SET left_at = NULL, display_name = ? WHERE group_id = ? AND member_id = ?",
			member.DisplayName, groupID, member.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to reactivate member: %w", err)
		}
		member.Position = position
		member.JoinedAt = joinedAt
	case isNoRows(err):
		err = tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position) + 1, 0) FROM group_members WHERE group_id = ?",
			groupID,
		).Scan(&position)
		if err != nil {
			return fmt.Errorf("failed to compute member position: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, member_id, display_name, user_id, position, joined_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			groupID, member.ID, member.DisplayName, nullString(member.UserID), position, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
		member.Position = position
		member.JoinedAt = now
	default:
		return fmt.Errorf("failed to check membership: %w", err)
	}
	member.LeftAt = 0

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveGroupMember marks an active member as having left.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, memberID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET left_at = ? WHERE group_id = ? AND member_id = ? AND left_at IS NULL",
		time.Now().Unix(), groupID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removed rows: %w", err)
	}
	if n == 0 {
		return notFound("member", memberID)
	}
	return nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, display_name, user_id, position, joined_at, left_at
		 FROM group_members WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var (
			m      models.Member
			userID sql.NullString
			leftAt sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.DisplayName, &userID, &m.Position, &m.JoinedAt, &leftAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.UserID = userID.String
		m.LeftAt = leftAt.Int64
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// generateJoinCode creates a short, human-typeable code for joining a group.
func generateJoinCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
