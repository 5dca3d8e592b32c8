// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/groupledger/internal/models"
)

var (
	// ErrNotFound is wrapped by every lookup that finds no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a unique value (email, join code, member) already exists.
	ErrConflict = errors.New("already exists")
)

// GroupStore is the group and member directory.
type GroupStore interface {
	// CreateGroup persists a new group together with its initial members.
	// ID, JoinCode, CreatedAt and member positions are filled in by the store
	// when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with every current and historical member,
	// in join order.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByJoinCode retrieves a group by its join code.
	GetGroupByJoinCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsForUser retrieves the groups the user is an active member of.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMember appends a member at the end of the join order.
	// Re-adding a member who left reactivates them at their old position.
	AddGroupMember(ctx context.Context, groupID string, member *models.Member) error

	// RemoveGroupMember marks a member as having left. The member stays in
	// the roster for balance calculations.
	RemoveGroupMember(ctx context.Context, groupID, memberID string) error
}

// ExpenseStore is the append-only expense ledger.
type ExpenseStore interface {
	// CreateExpense appends a validated expense and its allocations atomically.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its allocations.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup retrieves every expense of a group, oldest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
}

// SettlementStore records payments between members.
type SettlementStore interface {
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// UpdateUserDisplayName renames the user and every group member row
	// linked to the account.
	UpdateUserDisplayName(ctx context.Context, id, displayName string) error
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	GroupStore
	ExpenseStore
	SettlementStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
