package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
)

// CreateExpense appends an expense and its allocations in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate ID if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	amount, err := money.ToMinor(expense.Amount, expense.Currency)
	if err != nil {
		return fmt.Errorf("failed to convert expense amount: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, amount_minor, currency, description, payer_id, strategy, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, amount, expense.Currency, expense.Description,
		expense.PayerID, string(expense.Strategy), expense.CreatedBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, alloc := range expense.Allocations {
		share, err := money.ToMinor(alloc.Amount, expense.Currency)
		if err != nil {
			return fmt.Errorf("failed to convert allocation amount: %w", err)
		}
		var shareValue sql.NullString
		if alloc.Share.Valid {
			shareValue = sql.NullString{String: alloc.Share.Decimal.String(), Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_allocations (expense_id, group_id, member_id, position, share, amount_minor)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			expense.ID, expense.GroupID, alloc.MemberID, i, shareValue, share,
		)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID, including its allocations.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, amount_minor, currency, description, payer_id, strategy, created_by, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	)
	expense, err := scanExpense(row)
	if isNoRows(err) {
		return nil, notFound("expense", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	allocations, err := s.listAllocations(ctx, "expense_id", expenseID)
	if err != nil {
		return nil, err
	}
	expense.Allocations = allocations[expense.ID]

	return expense, nil
}

// ListExpensesByGroup retrieves all expenses of a group in recording order.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, amount_minor, currency, description, payer_id, strategy, created_by, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at, rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	allocations, err := s.listAllocations(ctx, "group_id", groupID)
	if err != nil {
		return nil, err
	}
	for _, expense := range expenses {
		expense.Allocations = allocations[expense.ID]
	}

	return expenses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (*models.Expense, error) {
	var (
		expense  models.Expense
		amount   int64
		strategy string
	)
	err := row.Scan(&expense.ID, &expense.GroupID, &amount, &expense.Currency, &expense.Description,
		&expense.PayerID, &strategy, &expense.CreatedBy, &expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	expense.Amount = money.FromMinor(amount, expense.Currency)
	expense.Strategy = models.SplitStrategy(strategy)
	return &expense, nil
}

// listAllocations loads allocations filtered by column ("expense_id" or
// "group_id"), grouped by expense ID and kept in participant order.
func (s *SQLiteStore) listAllocations(ctx context.Context, column, value string) (map[string][]models.Allocation, error) {
	query := `SELECT a.expense_id, a.member_id, a.share, a.amount_minor, e.currency
		 FROM expense_allocations a
		 JOIN expenses e ON e.id = a.expense_id
		 WHERE a.` + column + ` = ?
		 ORDER BY a.expense_id, a.position`

	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	defer rows.Close()

	allocations := make(map[string][]models.Allocation)
	for rows.Next() {
		var (
			expenseID string
			alloc     models.Allocation
			share     sql.NullString
			amount    int64
			currency  string
		)
		if err := rows.Scan(&expenseID, &alloc.MemberID, &share, &amount, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		if share.Valid {
			d, err := decimal.NewFromString(share.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse allocation share %q: %w", share.String, err)
			}
			alloc.Share = decimal.NewNullDecimal(d)
		}
		alloc.Amount = money.FromMinor(amount, currency)
		allocations[expenseID] = append(allocations[expenseID], alloc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}

	return allocations, nil
}
