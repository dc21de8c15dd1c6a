package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
)

const accountColumns = "id, code, name, type, parent_id, active, deleted, deleted_at, created_at"

// CreateAccount inserts an account and fills in its ID and CreatedAt.
func (q *Queries) CreateAccount(ctx context.Context, acc *models.Account) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (code, name, type, parent_id, active)
		VALUES (?, ?, ?, ?, ?)`,
		acc.Code, acc.Name, string(acc.Type), acc.ParentID, acc.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Duplicate(errs.CodeDuplicateCode, "account", "account code %q already exists", acc.Code)
		}
		return errs.Transient("account", fmt.Errorf("failed to create account: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("account", fmt.Errorf("failed to read account id: %w", err))
	}
	acc.ID = id
	acc.CreatedAt = time.Now().UTC()
	return nil
}

// GetAccount returns one account by ID, deleted or not.
func (q *Queries) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("account", id)
	}
	if err != nil {
		return nil, errs.Transient("account", fmt.Errorf("failed to get account: %w", err))
	}
	return acc, nil
}

// GetAccountByCode returns one non-deleted account by its code.
func (q *Queries) GetAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE code = ? AND deleted = 0", code)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("account", code)
	}
	if err != nil {
		return nil, errs.Transient("account", fmt.Errorf("failed to get account by code: %w", err))
	}
	return acc, nil
}

// GetAccountByName returns one non-deleted account by exact name,
// case-insensitively. Ties break on the lowest code.
func (q *Queries) GetAccountByName(ctx context.Context, name string) (*models.Account, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE name = ? COLLATE NOCASE AND deleted = 0 ORDER BY code LIMIT 1", name)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("account", name)
	}
	if err != nil {
		return nil, errs.Transient("account", fmt.Errorf("failed to get account by name: %w", err))
	}
	return acc, nil
}

// ListAccounts returns accounts ordered by code. Deleted accounts are
// excluded unless includeDeleted is set.
func (q *Queries) ListAccounts(ctx context.Context, includeDeleted bool) ([]*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts"
	if !includeDeleted {
		query += " WHERE deleted = 0"
	}
	query += " ORDER BY code"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.Transient("account", fmt.Errorf("failed to list accounts: %w", err))
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, errs.Transient("account", fmt.Errorf("failed to scan account: %w", err))
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("account", fmt.Errorf("failed to iterate accounts: %w", err))
	}
	return accounts, nil
}

// UpdateAccount saves name, active flag, and parent of an existing account.
func (q *Queries) UpdateAccount(ctx context.Context, acc *models.Account) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, active = ?, parent_id = ? WHERE id = ? AND deleted = 0`,
		acc.Name, acc.Active, acc.ParentID, acc.ID)
	if err != nil {
		return errs.Transient("account", fmt.Errorf("failed to update account: %w", err))
	}
	return requireRow(res, "account", acc.ID)
}

// SoftDeleteAccount marks an account deleted, keeping its history intact.
func (q *Queries) SoftDeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts SET deleted = 1, deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return errs.Transient("account", fmt.Errorf("failed to delete account: %w", err))
	}
	return requireRow(res, "account", id)
}

// HasChildAccounts reports whether any non-deleted account has id as parent.
func (q *Queries) HasChildAccounts(ctx context.Context, id int64) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE parent_id = ? AND deleted = 0", id).Scan(&n)
	if err != nil {
		return false, errs.Transient("account", fmt.Errorf("failed to count child accounts: %w", err))
	}
	return n > 0, nil
}

// CountAccounts returns the number of non-deleted accounts.
func (q *Queries) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE deleted = 0").Scan(&n)
	if err != nil {
		return 0, errs.Transient("account", fmt.Errorf("failed to count accounts: %w", err))
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc       models.Account
		accType   string
		parentID  sql.NullInt64
		deletedAt sql.NullTime
	)
	err := row.Scan(&acc.ID, &acc.Code, &acc.Name, &accType, &parentID,
		&acc.Active, &acc.Deleted, &deletedAt, &acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	acc.Type = models.AccountType(accType)
	if parentID.Valid {
		acc.ParentID = &parentID.Int64
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		acc.DeletedAt = &t
	}
	return &acc, nil
}

// requireRow turns a zero-row UPDATE or DELETE into a not-found error.
func requireRow(res sql.Result, entity string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Transient(entity, fmt.Errorf("failed to read rows affected: %w", err))
	}
	if n == 0 {
		return errs.NotFound(entity, id)
	}
	return nil
}
