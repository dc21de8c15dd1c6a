// Package accounts is the chart-of-accounts directory: typed, hierarchical
// account nodes addressed by code, plus balance reads over the ledger.
package accounts

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Directory manages the chart of accounts.
type Directory struct {
	store *store.Store
	audit *audit.Recorder
}

// NewDirectory returns a Directory over st. rec may be nil.
func NewDirectory(st *store.Store, rec *audit.Recorder) *Directory {
	return &Directory{store: st, audit: rec}
}

// TypeFromCode infers an account type from the leading digit of its code:
// 1 asset, 2 liability, 3 equity, 4 revenue, 5 and above expense. The
// inference is a fallback; an explicit type always wins.
func TypeFromCode(code string) (models.AccountType, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	switch code[0] {
	case '1':
		return models.AccountTypeAsset, true
	case '2':
		return models.AccountTypeLiability, true
	case '3':
		return models.AccountTypeEquity, true
	case '4':
		return models.AccountTypeRevenue, true
	case '5', '6', '7', '8', '9':
		return models.AccountTypeExpense, true
	}
	return "", false
}

// Create adds one account to the chart.
func (d *Directory) Create(ctx context.Context, req models.CreateAccountRequest) (acc *models.Account, err error) {
	defer func() { d.emit(ctx, "account.create", accID(acc), nil, audit.JSON(acc), err) }()

	code := strings.TrimSpace(req.Code)
	name := strings.TrimSpace(req.Name)
	if code == "" {
		return nil, errs.Validation("account", "code is required")
	}
	if name == "" {
		return nil, errs.Validation("account", "name is required")
	}

	accType := models.AccountType(req.Type)
	if req.Type == "" {
		inferred, ok := TypeFromCode(code)
		if !ok {
			return nil, errs.Validation("account", "type is required when it cannot be inferred from code %q", code)
		}
		accType = inferred
	} else if !accType.Valid() {
		return nil, errs.Validation("account", "unknown account type %q", req.Type)
	}

	if req.ParentID != nil {
		parent, err := d.store.GetAccount(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Deleted {
			return nil, errs.Validation("account", "parent account %d is deleted", parent.ID)
		}
	}

	acc = &models.Account{
		Code:     code,
		Name:     name,
		Type:     accType,
		ParentID: req.ParentID,
		Active:   true,
	}
	if err := d.store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Get returns one account by ID.
func (d *Directory) Get(ctx context.Context, id int64) (*models.Account, error) {
	return d.store.GetAccount(ctx, id)
}

// GetByCode returns one account by its unique code.
func (d *Directory) GetByCode(ctx context.Context, code string) (*models.Account, error) {
	return d.store.GetAccountByCode(ctx, code)
}

// GetByName returns one account by exact name, case-insensitively.
func (d *Directory) GetByName(ctx context.Context, name string) (*models.Account, error) {
	return d.store.GetAccountByName(ctx, name)
}

// List returns the chart ordered by code.
func (d *Directory) List(ctx context.Context, includeDeleted bool) ([]*models.Account, error) {
	return d.store.ListAccounts(ctx, includeDeleted)
}

// Update patches an account's name or active flag.
func (d *Directory) Update(ctx context.Context, id int64, req models.UpdateAccountRequest) (acc *models.Account, err error) {
	var before json.RawMessage
	defer func() { d.emit(ctx, "account.update", strconv.FormatInt(id, 10), before, audit.JSON(acc), err) }()

	current, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Deleted {
		return nil, errs.NotFound("account", id)
	}
	before = audit.JSON(current)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errs.Validation("account", "name cannot be blank")
		}
		current.Name = name
	}
	if req.Active != nil {
		current.Active = *req.Active
	}
	if err := d.store.UpdateAccount(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Delete soft-deletes an account. Accounts that still parent other accounts
// cannot be deleted.
func (d *Directory) Delete(ctx context.Context, id int64) (err error) {
	var before json.RawMessage
	defer func() { d.emit(ctx, "account.delete", strconv.FormatInt(id, 10), before, nil, err) }()

	acc, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	before = audit.JSON(acc)

	hasChildren, err := d.store.HasChildAccounts(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return errs.Invariant(errs.CodeAccountHasChildren, "account",
			"account %d has child accounts and cannot be deleted", id)
	}
	return d.store.SoftDeleteAccount(ctx, id)
}

// BalanceAsOf returns the account's normal-side balance over all posted
// lines dated on or before through (all history when through is empty).
func (d *Directory) BalanceAsOf(ctx context.Context, id int64, through string) (decimal.Decimal, error) {
	return d.balance(ctx, id, store.LedgerFilter{AccountID: id, To: through})
}

// BalanceBefore returns the account's normal-side balance over all posted
// lines dated strictly before date. Reconciliation uses it as the default
// starting balance for a statement period.
func (d *Directory) BalanceBefore(ctx context.Context, id int64, date string) (decimal.Decimal, error) {
	return d.balance(ctx, id, store.LedgerFilter{AccountID: id, Before: date})
}

func (d *Directory) balance(ctx context.Context, id int64, f store.LedgerFilter) (decimal.Decimal, error) {
	acc, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	lines, err := d.store.ListLedgerLines(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}

	debits, credits := money.Zero, money.Zero
	for _, line := range lines {
		debits = money.Add(debits, line.Debit)
		credits = money.Add(credits, line.Credit)
	}
	if acc.Type.DebitNormal() {
		return money.Sub(debits, credits), nil
	}
	return money.Sub(credits, debits), nil
}

func (d *Directory) emit(ctx context.Context, action, entityID string, before, after json.RawMessage, err error) {
	ev := audit.Event{Action: action, Entity: "account", EntityID: entityID, Before: before, After: after}
	if err != nil {
		ev.Outcome = audit.OutcomeError
		ev.Detail = err.Error()
		ev.After = nil
	}
	d.audit.Record(ctx, ev)
}

func accID(acc *models.Account) string {
	if acc == nil {
		return ""
	}
	return strconv.FormatInt(acc.ID, 10)
}
