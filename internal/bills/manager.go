// Package bills owns the accounts-payable lifecycle: bill creation with its
// opening journal, header and line updates, soft deletion, and the payment
// and refund allocations that move a bill from open to paid.
package bills

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Manager owns bill and bill-line lifecycle.
type Manager struct {
	store  *store.Store
	poster *ledger.Poster
	audit  *audit.Recorder
}

// NewManager returns a Manager over st. rec may be nil.
func NewManager(st *store.Store, poster *ledger.Poster, rec *audit.Recorder) *Manager {
	return &Manager{store: st, poster: poster, audit: rec}
}

// CreateBill creates a bill with its lines and, when the bill opens unpaid,
// posts the opening journal (credit the payable account for the total,
// debit each line's expense account). The bill, its lines, and the journal
// commit or roll back as one unit.
func (m *Manager) CreateBill(ctx context.Context, req models.CreateBillRequest) (bill *models.Bill, err error) {
	defer func() { m.emit(ctx, "bill.create", billID(bill), nil, audit.JSON(bill), err) }()

	if req.VendorID == 0 {
		return nil, errs.Validation("bill", "vendor_id is required")
	}
	if req.PayableAccountID == 0 {
		return nil, errs.Validation("bill", "payable_account_id is required")
	}
	if !models.ValidDate(req.BillDate) {
		return nil, errs.Validation("bill", "bill_date %q is not a valid YYYY-MM-DD date", req.BillDate)
	}
	if req.DueDate != "" && !models.ValidDate(req.DueDate) {
		return nil, errs.Validation("bill", "due_date %q is not a valid YYYY-MM-DD date", req.DueDate)
	}

	lines, total, err := buildLines(req.Lines)
	if err != nil {
		return nil, err
	}

	paid, status, err := resolveCreationStatus(req.Status, req.PaidAmount, total)
	if err != nil {
		return nil, err
	}

	vendor, err := m.store.GetVendor(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}
	payable, err := m.store.GetAccount(ctx, req.PayableAccountID)
	if err != nil {
		return nil, err
	}
	if payable.Deleted {
		return nil, errs.Validation("bill", "payable account %d is deleted", payable.ID)
	}

	b := &models.Bill{
		VendorID:         vendor.ID,
		VendorName:       vendor.Name,
		Reference:        strings.TrimSpace(req.Reference),
		BillDate:         req.BillDate,
		DueDate:          req.DueDate,
		Total:            total,
		PaidAmount:       paid,
		Status:           status,
		PayableAccountID: payable.ID,
		Memo:             req.Memo,
	}

	err = m.store.Tx(ctx, func(q *store.Queries) error {
		if err := q.InsertBill(ctx, b); err != nil {
			return err
		}
		if err := q.InsertBillLines(ctx, b.ID, lines); err != nil {
			return err
		}
		b.Lines = lines

		// Only a bill that opens unpaid generates ledger effect. Bills
		// recorded as already settled carry no opening journal.
		if b.Status != models.BillStatusOpen {
			return nil
		}
		entry := ledger.Entry{
			Date:       b.BillDate,
			Type:       models.JournalTypePurchase,
			Memo:       billMemo(b),
			SourceType: "bill",
			SourceID:   &b.ID,
			CreatedBy:  audit.Actor(ctx),
		}
		for _, line := range lines {
			entry.Lines = append(entry.Lines, ledger.Line{
				AccountID:   line.AccountID,
				Debit:       line.LineTotal,
				Description: line.Description,
			})
		}
		entry.Lines = append(entry.Lines, ledger.Line{
			AccountID:   b.PayableAccountID,
			Credit:      b.Total,
			Description: "accounts payable",
		})

		j, err := m.poster.PostTx(ctx, q, entry)
		if err != nil {
			return err
		}
		if err := q.SetBillJournal(ctx, b.ID, j.ID); err != nil {
			return err
		}
		b.JournalID = &j.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBill patches a bill's header and, when lines are supplied, replaces
// the full line set and recomputes the total. Paid bills cannot be updated.
// No journal is reposted; ledger corrections are explicit reversing
// journals.
func (m *Manager) UpdateBill(ctx context.Context, id int64, req models.UpdateBillRequest) (bill *models.Bill, err error) {
	var before json.RawMessage
	defer func() { m.emit(ctx, "bill.update", strconv.FormatInt(id, 10), before, audit.JSON(bill), err) }()

	current, err := m.store.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Deleted {
		return nil, errs.NotFound("bill", id)
	}
	if current.Status == models.BillStatusPaid {
		return nil, errs.Invariant(errs.CodeBillPaid, "bill", "bill %d is paid and cannot be updated", id)
	}
	before = audit.JSON(current)

	if req.Reference != nil {
		current.Reference = strings.TrimSpace(*req.Reference)
	}
	if req.BillDate != nil {
		if !models.ValidDate(*req.BillDate) {
			return nil, errs.Validation("bill", "bill_date %q is not a valid YYYY-MM-DD date", *req.BillDate)
		}
		current.BillDate = *req.BillDate
	}
	if req.DueDate != nil {
		if *req.DueDate != "" && !models.ValidDate(*req.DueDate) {
			return nil, errs.Validation("bill", "due_date %q is not a valid YYYY-MM-DD date", *req.DueDate)
		}
		current.DueDate = *req.DueDate
	}
	if req.Memo != nil {
		current.Memo = *req.Memo
	}

	var newLines []models.BillLine
	replaceLines := req.Lines != nil
	if replaceLines {
		lines, total, err := buildLines(req.Lines)
		if err != nil {
			return nil, err
		}
		if money.GreaterThan(current.PaidAmount, total) {
			return nil, errs.Validation("bill",
				"new total %s is below the %s already paid", money.String(total), money.String(current.PaidAmount))
		}
		newLines = lines
		current.Total = total
		current.Status = deriveStatus(current.PaidAmount, total)
	}

	err = m.store.Tx(ctx, func(q *store.Queries) error {
		if err := q.UpdateBillHeader(ctx, current); err != nil {
			return err
		}
		if !replaceLines {
			return nil
		}
		if err := q.DeleteBillLines(ctx, current.ID); err != nil {
			return err
		}
		if err := q.InsertBillLines(ctx, current.ID, newLines); err != nil {
			return err
		}
		current.Lines = newLines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// DeleteBill soft-deletes a bill. Rows stay on file for the audit trail.
func (m *Manager) DeleteBill(ctx context.Context, id int64) (err error) {
	var before json.RawMessage
	defer func() { m.emit(ctx, "bill.delete", strconv.FormatInt(id, 10), before, nil, err) }()

	current, err := m.store.GetBill(ctx, id)
	if err != nil {
		return err
	}
	if current.Deleted {
		return errs.NotFound("bill", id)
	}
	before = audit.JSON(current)
	return m.store.SoftDeleteBill(ctx, id)
}

// GetBill returns one bill with its lines.
func (m *Manager) GetBill(ctx context.Context, id int64) (*models.Bill, error) {
	return m.store.GetBill(ctx, id)
}

// ListBills returns bill headers matching the filter.
func (m *Manager) ListBills(ctx context.Context, f store.BillFilter) ([]*models.Bill, error) {
	return m.store.ListBills(ctx, f)
}

// buildLines validates and prices a request's line set. Line totals are
// quantity times unit price rounded to two decimals; the bill total is
// their sum.
func buildLines(reqs []models.CreateBillLineRequest) ([]models.BillLine, decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, decimal.Zero, errs.Validation("bill", "at least one line is required")
	}

	lines := make([]models.BillLine, 0, len(reqs))
	total := money.Zero
	for i, lr := range reqs {
		if lr.AccountID == 0 {
			return nil, decimal.Zero, errs.Validation("bill", "line %d has no account", i+1)
		}
		qty, err := money.ParseQuantity(lr.Quantity)
		if err != nil {
			return nil, decimal.Zero, errs.Validation("bill", "line %d quantity: %v", i+1, err)
		}
		if !qty.IsPositive() {
			return nil, decimal.Zero, errs.Validation("bill", "line %d quantity must be positive", i+1)
		}
		price, err := money.Parse(lr.UnitPrice)
		if err != nil {
			return nil, decimal.Zero, errs.Validation("bill", "line %d unit_price: %v", i+1, err)
		}
		if !price.IsPositive() {
			return nil, decimal.Zero, errs.Validation("bill", "line %d unit_price must be positive", i+1)
		}

		lineTotal := money.Round2(qty.Mul(price))
		if !lineTotal.IsPositive() {
			return nil, decimal.Zero, errs.Validation("bill", "line %d total rounds to zero", i+1)
		}
		lines = append(lines, models.BillLine{
			AccountID:   lr.AccountID,
			Description: lr.Description,
			Quantity:    qty,
			UnitPrice:   money.Round2(price),
			LineTotal:   lineTotal,
		})
		total = money.Add(total, lineTotal)
	}
	return lines, total, nil
}

// resolveCreationStatus works out the initial paid amount and status. An
// explicit "paid" pins the paid amount to the total; otherwise the caller
// may supply a partial paid amount and the status follows from it.
func resolveCreationStatus(status, paidAmount string, total decimal.Decimal) (decimal.Decimal, models.BillStatus, error) {
	switch models.BillStatus(status) {
	case models.BillStatusPaid:
		return total, models.BillStatusPaid, nil
	case "", models.BillStatusOpen:
	default:
		return decimal.Zero, "", errs.Validation("bill", "status %q is not allowed at creation", status)
	}

	paid, err := money.Parse(paidAmount)
	if err != nil {
		return decimal.Zero, "", errs.Validation("bill", "paid_amount: %v", err)
	}
	if paid.IsNegative() {
		return decimal.Zero, "", errs.Validation("bill", "paid_amount cannot be negative")
	}
	if money.GreaterThan(paid, total) {
		return decimal.Zero, "", errs.Validation("bill",
			"paid_amount %s exceeds the bill total %s", money.String(paid), money.String(total))
	}
	paid = money.Round2(paid)
	return paid, deriveStatus(paid, total), nil
}

func billMemo(b *models.Bill) string {
	if b.Reference != "" {
		return fmt.Sprintf("bill %s from %s", b.Reference, b.VendorName)
	}
	return fmt.Sprintf("bill from %s", b.VendorName)
}

func (m *Manager) emit(ctx context.Context, action, entityID string, before, after json.RawMessage, err error) {
	ev := audit.Event{Action: action, Entity: "bill", EntityID: entityID, Before: before, After: after}
	if err != nil {
		ev.Outcome = audit.OutcomeError
		ev.Detail = err.Error()
		ev.After = nil
	}
	m.audit.Record(ctx, ev)
}

func billID(b *models.Bill) string {
	if b == nil {
		return ""
	}
	return strconv.FormatInt(b.ID, 10)
}
