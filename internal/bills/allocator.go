package bills

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Allocator applies payments and refunds against bills.
type Allocator struct {
	store  *store.Store
	poster *ledger.Poster
	audit  *audit.Recorder
}

// NewAllocator returns an Allocator over st. rec may be nil.
func NewAllocator(st *store.Store, poster *ledger.Poster, rec *audit.Recorder) *Allocator {
	return &Allocator{store: st, poster: poster, audit: rec}
}

// CreatePayment allocates a payment against a bill: the payment row, the
// bill's recomputed paid amount and status, and the payment journal (debit
// the payable account, credit the funding account) commit as one unit.
// The bill is re-read inside the same immediate transaction that updates
// it, so two concurrent payments serialize and the second sees the first's
// paid amount; anything beyond the remaining balance is rejected.
func (a *Allocator) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (payment *models.BillPayment, err error) {
	defer func() { a.emit(ctx, "payment.create", "payment", paymentID(payment), nil, audit.JSON(payment), err) }()

	if req.BillID == 0 {
		return nil, errs.Validation("payment", "bill_id is required")
	}
	if req.SourceAccountID == 0 {
		return nil, errs.Validation("payment", "source_account_id is required")
	}
	if !models.ValidDate(req.PaymentDate) {
		return nil, errs.Validation("payment", "payment_date %q is not a valid YYYY-MM-DD date", req.PaymentDate)
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, errs.Validation("payment", "amount: %v", err)
	}
	amount = money.Round2(amount)
	if !amount.IsPositive() {
		return nil, errs.Validation("payment", "amount must be positive")
	}

	source, err := a.store.GetAccount(ctx, req.SourceAccountID)
	if err != nil {
		return nil, err
	}
	if source.Deleted {
		return nil, errs.Validation("payment", "source account %d is deleted", source.ID)
	}

	err = a.store.Tx(ctx, func(q *store.Queries) error {
		bill, err := q.GetBill(ctx, req.BillID)
		if err != nil {
			return err
		}
		if bill.Deleted {
			return errs.NotFound("bill", req.BillID)
		}

		remaining := money.Sub(bill.Total, bill.PaidAmount)
		if money.GreaterThan(amount, remaining) {
			return errs.Invariant(errs.CodeOverpayment, "payment",
				"payment of %s exceeds the %s remaining on bill %d",
				money.String(amount), money.String(remaining), bill.ID)
		}

		p := &models.BillPayment{
			BillID:          bill.ID,
			PaymentDate:     req.PaymentDate,
			Amount:          amount,
			SourceAccountID: source.ID,
			Memo:            req.Memo,
		}
		if err := q.InsertPayment(ctx, p); err != nil {
			return err
		}

		newPaid := money.Add(bill.PaidAmount, amount)
		status := deriveStatus(newPaid, bill.Total)
		if err := q.UpdateBillPaid(ctx, bill.ID, status, money.String(newPaid)); err != nil {
			return err
		}

		j, err := a.poster.PostTx(ctx, q, ledger.Entry{
			Date:       p.PaymentDate,
			Type:       models.JournalTypePayment,
			Memo:       fmt.Sprintf("payment on %s", billMemo(bill)),
			SourceType: "payment",
			SourceID:   &p.ID,
			CreatedBy:  audit.Actor(ctx),
			Lines: []ledger.Line{
				{AccountID: bill.PayableAccountID, Debit: amount, Description: "payable settled"},
				{AccountID: source.ID, Credit: amount, Description: "funds out"},
			},
		})
		if err != nil {
			return err
		}
		if err := q.SetPaymentJournal(ctx, p.ID, j.ID); err != nil {
			return err
		}
		p.JournalID = &j.ID
		payment = p
		return nil
	})
	if err != nil {
		payment = nil
		return nil, err
	}
	return payment, nil
}

// DeletePayment unwinds an allocation: the bill's paid amount drops by the
// payment's amount, its status is recomputed, and the payment row and its
// journal (header and lines) are removed, all atomically. Afterwards the
// bill reads as if the payment had never been made.
func (a *Allocator) DeletePayment(ctx context.Context, id int64) (err error) {
	var before json.RawMessage
	defer func() { a.emit(ctx, "payment.delete", "payment", strconv.FormatInt(id, 10), before, nil, err) }()

	err = a.store.Tx(ctx, func(q *store.Queries) error {
		p, err := q.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		before = audit.JSON(p)

		bill, err := q.GetBill(ctx, p.BillID)
		if err != nil {
			return err
		}

		newPaid := money.Sub(bill.PaidAmount, p.Amount)
		if newPaid.IsNegative() {
			newPaid = money.Zero
		}
		status := deriveStatus(newPaid, bill.Total)
		if err := q.UpdateBillPaid(ctx, bill.ID, status, money.String(newPaid)); err != nil {
			return err
		}

		if err := q.DeletePayment(ctx, p.ID); err != nil {
			return err
		}
		if p.JournalID != nil {
			if err := q.DeleteJournal(ctx, *p.JournalID); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// CreateRefund records money a vendor returned against a bill. The refund
// posts its own journal, debiting the account the money landed in and
// crediting the bill's payable account. The bill's paid amount is left
// untouched; refunds keep a separate trail.
func (a *Allocator) CreateRefund(ctx context.Context, req models.CreateRefundRequest) (refund *models.BillRefund, err error) {
	defer func() { a.emit(ctx, "refund.create", "refund", refundID(refund), nil, audit.JSON(refund), err) }()

	if req.BillID == 0 {
		return nil, errs.Validation("refund", "bill_id is required")
	}
	if req.TargetAccountID == 0 {
		return nil, errs.Validation("refund", "target_account_id is required")
	}
	if !models.ValidDate(req.RefundDate) {
		return nil, errs.Validation("refund", "refund_date %q is not a valid YYYY-MM-DD date", req.RefundDate)
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, errs.Validation("refund", "amount: %v", err)
	}
	amount = money.Round2(amount)
	if !amount.IsPositive() {
		return nil, errs.Validation("refund", "amount must be positive")
	}

	target, err := a.store.GetAccount(ctx, req.TargetAccountID)
	if err != nil {
		return nil, err
	}
	if target.Deleted {
		return nil, errs.Validation("refund", "target account %d is deleted", target.ID)
	}

	err = a.store.Tx(ctx, func(q *store.Queries) error {
		bill, err := q.GetBill(ctx, req.BillID)
		if err != nil {
			return err
		}
		if bill.Deleted {
			return errs.NotFound("bill", req.BillID)
		}

		r := &models.BillRefund{
			BillID:          bill.ID,
			RefundDate:      req.RefundDate,
			Amount:          amount,
			TargetAccountID: target.ID,
			Reason:          req.Reason,
		}
		if err := q.InsertRefund(ctx, r); err != nil {
			return err
		}

		j, err := a.poster.PostTx(ctx, q, ledger.Entry{
			Date:       r.RefundDate,
			Type:       models.JournalTypeRefund,
			Memo:       fmt.Sprintf("refund on %s", billMemo(bill)),
			SourceType: "refund",
			SourceID:   &r.ID,
			CreatedBy:  audit.Actor(ctx),
			Lines: []ledger.Line{
				{AccountID: target.ID, Debit: amount, Description: "funds returned"},
				{AccountID: bill.PayableAccountID, Credit: amount, Description: "payable credit"},
			},
		})
		if err != nil {
			return err
		}
		if err := q.SetRefundJournal(ctx, r.ID, j.ID); err != nil {
			return err
		}
		r.JournalID = &j.ID
		refund = r
		return nil
	})
	if err != nil {
		refund = nil
		return nil, err
	}
	return refund, nil
}

// ListPayments returns a bill's payments.
func (a *Allocator) ListPayments(ctx context.Context, billID int64) ([]*models.BillPayment, error) {
	if _, err := a.store.GetBill(ctx, billID); err != nil {
		return nil, err
	}
	return a.store.ListPayments(ctx, billID)
}

// GetPayment returns one payment.
func (a *Allocator) GetPayment(ctx context.Context, id int64) (*models.BillPayment, error) {
	return a.store.GetPayment(ctx, id)
}

// ListRefunds returns a bill's refunds.
func (a *Allocator) ListRefunds(ctx context.Context, billID int64) ([]*models.BillRefund, error) {
	if _, err := a.store.GetBill(ctx, billID); err != nil {
		return nil, err
	}
	return a.store.ListRefunds(ctx, billID)
}

func (a *Allocator) emit(ctx context.Context, action, entity, entityID string, before, after json.RawMessage, err error) {
	ev := audit.Event{Action: action, Entity: entity, EntityID: entityID, Before: before, After: after}
	if err != nil {
		ev.Outcome = audit.OutcomeError
		ev.Detail = err.Error()
		ev.After = nil
	}
	a.audit.Record(ctx, ev)
}

func paymentID(p *models.BillPayment) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(p.ID, 10)
}

func refundID(r *models.BillRefund) string {
	if r == nil {
		return ""
	}
	return strconv.FormatInt(r.ID, 10)
}
