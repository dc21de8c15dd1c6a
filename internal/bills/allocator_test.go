package bills

import (
	"context"
	"testing"

	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
)

func TestCreatePaymentLifecycle(t *testing.T) {
	m, a, st := newTestManager(t)
	f := seedBillFixture(t, st)
	ctx := context.Background()

	bill := openBill(t, m, f)

	first, err := a.CreatePayment(ctx, models.CreatePaymentRequest{
		BillID:          bill.ID,
		PaymentDate:     "2025-03-05",
		Amount:          "60.00",
		SourceAccountID: f.bank.ID,
		Memo:            "first installment",
	})
	if err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("Expected payment ID to be assigned")
	}
	if first.JournalID == nil {
		t.Fatal("Expected a payment journal")
	}

	j, err := st.GetJournal(ctx, *first.JournalID)
	if err != nil {
		t.Fatalf("Failed to load payment journal: %v", err)
	}
	if j.Type != models.JournalTypePayment {
		t.Errorf("Journal type = %q, expected payment", j.Type)
	}
	if j.SourceType != "payment" || j.SourceID == nil || *j.SourceID != first.ID {
		t.Errorf("Journal source = %q/%v, expected payment/%d", j.SourceType, j.SourceID, first.ID)
	}
	for _, line := range j.Lines {
		switch line.AccountID {
		case f.payable.ID:
			if money.String(line.Debit) != "60.00" {
				t.Errorf("Payable debit = %s, expected 60.00", money.String(line.Debit))
			}
		case f.bank.ID:
			if money.String(line.Credit) != "60.00" {
				t.Errorf("Bank credit = %s, expected 60.00", money.String(line.Credit))
			}
		default:
			t.Errorf("Unexpected journal line on account %d", line.AccountID)
		}
	}

	got, err := st.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to reload bill: %v", err)
	}
	if got.Status != models.BillStatusPartiallyPaid {
		t.Errorf("Status = %q, expected partially_paid", got.Status)
	}
	if money.String(got.PaidAmount) != "60.00" {
		t.Errorf("PaidAmount = %s, expected 60.00", money.String(got.PaidAmount))
	}

	// Paying off the remainder flips the bill to paid.
	if _, err := a.CreatePayment(ctx, models.CreatePaymentRequest{
		BillID: bill.ID, PaymentDate: "2025-03-20", Amount: "40.00", SourceAccountID: f.bank.ID,
	}); err != nil {
		t.Fatalf("Failed to create second payment: %v", err)
	}
	got, err = st.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to reload bill: %v", err)
	}
	if got.Status != models.BillStatusPaid {
		t.Errorf("Status = %q, expected paid", got.Status)
	}

	// A paid bill has no remaining balance to allocate against.
	_, err = a.CreatePayment(ctx, models.CreatePaymentRequest{
		BillID: bill.ID, PaymentDate: "2025-03-21", Amount: "0.01", SourceAccountID: f.bank.ID,
	})
	if errs.CodeOf(err) != errs.CodeOverpayment {
		t.Errorf("Payment on paid bill error = %v, expected %q", err, errs.CodeOverpayment)
	}

	payments, err := a.ListPayments(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Errorf("Expected 2 payments, got %d", len(payments))
	}
}

func TestCreatePaymentOverpaymentRejected(t *testing.T) {
	m, a, st := newTestManager(t)
	f := seedBillFixture(t, st)
	ctx := context.Background()

	bill := openBill(t, m, f)

	_, err := a.CreatePayment(ctx, models.CreatePaymentRequest{
		BillID:          bill.ID,
		PaymentDate:     "2025-03-05",
		Amount:          "100.01",
		SourceAccountID: f.bank.ID,
	})
	if errs.KindOf(err) != errs.KindInvariant {
		t.Fatalf("CreatePayment() error = %v, expected an invariant violation", err)
	}
	if errs.CodeOf(err) != errs.CodeOverpayment {
		t.Errorf("Code = %q, expected %q", errs.CodeOf(err), errs.CodeOverpayment)
	}

	// The rejected allocation must leave no trace.
	got, err := st.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to reload bill: %v", err)
	}
	if got.Status != models.BillStatusOpen || !money.IsZero(got.PaidAmount) {
		t.Errorf("Bill changed by a rejected payment: status %q, paid %s", got.Status, money.String(got.PaidAmount))
	}
	payments, err := a.ListPayments(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to list payments: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("Expected no payments, got %d", len(payments))
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	m, a, st := newTestManager(t)
	f := seedBillFixture(t, st)
	bill := openBill(t, m, f)

	tests := []struct {
		name string
		req  models.CreatePaymentRequest
	}{
		{
			name: "missing bill",
			req:  models.CreatePaymentRequest{PaymentDate: "2025-03-05", Amount: "10.00", SourceAccountID: f.bank.ID},
		},
		{
			name: "missing source account",
			req:  models.CreatePaymentRequest{BillID: bill.ID, PaymentDate: "2025-03-05", Amount: "10.00"},
		},
		{
			name: "bad date",
			req:  models.CreatePaymentRequest{BillID: bill.ID, PaymentDate: "March 5", Amount: "10.00", SourceAccountID: f.bank.ID},
		},
		{
			name: "unparseable amount",
			req:  models.CreatePaymentRequest{BillID: bill.ID, PaymentDate: "2025-03-05", Amount: "ten", SourceAccountID: f.bank.ID},
		},
		{
			name: "zero amount",
			req:  models.CreatePaymentRequest{BillID: bill.ID, PaymentDate: "2025-03-05", Amount: "0.00", SourceAccountID: f.bank.ID},
		},
		{
			name: "negative amount",
			req:  models.CreatePaymentRequest{BillID: bill.ID, PaymentDate: "2025-03-05", Amount: "-5.00", SourceAccountID: f.bank.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.CreatePayment(context.Background(), tt.req)
			if errs.KindOf(err) != errs.KindValidation {
				t.Errorf("CreatePayment() error = %v, expected a validation error", err)
			}
		})
	}

	t.Run("unknown bill", func(t *testing.T) {
		_, err := a.CreatePayment(context.Background(), models.CreatePaymentRequest{
			BillID: 9999, PaymentDate: "2025-03-05", Amount: "10.00", SourceAccountID: f.bank.ID,
		})
		if !errs.IsNotFound(err) {
			t.Errorf("CreatePayment() error = %v, expected not found", err)
		}
	})
}

func TestDeletePaymentRestoresBill(t *testing.T) {
	m, a, st := newTestManager(t)
	f := seedBillFixture(t, st)
	ctx := context.Background()

	bill := openBill(t, m, f)
	payment, err := a.CreatePayment(ctx, models.CreatePaymentRequest{
		BillID: bill.ID, PaymentDate: "2025-03-05", Amount: "100.00", SourceAccountID: f.bank.ID,
	})
	if err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}
	journalID := *payment.JournalID

	if err := a.DeletePayment(ctx, payment.ID); err != nil {
		t.Fatalf("Failed to delete payment: %v", err)
	}

	got, err := st.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to reload bill: %v", err)
	}
	if got.Status != models.BillStatusOpen {
		t.Errorf("Status = %q, expected open after the payment was unwound", got.Status)
	}
	if !money.IsZero(got.PaidAmount) {
		t.Errorf("PaidAmount = %s, expected zero", money.String(got.PaidAmount))
	}

	if _, err := a.GetPayment(ctx, payment.ID); !errs.IsNotFound(err) {
		t.Errorf("GetPayment() error = %v, expected not found", err)
	}
	if _, err := st.GetJournal(ctx, journalID); !errs.IsNotFound(err) {
		t.Errorf("GetJournal() error = %v, expected the payment journal removed", err)
	}

	if err := a.DeletePayment(ctx, payment.ID); !errs.IsNotFound(err) {
		t.Errorf("Second delete error = %v, expected not found", err)
	}
}

func TestCreateRefundKeepsPaidAmount(t *testing.T) {
	m, a, st := newTestManager(t)
	f := seedBillFixture(t, st)
	ctx := context.Background()

	bill := openBill(t, m, f)
	if _, err := a.CreatePayment(ctx, models.CreatePaymentRequest{
		BillID: bill.ID, PaymentDate: "2025-03-05", Amount: "100.00", SourceAccountID: f.bank.ID,
	}); err != nil {
		t.Fatalf("Failed to pay bill: %v", err)
	}

	refund, err := a.CreateRefund(ctx, models.CreateRefundRequest{
		BillID:          bill.ID,
		RefundDate:      "2025-03-10",
		Amount:          "25.00",
		TargetAccountID: f.bank.ID,
		Reason:          "damaged goods",
	})
	if err != nil {
		t.Fatalf("Failed to create refund: %v", err)
	}
	if refund.JournalID == nil {
		t.Fatal("Expected a refund journal")
	}

	j, err := st.GetJournal(ctx, *refund.JournalID)
	if err != nil {
		t.Fatalf("Failed to load refund journal: %v", err)
	}
	if j.Type != models.JournalTypeRefund {
		t.Errorf("Journal type = %q, expected refund", j.Type)
	}
	for _, line := range j.Lines {
		switch line.AccountID {
		case f.bank.ID:
			if money.String(line.Debit) != "25.00" {
				t.Errorf("Target debit = %s, expected 25.00", money.String(line.Debit))
			}
		case f.payable.ID:
			if money.String(line.Credit) != "25.00" {
				t.Errorf("Payable credit = %s, expected 25.00", money.String(line.Credit))
			}
		default:
			t.Errorf("Unexpected journal line on account %d", line.AccountID)
		}
	}

	// Refunds keep their own trail. The bill's settlement state stands.
	got, err := st.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to reload bill: %v", err)
	}
	if got.Status != models.BillStatusPaid {
		t.Errorf("Status = %q, expected paid after a refund", got.Status)
	}
	if money.String(got.PaidAmount) != "100.00" {
		t.Errorf("PaidAmount = %s, expected 100.00 untouched by the refund", money.String(got.PaidAmount))
	}

	refunds, err := a.ListRefunds(ctx, bill.ID)
	if err != nil {
		t.Fatalf("Failed to list refunds: %v", err)
	}
	if len(refunds) != 1 {
		t.Errorf("Expected 1 refund, got %d", len(refunds))
	}
}

func TestCreateRefundValidation(t *testing.T) {
	m, a, st := newTestManager(t)
	f := seedBillFixture(t, st)
	bill := openBill(t, m, f)

	tests := []struct {
		name string
		req  models.CreateRefundRequest
	}{
		{
			name: "missing bill",
			req:  models.CreateRefundRequest{RefundDate: "2025-03-10", Amount: "5.00", TargetAccountID: f.bank.ID},
		},
		{
			name: "missing target account",
			req:  models.CreateRefundRequest{BillID: bill.ID, RefundDate: "2025-03-10", Amount: "5.00"},
		},
		{
			name: "bad date",
			req:  models.CreateRefundRequest{BillID: bill.ID, RefundDate: "2025-3-1", Amount: "5.00", TargetAccountID: f.bank.ID},
		},
		{
			name: "zero amount",
			req:  models.CreateRefundRequest{BillID: bill.ID, RefundDate: "2025-03-10", Amount: "0", TargetAccountID: f.bank.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.CreateRefund(context.Background(), tt.req)
			if errs.KindOf(err) != errs.KindValidation {
				t.Errorf("CreateRefund() error = %v, expected a validation error", err)
			}
		})
	}

	t.Run("unknown bill", func(t *testing.T) {
		_, err := a.CreateRefund(context.Background(), models.CreateRefundRequest{
			BillID: 9999, RefundDate: "2025-03-10", Amount: "5.00", TargetAccountID: f.bank.ID,
		})
		if !errs.IsNotFound(err) {
			t.Errorf("CreateRefund() error = %v, expected not found", err)
		}
	})
}

func TestListAllocationsUnknownBill(t *testing.T) {
	_, a, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := a.ListPayments(ctx, 42); !errs.IsNotFound(err) {
		t.Errorf("ListPayments() error = %v, expected not found", err)
	}
	if _, err := a.ListRefunds(ctx, 42); !errs.IsNotFound(err) {
		t.Errorf("ListRefunds() error = %v, expected not found", err)
	}
}
