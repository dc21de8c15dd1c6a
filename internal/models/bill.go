package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus is the payment lifecycle state of a bill. Status is a pure
// function of paid amount versus total, with one exception: a bill may be
// created as already paid.
type BillStatus string

const (
	BillStatusOpen          BillStatus = "open"
	BillStatusPartiallyPaid BillStatus = "partially_paid"
	BillStatusPaid          BillStatus = "paid"
)

// Bill is an accounts-payable obligation to a vendor. Total is the sum of
// its line totals; PaidAmount accumulates payment allocations. The payable
// account is the liability account the bill credits when opened.
type Bill struct {
	ID               int64           `json:"id"`
	VendorID         int64           `json:"vendor_id"`
	VendorName       string          `json:"vendor_name,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	BillDate         string          `json:"bill_date"`
	DueDate          string          `json:"due_date,omitempty"`
	Total            decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	Status           BillStatus      `json:"status"`
	PayableAccountID int64           `json:"payable_account_id"`
	JournalID        *int64          `json:"journal_id,omitempty"`
	Memo             string          `json:"memo,omitempty"`
	Deleted          bool            `json:"deleted"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Lines            []BillLine      `json:"lines,omitempty"`
}

// BillLine is one expense line on a bill. LineTotal is quantity times unit
// price rounded to two decimals; the sum of line totals defines the bill's
// total amount.
type BillLine struct {
	ID          int64           `json:"id"`
	BillID      int64           `json:"bill_id"`
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// BillPayment is one allocation of money against a bill, paid out of a
// funding account (bank, cash, or card liability).
type BillPayment struct {
	ID              int64           `json:"id"`
	BillID          int64           `json:"bill_id"`
	PaymentDate     string          `json:"payment_date"`
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountID int64           `json:"source_account_id"`
	JournalID       *int64          `json:"journal_id,omitempty"`
	Memo            string          `json:"memo,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BillRefund is money returned by a vendor against a bill. Refunds keep
// their own trail; they do not adjust the bill's paid amount.
type BillRefund struct {
	ID              int64           `json:"id"`
	BillID          int64           `json:"bill_id"`
	RefundDate      string          `json:"refund_date"`
	Amount          decimal.Decimal `json:"amount"`
	TargetAccountID int64           `json:"target_account_id"`
	JournalID       *int64          `json:"journal_id,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CreateBillRequest creates a bill together with its lines. Status may be
// "paid" for bills that arrive already settled (no opening journal is
// posted); otherwise it defaults to open. Amounts are decimal strings.
type CreateBillRequest struct {
	VendorID         int64                   `json:"vendor_id"`
	PayableAccountID int64                   `json:"payable_account_id"`
	Reference        string                  `json:"reference,omitempty"`
	BillDate         string                  `json:"bill_date"`
	DueDate          string                  `json:"due_date,omitempty"`
	Memo             string                  `json:"memo,omitempty"`
	Status           string                  `json:"status,omitempty"`
	PaidAmount       string                  `json:"paid_amount,omitempty"`
	Lines            []CreateBillLineRequest `json:"lines"`
}

// CreateBillLineRequest is one line of a bill create or update. Quantity
// defaults to 1 when omitted.
type CreateBillLineRequest struct {
	AccountID   int64  `json:"account_id"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	UnitPrice   string `json:"unit_price"`
}

// UpdateBillRequest patches a bill's header fields. When Lines is non-nil
// the full line set is replaced and the total recomputed.
type UpdateBillRequest struct {
	Reference *string                 `json:"reference,omitempty"`
	BillDate  *string                 `json:"bill_date,omitempty"`
	DueDate   *string                 `json:"due_date,omitempty"`
	Memo      *string                 `json:"memo,omitempty"`
	Lines     []CreateBillLineRequest `json:"lines,omitempty"`
}

// CreatePaymentRequest allocates a payment against a bill.
type CreatePaymentRequest struct {
	BillID          int64  `json:"bill_id"`
	PaymentDate     string `json:"payment_date"`
	Amount          string `json:"amount"`
	SourceAccountID int64  `json:"source_account_id"`
	Memo            string `json:"memo,omitempty"`
}

// CreateRefundRequest records a vendor refund against a bill.
type CreateRefundRequest struct {
	BillID          int64  `json:"bill_id"`
	RefundDate      string `json:"refund_date"`
	Amount          string `json:"amount"`
	TargetAccountID int64  `json:"target_account_id"`
	Reason          string `json:"reason,omitempty"`
}
