package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Journal type codes. Types are free-form short codes; these are the ones
// the system itself writes.
const (
	JournalTypePurchase = "purchase"
	JournalTypePayment  = "payment"
	JournalTypeRefund   = "refund"
	JournalTypeManual   = "manual"
	JournalTypeReversal = "reversal"
)

// Journal is one balanced double-entry record. Debits equal credits across
// its lines within the rounding tolerance. A journal is immutable once
// posted; corrections are new reversing journals.
type Journal struct {
	ID         int64         `json:"id"`
	EntryDate  string        `json:"entry_date"`
	Type       string        `json:"type"`
	Memo       string        `json:"memo,omitempty"`
	Posted     bool          `json:"posted"`
	SourceType string        `json:"source_type,omitempty"`
	SourceID   *int64        `json:"source_id,omitempty"`
	ReversesID *int64        `json:"reverses_id,omitempty"`
	CreatedBy  string        `json:"created_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Lines      []JournalLine `json:"lines,omitempty"`
}

// JournalLine is one line of a journal. Exactly one of Debit or Credit is
// nonzero.
type JournalLine struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journal_id"`
	AccountID   int64           `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// LedgerLine is a journal line joined with its journal header, the shape
// account ledgers and reconciliation screens read.
type LedgerLine struct {
	LineID      int64           `json:"line_id"`
	JournalID   int64           `json:"journal_id"`
	EntryDate   string          `json:"entry_date"`
	JournalType string          `json:"journal_type"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code,omitempty"`
	AccountName string          `json:"account_name,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
	Memo        string          `json:"memo,omitempty"`
}

// CreateJournalRequest posts a manual journal entry.
type CreateJournalRequest struct {
	EntryDate string                     `json:"entry_date"`
	Memo      string                     `json:"memo,omitempty"`
	Type      string                     `json:"type,omitempty"`
	Lines     []CreateJournalLineRequest `json:"lines"`
}

// CreateJournalLineRequest is one line of a manual journal entry. Exactly
// one of Debit or Credit must be a positive decimal string.
type CreateJournalLineRequest struct {
	AccountID   int64  `json:"account_id"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Description string `json:"description,omitempty"`
}
