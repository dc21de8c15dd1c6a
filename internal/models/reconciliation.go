package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reconciliation session states.
type SessionStatus string

const (
	SessionStatusDraft        SessionStatus = "draft"
	SessionStatusDraftPartial SessionStatus = "draft_partial"
	SessionStatusCompleted    SessionStatus = "completed"
	SessionStatusReopened     SessionStatus = "reopened"
)

// Editable reports whether items may still be cleared or matched.
func (s SessionStatus) Editable() bool {
	return s != SessionStatusCompleted
}

// Item types inside a session.
const (
	ItemTypeBank   = "bank"
	ItemTypeLedger = "ledger"
)

// ReconciliationSession reconciles one account against one bank statement
// period. StatementBalance is the bank's closing figure; StartingBalance is
// the agreed opening figure the arithmetic runs from.
type ReconciliationSession struct {
	ID               int64           `json:"id"`
	AccountID        int64           `json:"account_id"`
	PeriodStart      string          `json:"period_start"`
	PeriodEnd        string          `json:"period_end"`
	StartingBalance  decimal.Decimal `json:"starting_balance"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	Status           SessionStatus   `json:"status"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ReconciliationItem is one cleared entry in a session: either a bank
// transaction or a ledger line, identified by (ItemType, ItemID). MatchID
// groups items that were matched to each other; it is assigned when the
// session completes.
type ReconciliationItem struct {
	ID        int64   `json:"id"`
	SessionID int64   `json:"session_id"`
	ItemType  string  `json:"item_type"`
	ItemID    int64   `json:"item_id"`
	MatchID   *string `json:"match_id,omitempty"`
	ClearedAt string  `json:"cleared_at"`
}

// SessionTotals is the running arithmetic of a session, computed over the
// cleared bank-side items.
type SessionTotals struct {
	StartingBalance  decimal.Decimal `json:"starting_balance"`
	ClearedCredits   decimal.Decimal `json:"cleared_credits"`
	ClearedDebits    decimal.Decimal `json:"cleared_debits"`
	NetCleared       decimal.Decimal `json:"net_cleared"`
	EndingBalance    decimal.Decimal `json:"ending_balance"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	Difference       decimal.Decimal `json:"difference"`
	Balanced         bool            `json:"balanced"`
}

// MatchGroup pairs cleared bank items with cleared ledger items whose
// amounts net to zero.
type MatchGroup struct {
	BankIDs   []int64 `json:"bank_ids"`
	LedgerIDs []int64 `json:"ledger_ids"`
}

// CreateSessionRequest opens a reconciliation session for an account and
// statement period. StartingBalance may be omitted; the book balance as of
// the period start is used.
type CreateSessionRequest struct {
	AccountID        int64   `json:"account_id"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	StartingBalance  *string `json:"starting_balance,omitempty"`
	StatementBalance string  `json:"statement_balance"`
}

// UpdateSessionRequest patches a session's statement details. Only supplied
// fields change; the clearing set is untouched.
type UpdateSessionRequest struct {
	PeriodEnd        *string `json:"period_end,omitempty"`
	StatementBalance *string `json:"statement_balance,omitempty"`
}

// ToggleItemRequest clears or unclears one item in a session.
type ToggleItemRequest struct {
	ItemType string `json:"item_type"`
	ItemID   int64  `json:"item_id"`
	Cleared  bool   `json:"cleared"`
}

// CompleteSessionRequest finishes a session. When matches are supplied they
// must partition the cleared items, with the unreconciled lists naming
// what was left out. AllowImbalance lets a session complete with a nonzero
// difference.
type CompleteSessionRequest struct {
	Matches               []MatchGroup `json:"matches,omitempty"`
	UnreconciledBankIDs   []int64      `json:"unreconciled_bank_ids,omitempty"`
	UnreconciledLedgerIDs []int64      `json:"unreconciled_ledger_ids,omitempty"`
	AllowImbalance        bool         `json:"allow_imbalance,omitempty"`
}

// SessionCandidates is everything a reconciliation screen needs: the
// session, its in-period bank and ledger entries, which of them are cleared,
// and the running totals.
type SessionCandidates struct {
	Session     ReconciliationSession `json:"session"`
	BankItems   []BankTransaction     `json:"bank_items"`
	LedgerItems []LedgerLine          `json:"ledger_items"`
	Cleared     []ReconciliationItem  `json:"cleared"`
	Totals      SessionTotals         `json:"totals"`
}
