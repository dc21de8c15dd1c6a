package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bank transaction directions, from the account holder's point of view.
const (
	DirectionCredit = "credit" // money in
	DirectionDebit  = "debit"  // money out
)

// BankTransaction is one statement line imported for a bank or card account.
// Reference carries the bank's own identifier and dedupes re-imports.
type BankTransaction struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	TxnDate     string          `json:"txn_date"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   string          `json:"direction"`
	Reference   string          `json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateBankTransactionRequest records one statement line by hand.
type CreateBankTransactionRequest struct {
	AccountID   int64  `json:"account_id"`
	TxnDate     string `json:"txn_date"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	Direction   string `json:"direction"`
	Reference   string `json:"reference,omitempty"`
}
