// Package export renders the books as Beancount plain-text accounting
// files, either as one ledger stream or split into monthly files.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "USD"

// Transaction is one Beancount transaction.
type Transaction struct {
	Date      string
	Narration string
	Payee     string
	Tags      []string
	Postings  []Posting
}

// Posting is one leg of a Beancount transaction.
type Posting struct {
	Account  string
	Amount   decimal.Decimal
	Currency string
	Comment  string
}

// Converter renders journals in Beancount syntax. Account names follow the
// five Beancount roots, derived from the account type.
type Converter struct {
	accounts map[int64]*models.Account
	currency string
}

// NewConverter creates a Converter over the given chart. currency defaults
// to DefaultCurrency when empty.
func NewConverter(accts []*models.Account, currency string) *Converter {
	if currency == "" {
		currency = DefaultCurrency
	}
	byID := make(map[int64]*models.Account, len(accts))
	for _, a := range accts {
		byID[a.ID] = a
	}
	return &Converter{accounts: byID, currency: currency}
}

// AccountName maps an account to its Beancount name, e.g.
// "Assets:BusinessChecking" for an asset named "Business Checking".
func (c *Converter) AccountName(a *models.Account) string {
	return typeRoot(a.Type) + ":" + sanitizeAccountName(a.Name)
}

func (c *Converter) accountNameByID(id int64) string {
	a, ok := c.accounts[id]
	if !ok {
		// Use an unmapped bucket so the output still parses
		return fmt.Sprintf("Expenses:Unmapped:Account%d", id)
	}
	return c.AccountName(a)
}

// ConvertJournal converts a journal and its lines to a Beancount
// transaction. Debits are positive, credits negative.
func (c *Converter) ConvertJournal(j *models.Journal) Transaction {
	var postings []Posting
	for _, line := range j.Lines {
		amount := line.Debit
		if line.Credit.IsPositive() {
			amount = line.Credit.Neg()
		}
		postings = append(postings, Posting{
			Account:  c.accountNameByID(line.AccountID),
			Amount:   amount,
			Currency: c.currency,
			Comment:  line.Description,
		})
	}

	narration := j.Memo
	if narration == "" {
		narration = j.Type + " entry"
	}

	return Transaction{
		Date:      j.EntryDate,
		Narration: narration,
		Tags:      buildTags(j),
		Postings:  postings,
	}
}

// FormatTransaction formats a transaction as Beancount text.
func (c *Converter) FormatTransaction(txn Transaction) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(txn.Date)
	sb.WriteString(" *")
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %q", txn.Payee))
	}
	sb.WriteString(fmt.Sprintf(" %q", txn.Narration))
	if len(txn.Tags) > 0 {
		sb.WriteString(" #")
		sb.WriteString(strings.Join(txn.Tags, " #"))
	}
	sb.WriteString("\n")

	// Postings, amounts right-aligned past the account column
	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		spaces := 60 - len(posting.Account)
		if spaces < 1 {
			spaces = 1
		}
		sb.WriteString(strings.Repeat(" ", spaces))

		sign := ""
		abs := posting.Amount
		if posting.Amount.IsNegative() {
			sign = "-"
			abs = posting.Amount.Neg()
		}
		sb.WriteString(fmt.Sprintf("%s%s %s", sign, money.String(abs), posting.Currency))

		if posting.Comment != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", posting.Comment))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// OpenDirective formats an account open directive dated at date.
func (c *Converter) OpenDirective(date string, a *models.Account) string {
	return fmt.Sprintf("%s open %s", date, c.AccountName(a))
}

// CloseDirective formats an account close directive dated at date.
func (c *Converter) CloseDirective(date string, a *models.Account) string {
	return fmt.Sprintf("%s close %s", date, c.AccountName(a))
}

func typeRoot(t models.AccountType) string {
	switch t {
	case models.AccountTypeAsset:
		return "Assets"
	case models.AccountTypeLiability:
		return "Liabilities"
	case models.AccountTypeEquity:
		return "Equity"
	case models.AccountTypeRevenue:
		return "Income"
	case models.AccountTypeExpense:
		return "Expenses"
	}
	return "Expenses"
}

// sanitizeAccountName turns a display name into a Beancount account
// segment: words are capitalized and joined, everything outside letters,
// digits, and hyphens is dropped.
func sanitizeAccountName(name string) string {
	var sb strings.Builder
	upperNext := true
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			upperNext = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			if upperNext {
				r = unicode.ToUpper(r)
				upperNext = false
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func buildTags(j *models.Journal) []string {
	if j.SourceType == "" || j.SourceID == nil {
		return nil
	}
	return []string{fmt.Sprintf("%s-%d", j.SourceType, *j.SourceID)}
}
