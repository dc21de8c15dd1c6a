package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
)

// ComputeTotals derives a session's running arithmetic from its cleared
// bank items: net cleared is credits minus debits, the ending balance is
// the starting balance plus the net, and the difference is the statement
// balance minus the ending balance. A difference within a cent of zero is
// balanced.
func ComputeTotals(s *models.ReconciliationSession, clearedBank []models.BankTransaction) models.SessionTotals {
	credits, debits := money.Zero, money.Zero
	for _, t := range clearedBank {
		switch t.Direction {
		case models.DirectionCredit:
			credits = money.Add(credits, t.Amount)
		case models.DirectionDebit:
			debits = money.Add(debits, t.Amount)
		}
	}

	net := money.Sub(credits, debits)
	ending := money.Add(s.StartingBalance, net)
	diff := money.Sub(s.StatementBalance, ending)
	return models.SessionTotals{
		StartingBalance:  s.StartingBalance,
		ClearedCredits:   credits,
		ClearedDebits:    debits,
		NetCleared:       net,
		EndingBalance:    ending,
		StatementBalance: s.StatementBalance,
		Difference:       diff,
		Balanced:         money.IsZero(diff),
	}
}

// signedBank maps a statement line onto the credits-minus-debits axis a
// match group must net to zero on: credits positive, debits negative.
func signedBank(t *models.BankTransaction) decimal.Decimal {
	if t.Direction == models.DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// signedLedger does the same for a ledger line, so a deposit and the
// ledger debit that records it cancel.
func signedLedger(l *models.LedgerLine) decimal.Decimal {
	return l.Credit.Sub(l.Debit)
}
