package bills

import (
	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
)

// deriveStatus returns the status implied by the paid amount: paid when it
// covers the total within a cent, partially paid when anything has been
// allocated, open otherwise.
func deriveStatus(paid, total decimal.Decimal) models.BillStatus {
	switch {
	case money.Equal(paid, total):
		return models.BillStatusPaid
	case money.GreaterThan(paid, money.Zero):
		return models.BillStatusPartiallyPaid
	default:
		return models.BillStatusOpen
	}
}
