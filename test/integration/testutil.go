package integration

import (
	"fmt"
	"strings"

	"github.com/smallbooks/bookkeeper/internal/models"
)

// TestDataBuilder builds request payloads for integration scenarios.
type TestDataBuilder struct {
	vendorID  int64
	payableID int64
}

// NewTestDataBuilder creates a builder bound to one vendor and payable
// account.
func NewTestDataBuilder(vendorID, payableID int64) *TestDataBuilder {
	return &TestDataBuilder{vendorID: vendorID, payableID: payableID}
}

// Bill creates a bill request with the given lines.
func (b *TestDataBuilder) Bill(billDate string, lines ...models.CreateBillLineRequest) models.CreateBillRequest {
	return models.CreateBillRequest{
		VendorID:         b.vendorID,
		PayableAccountID: b.payableID,
		BillDate:         billDate,
		Lines:            lines,
	}
}

// Line creates one bill line.
func Line(accountID int64, quantity, unitPrice string) models.CreateBillLineRequest {
	return models.CreateBillLineRequest{AccountID: accountID, Quantity: quantity, UnitPrice: unitPrice}
}

// Payment creates a payment request against a bill.
func Payment(sourceAccountID int64, date, amount string) models.CreatePaymentRequest {
	return models.CreatePaymentRequest{
		PaymentDate:     date,
		Amount:          amount,
		SourceAccountID: sourceAccountID,
	}
}

// Refund creates a refund request against a bill.
func Refund(targetAccountID int64, date, amount string) models.CreateRefundRequest {
	return models.CreateRefundRequest{
		RefundDate:      date,
		Amount:          amount,
		TargetAccountID: targetAccountID,
	}
}

// GenericCSV builds a generic-format statement export from
// date,description,amount,reference rows.
func GenericCSV(rows ...string) string {
	return "date,description,amount,reference\n" + strings.Join(rows, "\n") + "\n"
}

// GenerateReference generates a statement reference for testing.
func GenerateReference(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}
