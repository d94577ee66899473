// Package ledger holds the pure derived-state rules for invoices and sales:
// the status function and the money arithmetic helpers. Everything here is
// side-effect free; persistence lives in the services.
package ledger

import (
	"time"

	"retailsync/internal/model"

	"github.com/shopspring/decimal"
)

// ComputeStatus derives the ledger status from the paid amount, the total,
// the due date, and the reference date. The status is a pure function of
// these inputs and the current status:
//
//	paid            iff amountPaid >= total (over-payment stays paid)
//	partially_paid  iff 0 < amountPaid < total
//	overdue         iff unpaid past due and not already terminal
//	otherwise       the current draft/unpaid state is kept
//
// Terminal states (paid, cancelled) never revert.
func ComputeStatus(amountPaid, total decimal.Decimal, dueDate, asOf time.Time, current string) string {
	if current == model.StatusCancelled {
		return model.StatusCancelled
	}
	if amountPaid.GreaterThanOrEqual(total) {
		return model.StatusPaid
	}
	if amountPaid.GreaterThan(decimal.Zero) {
		return model.StatusPartiallyPaid
	}
	if !dueDate.IsZero() && dueDate.Before(truncateToDay(asOf)) {
		return model.StatusOverdue
	}
	if current == model.StatusDraft {
		return model.StatusDraft
	}
	return model.StatusUnpaid
}

// SaleStatus is the status function for sales, which carry no due date:
// paid / partially_paid / unpaid only.
func SaleStatus(amountPaid, total decimal.Decimal) string {
	if amountPaid.GreaterThanOrEqual(total) {
		return model.StatusPaid
	}
	if amountPaid.GreaterThan(decimal.Zero) {
		return model.StatusPartiallyPaid
	}
	return model.StatusUnpaid
}

// ItemTotal computes quantity x unit_price + tax - discount for one line,
// rounded to 2 decimal places.
func ItemTotal(quantity int, unitPrice, taxRate, discountAmount decimal.Decimal) decimal.Decimal {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	tax := base.Mul(taxRate).Div(decimal.NewFromInt(100))
	return base.Add(tax).Sub(discountAmount).Round(2)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
