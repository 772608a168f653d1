package billing

import (
	"math"
	"time"
)

// DeriveStatus is the only place invoice status comes from. It is a pure
// function of the paid/total amounts, the due date and "today", so two
// invoices with the same inputs always agree.
func DeriveStatus(amountPaid, totalAmount float64, dueDate, today time.Time) InvoiceStatus {
	balance := BalanceDue(amountPaid, totalAmount)

	status := InvoiceUnpaid
	switch {
	case balance == 0:
		status = InvoicePaid
	case amountPaid > 0:
		status = InvoicePartiallyPaid
	}

	if status != InvoicePaid && dayOf(dueDate).Before(dayOf(today)) {
		return InvoiceOverdue
	}
	return status
}

// BalanceDue is total minus paid, floored at zero: overpayment clamps
// rather than producing a negative balance.
func BalanceDue(amountPaid, totalAmount float64) float64 {
	return roundCents(math.Max(0, totalAmount-amountPaid))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
