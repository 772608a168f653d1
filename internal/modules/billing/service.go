package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"driveschool/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db      *gorm.DB
	taxRate float64
	now     func() time.Time
	loggerf func(format string, args ...interface{})
}

// NewService wires the billing ledger. taxRate is the fixed rate applied
// once at invoice creation (e.g. 0.10 for 10%).
func NewService(db *gorm.DB, taxRate float64, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		db:      db,
		taxRate: taxRate,
		now:     time.Now,
		loggerf: loggerf,
	}
}

// CreateInvoice issues a new invoice in unpaid state. The invoice number
// is generated inside the same transaction as the insert so concurrent
// creations in one month cannot collide.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if req.Subtotal <= 0 {
		return nil, ErrValidation
	}

	issueDate := dayOf(s.now().UTC())
	if req.IssueDate != "" {
		d, err := time.Parse("2006-01-02", req.IssueDate)
		if err != nil {
			return nil, ErrValidation
		}
		issueDate = dayOf(d)
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, ErrValidation
	}
	dueDate = dayOf(dueDate)
	if dueDate.Before(issueDate) {
		return nil, ErrValidation
	}

	tax := roundCents(req.Subtotal * s.taxRate)
	total := roundCents(req.Subtotal + tax)

	var inv Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextInvoiceNumber(tx, issueDate.Year(), issueDate.Month())
		if err != nil {
			return err
		}

		inv = Invoice{
			InvoiceNumber: number,
			StudentID:     req.StudentID,
			CourseID:      req.CourseID,
			IssueDate:     issueDate,
			DueDate:       dueDate,
			Subtotal:      req.Subtotal,
			TaxAmount:     tax,
			TotalAmount:   total,
			AmountPaid:    0,
			BalanceDue:    total,
			Status:        InvoiceUnpaid,
		}
		return tx.Create(&inv).Error
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			// Locking around the number generator should make this
			// unreachable; treat it as an internal fault, not user error.
			s.loggerf("level=error msg=duplicate invoice number student_id=%d err=%v", req.StudentID, err)
			return nil, ErrDuplicateInvoiceNumber
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &inv, nil
}

// ApplyPayment adds a payment to an invoice: one transaction that locks
// the invoice row, bumps amount_paid, re-derives status and appends the
// immutable payment record. Either both rows land or neither does.
// Overpayment is accepted; balance_due floors at zero.
func (s *Service) ApplyPayment(ctx context.Context, invoiceID int64, amount float64, method, transactionRef string, processedBy int64) (*Invoice, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var inv Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, invoiceID).Error; err != nil {
			return err
		}

		now := s.now().UTC()
		inv.AmountPaid = roundCents(inv.AmountPaid + amount)
		inv.BalanceDue = BalanceDue(inv.AmountPaid, inv.TotalAmount)
		inv.Status = DeriveStatus(inv.AmountPaid, inv.TotalAmount, inv.DueDate, now)

		err := tx.Model(&Invoice{}).Where("id = ?", inv.ID).Updates(map[string]interface{}{
			"amount_paid": inv.AmountPaid,
			"balance_due": inv.BalanceDue,
			"status":      inv.Status,
		}).Error
		if err != nil {
			return err
		}

		p := Payment{
			InvoiceID:      inv.ID,
			Amount:         amount,
			Method:         method,
			TransactionRef: transactionRef,
			ProcessedBy:    processedBy,
			PaidAt:         now,
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		s.loggerf("level=error msg=apply payment failed invoice_id=%d amount=%.2f processed_by=%d err=%v",
			invoiceID, amount, processedBy, err)
		return nil, fmt.Errorf("apply payment: %w", err)
	}

	s.loggerf("level=info msg=payment applied invoice_id=%d amount=%.2f status=%s balance_due=%.2f processed_by=%d",
		inv.ID, amount, inv.Status, inv.BalanceDue, processedBy)
	return &inv, nil
}

// SweepOverdue reclassifies unpaid and partially paid invoices whose due
// date has passed. It is a pure function of stored state, so running it
// twice, or on any schedule, is harmless.
func (s *Service) SweepOverdue(ctx context.Context, today time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("status IN ? AND due_date < ?", []InvoiceStatus{InvoiceUnpaid, InvoicePartiallyPaid}, dayOf(today)).
		Update("status", InvoiceOverdue)
	if res.Error != nil {
		return 0, fmt.Errorf("sweep overdue: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteInvoice removes an invoice that has no payment history. Once a
// payment row references it, the invoice is part of the audit trail and
// stays.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, id).Error; err != nil {
			return err
		}

		var cnt int64
		if err := tx.Model(&Payment{}).Where("invoice_id = ?", id).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrHasPayments
		}
		return tx.Delete(&Invoice{}, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvoiceNotFound
	}
	return err
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	if err := s.db.WithContext(ctx).First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	if _, err := s.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}

	var payments []Payment
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
