package billing

import "errors"

var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidAmount          = errors.New("payment amount must be positive")
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrHasPayments            = errors.New("invoice has payments and cannot be deleted")
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number generated")
)
