package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceUnpaid        InvoiceStatus = "unpaid"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
)

// Invoice tracks money owed by a student for a course package. Status is
// always derivable from the amounts and the due date; nothing sets it by
// hand outside DeriveStatus.
type Invoice struct {
	ID            int64  `json:"id" gorm:"primaryKey"`
	InvoiceNumber string `json:"invoice_number" gorm:"uniqueIndex;not null"`
	StudentID     int64  `json:"student_id" gorm:"index;not null"`
	CourseID      *int64 `json:"course_id,omitempty"`

	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`

	Subtotal    float64 `json:"subtotal" gorm:"not null"`
	TaxAmount   float64 `json:"tax_amount" gorm:"not null"`
	TotalAmount float64 `json:"total_amount" gorm:"not null"`
	AmountPaid  float64 `json:"amount_paid" gorm:"not null;default:0"`
	BalanceDue  float64 `json:"balance_due" gorm:"not null"`

	Status InvoiceStatus `json:"status" gorm:"type:varchar(16);not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// Payment is the immutable audit record of one money transfer. Rows are
// only ever inserted.
type Payment struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceID      int64     `json:"invoice_id" gorm:"not null;index"`
	Amount         float64   `json:"amount" gorm:"not null"`
	Method         string    `json:"method" gorm:"type:varchar(32);not null"`
	TransactionRef string    `json:"transaction_ref"`
	ProcessedBy    int64     `json:"processed_by" gorm:"not null"`
	PaidAt         time.Time `json:"paid_at"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`

	Invoice *Invoice `json:"invoice,omitempty" gorm:"foreignKey:InvoiceID;references:ID"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
