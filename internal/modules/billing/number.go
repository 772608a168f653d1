package billing

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceNumberPrefix = "INV"

// FormatInvoiceNumber renders INV-{YYYYMM}-{NNNN}.
func FormatInvoiceNumber(year int, month time.Month, seq int) string {
	return fmt.Sprintf("%s-%04d%02d-%04d", invoiceNumberPrefix, year, int(month), seq)
}

// invoiceSequence is the per-month counter behind invoice numbers. One
// row per month, bumped under a row lock, so concurrent creations
// serialize on it instead of racing to compute the same max.
type invoiceSequence struct {
	Period    string `gorm:"column:period;primaryKey"`
	LastValue int    `gorm:"column:last_value;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (invoiceSequence) TableName() string { return "invoice_sequences" }

// nextInvoiceNumber bumps the month's sequence row and returns the
// formatted number. It must run inside the invoice-insert transaction.
// The row is created with ON CONFLICT DO NOTHING first: on a fresh
// month two concurrent transactions both reach for the same primary
// key, the loser blocks until the winner commits, and both then lock
// the same committed row. Numbers are audited by humans and must stay
// sequential, so the unique index on invoice_number stays as the
// backstop; hitting it means this locking is broken, not that the user
// did something wrong.
func nextInvoiceNumber(tx *gorm.DB, year int, month time.Month) (string, error) {
	period := fmt.Sprintf("%04d%02d", year, int(month))

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&invoiceSequence{Period: period}).Error
	if err != nil {
		return "", err
	}

	var seq invoiceSequence
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("period = ?", period).
		First(&seq).Error
	if err != nil {
		return "", err
	}

	seq.LastValue++
	err = tx.Model(&invoiceSequence{}).
		Where("period = ?", period).
		Update("last_value", seq.LastValue).Error
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(year, month, seq.LastValue), nil
}
