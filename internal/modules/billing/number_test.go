package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-202405-0001", FormatInvoiceNumber(2024, time.May, 1))
	assert.Equal(t, "INV-202412-0042", FormatInvoiceNumber(2024, time.December, 42))
	// Sequence wider than four digits keeps growing instead of wrapping.
	assert.Equal(t, "INV-202405-10001", FormatInvoiceNumber(2024, time.May, 10001))
}
