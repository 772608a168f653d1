package billing

type CreateInvoiceRequest struct {
	StudentID int64   `json:"student_id" binding:"required"`
	CourseID  *int64  `json:"course_id"`
	Subtotal  float64 `json:"subtotal" binding:"required,gt=0"`
	IssueDate string  `json:"issue_date"` // 2006-01-02, defaults to today
	DueDate   string  `json:"due_date" binding:"required"`
}

type ApplyPaymentRequest struct {
	Amount         float64 `json:"amount" binding:"required"`
	Method         string  `json:"method" binding:"required"`
	TransactionRef string  `json:"transaction_ref"`
}
