package dto

import "time"

// DocumentConfirmedEvent is the upstream OCR pipeline's completion payload:
// a reviewed receipt with extracted accounting fields, ready to become a
// source document plus a draft transaction.
type DocumentConfirmedEvent struct {
	DocumentID    string    `json:"documentID" binding:"required"`
	TenantID      string    `json:"tenantID" binding:"required"`
	VendorName    string    `json:"vendorName"`
	DocumentDate  time.Time `json:"documentDate" binding:"required"`
	TotalAmount   string    `json:"totalAmount" binding:"required"`
	DebitAccount  string    `json:"debitAccount" binding:"required"`
	CreditAccount string    `json:"creditAccount" binding:"required"`
	Description   string    `json:"description" binding:"required"`
}

// TrialBalanceParams bounds the trial balance aggregation by business date.
type TrialBalanceParams struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}
