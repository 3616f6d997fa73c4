package domain

import "time"

// DocumentStatus is the review state reported by the upstream OCR pipeline.
type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "PENDING"
	DocumentConfirmed DocumentStatus = "CONFIRMED"
)

// SourceDocument is the accounting core's view of an OCR-extracted receipt.
// This core never mutates document content; it only links transactions and
// flips the split-enabled flag.
type SourceDocument struct {
	DocumentID    string         `json:"documentID"`
	TenantID      string         `json:"tenantID"`
	VendorName    string         `json:"vendorName"`
	DocumentDate  time.Time      `json:"documentDate"`
	TotalAmount   *Money         `json:"totalAmount"` // Recorded total, if the OCR pipeline extracted one
	Status        DocumentStatus `json:"status"`
	SplitEnabled  bool           `json:"splitEnabled"`
	TransactionID *string        `json:"transactionID"` // Draft transaction created from this document
	AuditFields
}
