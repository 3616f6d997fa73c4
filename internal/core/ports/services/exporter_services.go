package services

import (
	"context"
	"time"
)

// ExportSubmission is the explicit payload shape accepted by the external
// accounting endpoint.
type ExportSubmission struct {
	TransactionDate time.Time `json:"transactionDate"`
	DebitAccount    string    `json:"debitAccount"`
	CreditAccount   string    `json:"creditAccount"`
	Amount          string    `json:"amount"`
	Description     string    `json:"description"`
	ReferenceNumber string    `json:"referenceNumber"`
}

// ExportResult is a successful accounting-endpoint response.
type ExportResult struct {
	DocumentID string
	StatusCode int
	Body       string
}

// AccountingExporter is the transport boundary to the external accounting
// system. Failures are returned as *apperrors.ExternalSyncError with the
// retryable classification already applied.
type AccountingExporter interface {
	SubmitTransaction(ctx context.Context, sub ExportSubmission) (*ExportResult, error)

	// Endpoint reports the target URL, recorded on each export attempt.
	Endpoint() string
}
