package dto

import (
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// ExportRecordResponse defines the data returned for one export attempt lineage.
type ExportRecordResponse struct {
	ExportID       string     `json:"exportID"`
	TransactionID  string     `json:"transactionID"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attemptCount"`
	MaxRetries     int        `json:"maxRetries"`
	NextRetryAt    *time.Time `json:"nextRetryAt,omitempty"`
	LastAttemptAt  *time.Time `json:"lastAttemptAt,omitempty"`
	Endpoint       string     `json:"endpoint"`
	ExternalDocID  *string    `json:"externalDocID,omitempty"`
	ErrorCode      *string    `json:"errorCode,omitempty"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
	Retryable      bool       `json:"retryable"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	DurationMS     *int64     `json:"durationMS,omitempty"`
	ResponseStatus *int       `json:"responseStatus,omitempty"`
}

// RetryQueueResult summarizes one processing run over the export queue.
type RetryQueueResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SyncLagResponse is the monitoring view of local-vs-external drift:
// how far the shadow ledger and the accounting export lag local state.
type SyncLagResponse struct {
	PostedWithoutLedgerRef int64            `json:"postedWithoutLedgerRef"`
	ExportsByStatus        map[string]int64 `json:"exportsByStatus"`
}

// ToExportRecordResponse converts a domain.ExportRecord to its response DTO.
func ToExportRecordResponse(r *domain.ExportRecord) ExportRecordResponse {
	return ExportRecordResponse{
		ExportID:       r.ExportID,
		TransactionID:  r.TransactionID,
		Status:         string(r.Status),
		AttemptCount:   r.AttemptCount,
		MaxRetries:     r.MaxRetries,
		NextRetryAt:    r.NextRetryAt,
		LastAttemptAt:  r.LastAttemptAt,
		Endpoint:       r.Endpoint,
		ExternalDocID:  r.ExternalDocID,
		ErrorCode:      r.ErrorCode,
		ErrorMessage:   r.ErrorMessage,
		Retryable:      r.Retryable,
		CompletedAt:    r.CompletedAt,
		DurationMS:     r.DurationMS,
		ResponseStatus: r.ResponseStatus,
	}
}

// ToExportRecordResponses converts a slice of export records.
func ToExportRecordResponses(recs []domain.ExportRecord) []ExportRecordResponse {
	responses := make([]ExportRecordResponse, len(recs))
	for i := range recs {
		responses[i] = ToExportRecordResponse(&recs[i])
	}
	return responses
}
