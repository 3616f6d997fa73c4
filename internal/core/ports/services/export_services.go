package services

import (
	"context"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
)

// ExportSvcFacade manages export records for posted transactions and drives
// the retry queue. Processing is invoked by an external scheduler; the
// service never self-schedules.
type ExportSvcFacade interface {
	// ExportTransaction creates a pending export record for a posted transaction.
	ExportTransaction(ctx context.Context, tenantID string, transactionID string, userID string) (*domain.ExportRecord, error)

	// ProcessRetryQueue claims up to batchSize due records, calls the remote
	// accounting endpoint once per record, and applies the backoff state
	// machine to each outcome.
	ProcessRetryQueue(ctx context.Context, batchSize int) (*dto.RetryQueueResult, error)

	// GetExportHistory retrieves the attempt lineage for one transaction.
	GetExportHistory(ctx context.Context, tenantID string, transactionID string) ([]domain.ExportRecord, error)

	// SyncLag reports the reconciliation lag between local state and the
	// external systems as a monitoring signal.
	SyncLag(ctx context.Context, tenantID string) (*dto.SyncLagResponse, error)
}
