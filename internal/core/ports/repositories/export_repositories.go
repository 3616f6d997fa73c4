package repositories

import (
	"context"
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// ExportRecordReader defines read operations for export records
type ExportRecordReader interface {
	// FindExportByID retrieves one export record scoped to its tenant.
	FindExportByID(ctx context.Context, tenantID string, exportID string) (*domain.ExportRecord, error)

	// ListExportsByTransaction retrieves the attempt lineage for one transaction, newest first.
	ListExportsByTransaction(ctx context.Context, tenantID string, transactionID string) ([]domain.ExportRecord, error)

	// CountExportsByStatus returns per-status record counts for a tenant.
	CountExportsByStatus(ctx context.Context, tenantID string) (map[domain.ExportStatus]int64, error)
}

// ExportRecordWriter defines write operations for export records
type ExportRecordWriter interface {
	// SaveExportRecord inserts a new export record.
	SaveExportRecord(ctx context.Context, rec domain.ExportRecord) error

	// ClaimDueExports selects up to batchSize PENDING/FAILED records whose
	// next retry is due, flips them to IN_PROGRESS, and returns them. Claimed
	// rows are skipped by concurrent workers so no record is processed twice
	// in overlapping runs. IN_PROGRESS rows untouched since staleBefore are
	// reclaimed too: a worker that died after claiming does not strand them.
	ClaimDueExports(ctx context.Context, batchSize int, now time.Time, staleBefore time.Time) ([]domain.ExportRecord, error)

	// UpdateExportRecord persists the outcome of an attempt.
	UpdateExportRecord(ctx context.Context, rec domain.ExportRecord) error
}

// ExportRepositoryFacade combines all export-record repository interfaces
type ExportRepositoryFacade interface {
	ExportRecordReader
	ExportRecordWriter
}
