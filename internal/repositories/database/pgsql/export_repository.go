package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	portsrepo "github.com/ledgerline/receipt-backoffice/internal/core/ports/repositories"
)

// PgxExportRepository persists export records and their attempt lineage.
type PgxExportRepository struct {
	BaseRepository
}

// NewExportRepository creates a new repository for export records.
func NewExportRepository(pool *pgxpool.Pool) portsrepo.ExportRepositoryFacade {
	return &PgxExportRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxExportRepository implements the facade
var _ portsrepo.ExportRepositoryFacade = (*PgxExportRepository)(nil)

const exportColumns = `
	export_id, transaction_id, tenant_id, status, attempt_count, max_retries,
	next_retry_at, last_attempt_at, endpoint, response_status, response_body,
	external_doc_id, error_code, error_message, retryable, started_at,
	completed_at, duration_ms, created_at, created_by, last_updated_at, last_updated_by`

func scanExportRecord(row rowScanner) (*domain.ExportRecord, error) {
	var rec domain.ExportRecord
	err := row.Scan(
		&rec.ExportID,
		&rec.TransactionID,
		&rec.TenantID,
		&rec.Status,
		&rec.AttemptCount,
		&rec.MaxRetries,
		&rec.NextRetryAt,
		&rec.LastAttemptAt,
		&rec.Endpoint,
		&rec.ResponseStatus,
		&rec.ResponseBody,
		&rec.ExternalDocID,
		&rec.ErrorCode,
		&rec.ErrorMessage,
		&rec.Retryable,
		&rec.StartedAt,
		&rec.CompletedAt,
		&rec.DurationMS,
		&rec.CreatedAt,
		&rec.CreatedBy,
		&rec.LastUpdatedAt,
		&rec.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveExportRecord inserts a new export record.
func (r *PgxExportRepository) SaveExportRecord(ctx context.Context, rec domain.ExportRecord) error {
	query := `
		INSERT INTO export_records (
			export_id, transaction_id, tenant_id, status, attempt_count, max_retries,
			next_retry_at, last_attempt_at, endpoint, response_status, response_body,
			external_doc_id, error_code, error_message, retryable, started_at,
			completed_at, duration_ms, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := r.Pool.Exec(ctx, query,
		rec.ExportID,
		rec.TransactionID,
		rec.TenantID,
		rec.Status,
		rec.AttemptCount,
		rec.MaxRetries,
		rec.NextRetryAt,
		rec.LastAttemptAt,
		rec.Endpoint,
		rec.ResponseStatus,
		rec.ResponseBody,
		rec.ExternalDocID,
		rec.ErrorCode,
		rec.ErrorMessage,
		rec.Retryable,
		rec.StartedAt,
		rec.CompletedAt,
		rec.DurationMS,
		rec.CreatedAt,
		rec.CreatedBy,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert export record "+rec.ExportID, err)
	}
	return nil
}

// FindExportByID retrieves one export record scoped to its tenant.
func (r *PgxExportRepository) FindExportByID(ctx context.Context, tenantID string, exportID string) (*domain.ExportRecord, error) {
	query := `SELECT ` + exportColumns + ` FROM export_records WHERE export_id = $1 AND tenant_id = $2;`
	rec, err := scanExportRecord(r.Pool.QueryRow(ctx, query, exportID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find export record "+exportID, err)
	}
	return rec, nil
}

// ListExportsByTransaction retrieves the attempt lineage for one transaction, newest first.
func (r *PgxExportRepository) ListExportsByTransaction(ctx context.Context, tenantID string, transactionID string) ([]domain.ExportRecord, error) {
	query := `SELECT ` + exportColumns + ` FROM export_records WHERE tenant_id = $1 AND transaction_id = $2 ORDER BY created_at DESC;`
	rows, err := r.Pool.Query(ctx, query, tenantID, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list export records for "+transactionID, err)
	}
	defer rows.Close()

	records := []domain.ExportRecord{}
	for rows.Next() {
		rec, err := scanExportRecord(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan export record row", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate export record rows", err)
	}
	return records, nil
}

// CountExportsByStatus returns per-status record counts for a tenant.
func (r *PgxExportRepository) CountExportsByStatus(ctx context.Context, tenantID string) (map[domain.ExportStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM export_records WHERE tenant_id = $1 GROUP BY status;`
	rows, err := r.Pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to count export records", err)
	}
	defer rows.Close()

	counts := map[domain.ExportStatus]int64{}
	for rows.Next() {
		var status domain.ExportStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan export count row", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate export count rows", err)
	}
	return counts, nil
}

// ClaimDueExports selects up to batchSize due PENDING/FAILED records, flips
// them to IN_PROGRESS, and returns them. SKIP LOCKED lets overlapping sweep
// runs partition the queue instead of double-processing it. IN_PROGRESS rows
// untouched since staleBefore are claims left by a dead worker and become
// due again.
func (r *PgxExportRepository) ClaimDueExports(ctx context.Context, batchSize int, now time.Time, staleBefore time.Time) ([]domain.ExportRecord, error) {
	query := `
		WITH due AS (
			SELECT export_id FROM export_records
			WHERE (status IN ('PENDING', 'FAILED') AND next_retry_at <= $1)
			   OR (status = 'IN_PROGRESS' AND last_updated_at < $3)
			ORDER BY next_retry_at NULLS LAST
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE export_records e
		SET status = 'IN_PROGRESS', next_retry_at = NULL, last_updated_at = $1
		FROM due
		WHERE e.export_id = due.export_id
		RETURNING ` + exportColumns + `;
	`
	rows, err := r.Pool.Query(ctx, query, now, batchSize, staleBefore)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to claim due export records", err)
	}
	defer rows.Close()

	records := []domain.ExportRecord{}
	for rows.Next() {
		rec, err := scanExportRecord(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan claimed export row", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate claimed export rows", err)
	}
	return records, nil
}

// UpdateExportRecord persists the outcome of an attempt.
func (r *PgxExportRepository) UpdateExportRecord(ctx context.Context, rec domain.ExportRecord) error {
	query := `
		UPDATE export_records
		SET status = $3, attempt_count = $4, next_retry_at = $5, last_attempt_at = $6,
		    response_status = $7, response_body = $8, external_doc_id = $9,
		    error_code = $10, error_message = $11, retryable = $12,
		    started_at = $13, completed_at = $14, duration_ms = $15,
		    last_updated_at = $16, last_updated_by = $17
		WHERE export_id = $1 AND tenant_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query,
		rec.ExportID,
		rec.TenantID,
		rec.Status,
		rec.AttemptCount,
		rec.NextRetryAt,
		rec.LastAttemptAt,
		rec.ResponseStatus,
		rec.ResponseBody,
		rec.ExternalDocID,
		rec.ErrorCode,
		rec.ErrorMessage,
		rec.Retryable,
		rec.StartedAt,
		rec.CompletedAt,
		rec.DurationMS,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update export record "+rec.ExportID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
