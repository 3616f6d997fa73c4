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

// PgxDocumentRepository persists the accounting core's view of source documents.
type PgxDocumentRepository struct {
	BaseRepository
}

// NewDocumentRepository creates a new repository for source documents.
func NewDocumentRepository(pool *pgxpool.Pool) portsrepo.DocumentRepositoryFacade {
	return &PgxDocumentRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxDocumentRepository implements the facade
var _ portsrepo.DocumentRepositoryFacade = (*PgxDocumentRepository)(nil)

// FindDocumentByID retrieves a source document scoped to its tenant.
func (r *PgxDocumentRepository) FindDocumentByID(ctx context.Context, tenantID string, documentID string) (*domain.SourceDocument, error) {
	query := `
		SELECT document_id, tenant_id, vendor_name, document_date, total_amount, status,
		       split_enabled, transaction_id, created_at, created_by, last_updated_at, last_updated_by
		FROM source_documents
		WHERE document_id = $1 AND tenant_id = $2;
	`
	var doc domain.SourceDocument
	var total *int64
	err := r.Pool.QueryRow(ctx, query, documentID, tenantID).Scan(
		&doc.DocumentID,
		&doc.TenantID,
		&doc.VendorName,
		&doc.DocumentDate,
		&total,
		&doc.Status,
		&doc.SplitEnabled,
		&doc.TransactionID,
		&doc.CreatedAt,
		&doc.CreatedBy,
		&doc.LastUpdatedAt,
		&doc.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find document "+documentID, err)
	}
	if total != nil {
		m := domain.Money(*total)
		doc.TotalAmount = &m
	}
	return &doc, nil
}

// SaveDocument registers a confirmed source document. Re-registering an
// existing document returns ErrDuplicate so callers can treat event
// re-delivery as a no-op.
func (r *PgxDocumentRepository) SaveDocument(ctx context.Context, doc domain.SourceDocument) error {
	query := `
		INSERT INTO source_documents (
			document_id, tenant_id, vendor_name, document_date, total_amount, status,
			split_enabled, transaction_id, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (document_id) DO NOTHING;
	`
	var total *int64
	if doc.TotalAmount != nil {
		v := int64(*doc.TotalAmount)
		total = &v
	}
	tag, err := r.Pool.Exec(ctx, query,
		doc.DocumentID,
		doc.TenantID,
		doc.VendorName,
		doc.DocumentDate,
		total,
		doc.Status,
		doc.SplitEnabled,
		doc.TransactionID,
		doc.CreatedAt,
		doc.CreatedBy,
		doc.LastUpdatedAt,
		doc.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert document "+doc.DocumentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDuplicate
	}
	return nil
}

// LinkTransaction records the draft transaction created from a document.
func (r *PgxDocumentRepository) LinkTransaction(ctx context.Context, tenantID string, documentID string, transactionID string, userID string, now time.Time) error {
	query := `
		UPDATE source_documents
		SET transaction_id = $3, last_updated_at = $4, last_updated_by = $5
		WHERE document_id = $1 AND tenant_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query, documentID, tenantID, transactionID, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to link transaction to document "+documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
