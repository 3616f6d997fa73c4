package repositories

import (
	"context"
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// DocumentReader defines read operations against the source-document store.
type DocumentReader interface {
	// FindDocumentByID retrieves a source document scoped to its tenant.
	FindDocumentByID(ctx context.Context, tenantID string, documentID string) (*domain.SourceDocument, error)
}

// DocumentWriter defines the narrow mutations this core applies to documents:
// registering them and linking the transaction created from them. Document
// content itself is owned by the upstream OCR pipeline.
type DocumentWriter interface {
	// SaveDocument registers a confirmed source document.
	SaveDocument(ctx context.Context, doc domain.SourceDocument) error

	// LinkTransaction records the draft transaction created from a document.
	LinkTransaction(ctx context.Context, tenantID string, documentID string, transactionID string, userID string, now time.Time) error
}

// DocumentRepositoryFacade combines document repository interfaces
type DocumentRepositoryFacade interface {
	DocumentReader
	DocumentWriter
}
