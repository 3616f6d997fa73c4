package services

import (
	"context"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
)

// WorkflowSvcFacade sequences "register document -> create draft -> link ids"
// when the upstream OCR pipeline confirms a receipt. It is a thin caller of
// the transaction engine, not part of the consistency core.
type WorkflowSvcFacade interface {
	HandleDocumentConfirmed(ctx context.Context, evt dto.DocumentConfirmedEvent) (*domain.Transaction, error)
}
