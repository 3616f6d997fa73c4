package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	portsrepo "github.com/ledgerline/receipt-backoffice/internal/core/ports/repositories"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
	"github.com/ledgerline/receipt-backoffice/internal/middleware"
)

// workflowActor is recorded as the audit actor for worker-triggered writes.
const workflowActor = "system:ocr-workflow"

// workflowService sequences the OCR-completion workflow: register the
// source document, create the draft transaction, link the identifiers.
type workflowService struct {
	docRepo portsrepo.DocumentRepositoryFacade
	txnSvc  portssvc.TransactionWriterSvc
}

// NewWorkflowService creates the workflow orchestrator.
func NewWorkflowService(docRepo portsrepo.DocumentRepositoryFacade, txnSvc portssvc.TransactionWriterSvc) portssvc.WorkflowSvcFacade {
	return &workflowService{
		docRepo: docRepo,
		txnSvc:  txnSvc,
	}
}

var _ portssvc.WorkflowSvcFacade = (*workflowService)(nil)

// HandleDocumentConfirmed registers the confirmed document, creates a draft
// transaction from the extracted fields, and links both records. Re-delivery
// of the same event is tolerated: an already-registered document is reused.
func (s *workflowService) HandleDocumentConfirmed(ctx context.Context, evt dto.DocumentConfirmedEvent) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	total, err := domain.ParseMoney(evt.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	now := time.Now().UTC()
	doc := domain.SourceDocument{
		DocumentID:   evt.DocumentID,
		TenantID:     evt.TenantID,
		VendorName:   evt.VendorName,
		DocumentDate: evt.DocumentDate,
		TotalAmount:  &total,
		Status:       domain.DocumentConfirmed,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     workflowActor,
			LastUpdatedAt: now,
			LastUpdatedBy: workflowActor,
		},
	}
	if err := s.docRepo.SaveDocument(ctx, doc); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) {
			logger.Error("Failed to register source document", slog.String("error", err.Error()), slog.String("document_id", evt.DocumentID))
			return nil, fmt.Errorf("failed to register source document: %w", err)
		}
		// Re-delivered event: do not create a second draft for the document.
		existing, err := s.docRepo.FindDocumentByID(ctx, evt.TenantID, evt.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload source document: %w", err)
		}
		if existing.TransactionID != nil {
			logger.Info("Document already linked to a transaction, skipping",
				slog.String("document_id", evt.DocumentID),
				slog.String("transaction_id", *existing.TransactionID))
			return nil, nil
		}
	}

	txn, err := s.txnSvc.CreateDraft(ctx, evt.TenantID, dto.CreateTransactionRequest{
		DebitAccount:     evt.DebitAccount,
		CreditAccount:    evt.CreditAccount,
		Amount:           evt.TotalAmount,
		Description:      evt.Description,
		BusinessDate:     evt.DocumentDate,
		SourceDocumentID: &evt.DocumentID,
	}, workflowActor)
	if err != nil {
		logger.Error("Failed to create draft from confirmed document", slog.String("error", err.Error()), slog.String("document_id", evt.DocumentID))
		return nil, fmt.Errorf("failed to create draft transaction: %w", err)
	}

	if err := s.docRepo.LinkTransaction(ctx, evt.TenantID, evt.DocumentID, txn.TransactionID, workflowActor, time.Now().UTC()); err != nil {
		logger.Error("Failed to link transaction to source document", slog.String("error", err.Error()), slog.String("document_id", evt.DocumentID))
		return nil, fmt.Errorf("failed to link document and transaction: %w", err)
	}

	logger.Info("Document workflow completed",
		slog.String("document_id", evt.DocumentID),
		slog.String("transaction_id", txn.TransactionID))
	return txn, nil
}
