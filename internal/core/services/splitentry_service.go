package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	portsrepo "github.com/ledgerline/receipt-backoffice/internal/core/ports/repositories"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
	"github.com/ledgerline/receipt-backoffice/internal/middleware"
)

// splitEntryService decomposes one source document into N balanced journal
// entries sharing a credit (payment) account.
type splitEntryService struct {
	txnRepo portsrepo.TransactionRepositoryFacade
	docRepo portsrepo.DocumentReader
	ledger  portssvc.LedgerSvc
}

// SplitEntryServiceOption is a functional option for configuring the service.
type SplitEntryServiceOption func(*splitEntryService)

// WithSplitLedger wires the shadow-ledger mirror-posting boundary.
func WithSplitLedger(ledger portssvc.LedgerSvc) SplitEntryServiceOption {
	return func(s *splitEntryService) {
		s.ledger = ledger
	}
}

// NewSplitEntryService creates the split-entry accounting service.
func NewSplitEntryService(txnRepo portsrepo.TransactionRepositoryFacade, docRepo portsrepo.DocumentReader, options ...SplitEntryServiceOption) portssvc.SplitEntrySvcFacade {
	svc := &splitEntryService{
		txnRepo: txnRepo,
		docRepo: docRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SplitEntrySvcFacade = (*splitEntryService)(nil)

// CreateSplitEntry turns a multi-item source document into one draft
// transaction per line item. The itemized sum is verified against the
// document's recorded total before anything is written; all inserts, the
// trial-balance re-check, and the split-enabled flag execute in one atomic
// local boundary, so partial split groups are never visible.
func (s *splitEntryService) CreateSplitEntry(ctx context.Context, tenantID string, req dto.CreateSplitEntryRequest, userID string) ([]domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(req.LineItems) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", apperrors.ErrValidation)
	}

	doc, err := s.docRepo.FindDocumentByID(ctx, tenantID, req.SourceDocumentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: source document %s", apperrors.ErrNotFound, req.SourceDocumentID)
		}
		logger.Error("Failed to load source document for split", slog.String("error", err.Error()), slog.String("document_id", req.SourceDocumentID))
		return nil, fmt.Errorf("failed to load source document: %w", err)
	}

	// Parse and validate every line item before touching storage.
	amounts := make([]domain.Money, len(req.LineItems))
	var total domain.Money
	for i, item := range req.LineItems {
		amount, err := domain.ParseMoney(item.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: line item %d: %v", apperrors.ErrValidation, i, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: line item %d amount must be positive", apperrors.ErrValidation, i)
		}
		if item.DebitAccount == req.CreditAccount {
			return nil, fmt.Errorf("%w: line item %d debits the shared credit account", apperrors.ErrValidation, i)
		}
		amounts[i] = amount
		total += amount
	}

	// The itemized sum must equal the document's recorded total exactly.
	if doc.TotalAmount != nil && *doc.TotalAmount != total {
		logger.Error("Split total does not match document total",
			slog.String("document_id", doc.DocumentID),
			slog.String("document_total", doc.TotalAmount.String()),
			slog.String("items_total", total.String()))
		return nil, fmt.Errorf("%w: line items total %s but document records %s", apperrors.ErrFinancialIntegrity, total, *doc.TotalAmount)
	}

	now := time.Now().UTC()
	groupID := uuid.NewString()

	entries := make([]domain.Transaction, len(req.LineItems))
	for i, item := range req.LineItems {
		index := i
		entries[i] = domain.Transaction{
			TransactionID:    uuid.NewString(),
			TenantID:         tenantID,
			DebitAccount:     item.DebitAccount,
			CreditAccount:    req.CreditAccount,
			Amount:           amounts[i],
			Description:      item.Description,
			BusinessDate:     doc.DocumentDate,
			Status:           domain.StatusDraft,
			SourceDocumentID: &doc.DocumentID,
			SplitGroupID:     &groupID,
			SplitIndex:       &index,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}

	// One atomic boundary: entry inserts, trial-balance re-check, and the
	// split-enabled flag either all commit or none do.
	if err := s.txnRepo.SaveSplitGroup(ctx, entries, doc.DocumentID, userID, now); err != nil {
		logger.Error("Failed to save split group", slog.String("error", err.Error()), slog.String("document_id", doc.DocumentID))
		return nil, err
	}

	// Mirror-post each entry to the shadow ledger, best-effort: the local
	// commit already succeeded and is never rolled back for ledger failures.
	if s.ledger != nil {
		for i := range entries {
			entry := &entries[i]
			ref, err := s.ledger.RecordEntry(ctx, domain.LedgerEntry{
				TenantID: tenantID,
				Memo:     entry.Description,
				Date:     entry.BusinessDate,
				Entries: map[string]domain.Money{
					entry.DebitAccount:  entry.Amount,
					entry.CreditAccount: entry.Amount.Neg(),
				},
			})
			if err != nil {
				logger.Warn("Ledger mirror-post failed for split entry",
					slog.String("transaction_id", entry.TransactionID),
					slog.String("error", err.Error()))
				continue
			}
			if err := s.txnRepo.SetLedgerReference(ctx, tenantID, entry.TransactionID, ref.JournalID, userID, time.Now().UTC()); err != nil {
				logger.Warn("Failed to store ledger reference for split entry", slog.String("transaction_id", entry.TransactionID), slog.String("error", err.Error()))
				continue
			}
			entry.LedgerJournalRef = &ref.JournalID
		}
	}

	logger.Info("Split group created",
		slog.String("split_group_id", groupID),
		slog.String("document_id", doc.DocumentID),
		slog.Int("entry_count", len(entries)))
	return entries, nil
}

// GetSplitEntries retrieves a split group by its correlation token.
func (s *splitEntryService) GetSplitEntries(ctx context.Context, tenantID string, groupID string) ([]domain.Transaction, error) {
	entries, err := s.txnRepo.FindTransactionsByGroupID(ctx, tenantID, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve split group %s: %w", groupID, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: split group %s", apperrors.ErrNotFound, groupID)
	}
	return entries, nil
}
