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

var (
	ErrSameAccount        = errors.New("debit and credit account must differ")
	ErrNonPositiveAmount  = errors.New("transaction amount must be positive")
	ErrDescriptionMissing = errors.New("transaction description is required")
)

// transactionService implements the transaction lifecycle engine.
type transactionService struct {
	txnRepo portsrepo.TransactionRepositoryFacade
	docRepo portsrepo.DocumentReader
	ledger  portssvc.LedgerSvc
}

// TransactionServiceOption is a functional option for configuring the service.
type TransactionServiceOption func(*transactionService)

// WithLedger wires the shadow-ledger synchronization boundary. Without it,
// approvals still succeed; the ledger projection just lags.
func WithLedger(ledger portssvc.LedgerSvc) TransactionServiceOption {
	return func(s *transactionService) {
		s.ledger = ledger
	}
}

// NewTransactionService creates the transaction lifecycle service.
func NewTransactionService(txnRepo portsrepo.TransactionRepositoryFacade, docRepo portsrepo.DocumentReader, options ...TransactionServiceOption) portssvc.TransactionSvcFacade {
	svc := &transactionService{
		txnRepo: txnRepo,
		docRepo: docRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure transactionService implements the facade
var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

func (s *transactionService) validateAccounts(debit, credit string, amount domain.Money) error {
	if debit == credit {
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrSameAccount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrNonPositiveAmount)
	}
	return nil
}

// CreateDraft validates and persists a new draft transaction.
func (s *transactionService) CreateDraft(ctx context.Context, tenantID string, req dto.CreateTransactionRequest, creatorUserID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := s.validateAccounts(req.DebitAccount, req.CreditAccount, amount); err != nil {
		return nil, err
	}
	if req.Description == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrDescriptionMissing)
	}

	// A referenced source document must exist for this tenant.
	if req.SourceDocumentID != nil {
		if _, err := s.docRepo.FindDocumentByID(ctx, tenantID, *req.SourceDocumentID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: source document %s", apperrors.ErrValidation, *req.SourceDocumentID)
			}
			return nil, fmt.Errorf("failed to verify source document: %w", err)
		}
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID:    uuid.NewString(),
		TenantID:         tenantID,
		DebitAccount:     req.DebitAccount,
		CreditAccount:    req.CreditAccount,
		Amount:           amount,
		Description:      req.Description,
		BusinessDate:     req.BusinessDate,
		Status:           domain.StatusDraft,
		SourceDocumentID: req.SourceDocumentID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.txnRepo.SaveTransaction(ctx, txn); err != nil {
		logger.Error("Failed to save draft transaction", slog.String("error", err.Error()), slog.String("tenant_id", tenantID))
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	logger.Info("Draft transaction created", slog.String("transaction_id", txn.TransactionID), slog.String("tenant_id", tenantID))
	return &txn, nil
}

// GetTransactionByID retrieves a transaction scoped to the tenant.
func (s *transactionService) GetTransactionByID(ctx context.Context, tenantID string, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to find transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return txn, nil
}

// ListTransactions retrieves a paginated page of transactions for a tenant.
func (s *transactionService) ListTransactions(ctx context.Context, tenantID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	filter := portsrepo.ListTransactionsFilter{Limit: limit, NextToken: params.NextToken}
	if params.Status != nil {
		status := domain.TransactionStatus(*params.Status)
		switch status {
		case domain.StatusDraft, domain.StatusPendingApproval, domain.StatusPosted, domain.StatusVoided, domain.StatusReversal:
			filter.Status = &status
		default:
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, *params.Status)
		}
	}

	txns, nextToken, err := s.txnRepo.ListTransactions(ctx, tenantID, filter)
	if err != nil {
		logger.Error("Failed to list transactions", slog.String("error", err.Error()), slog.String("tenant_id", tenantID))
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	return &dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(txns),
		NextToken:    nextToken,
	}, nil
}

// UpdateDraft changes the mutable fields of a draft transaction. Any
// non-draft status is rejected; the conditional write in the repository
// closes the race with a concurrent approval.
func (s *transactionService) UpdateDraft(ctx context.Context, tenantID string, transactionID string, req dto.UpdateTransactionRequest, userID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	if !txn.IsDraftLike() {
		return nil, fmt.Errorf("%w: transaction %s is %s, expected %s", apperrors.ErrStateConflict, transactionID, txn.Status, domain.StatusDraft)
	}

	updated := false
	if req.DebitAccount != nil {
		txn.DebitAccount = *req.DebitAccount
		updated = true
	}
	if req.CreditAccount != nil {
		txn.CreditAccount = *req.CreditAccount
		updated = true
	}
	if req.Amount != nil {
		amount, err := domain.ParseMoney(*req.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		txn.Amount = amount
		updated = true
	}
	if req.Description != nil {
		txn.Description = *req.Description
		updated = true
	}
	if req.BusinessDate != nil {
		txn.BusinessDate = *req.BusinessDate
		updated = true
	}

	if !updated {
		return txn, nil
	}

	if err := s.validateAccounts(txn.DebitAccount, txn.CreditAccount, txn.Amount); err != nil {
		return nil, err
	}
	if txn.Description == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrDescriptionMissing)
	}

	txn.LastUpdatedAt = time.Now().UTC()
	txn.LastUpdatedBy = userID

	if err := s.txnRepo.UpdateDraft(ctx, *txn); err != nil {
		logger.Error("Failed to update draft transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}

	logger.Info("Draft transaction updated", slog.String("transaction_id", transactionID))
	return txn, nil
}

// DeleteDraft removes a draft transaction. Posted, voided and reversal
// records are never deleted.
func (s *transactionService) DeleteDraft(ctx context.Context, tenantID string, transactionID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
	if err != nil {
		return err
	}
	if !txn.IsDraftLike() {
		return fmt.Errorf("%w: cannot delete a %s transaction", apperrors.ErrStateConflict, txn.Status)
	}

	if err := s.txnRepo.DeleteDraft(ctx, tenantID, transactionID); err != nil {
		logger.Error("Failed to delete draft transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	logger.Info("Draft transaction deleted", slog.String("transaction_id", transactionID), slog.String("deleted_by", userID))
	return nil
}

// SubmitForApproval moves a draft into the approval queue.
func (s *transactionService) SubmitForApproval(ctx context.Context, tenantID string, transactionID string, userID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	if err := s.txnRepo.MarkSubmitted(ctx, tenantID, transactionID, userID, now); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrStateConflict) {
			logger.Error("Failed to submit transaction for approval", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return nil, err
	}

	logger.Info("Transaction submitted for approval", slog.String("transaction_id", transactionID))
	return s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
}

// Approve flips a draft to POSTED in one local commit, then shadow-posts it
// to the external ledger. The local commit is authoritative: a ledger
// failure is logged as a reconciliation warning and never rolls it back.
func (s *transactionService) Approve(ctx context.Context, tenantID string, transactionID string, approverID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	// Conditional write: only succeeds if the record is still approvable at
	// write time, serializing concurrent approvals of the same draft.
	if err := s.txnRepo.MarkPosted(ctx, tenantID, transactionID, approverID, now); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrStateConflict) {
			logger.Error("Failed to post transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return nil, err
	}

	txn, err := s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
	if err != nil {
		// The approval already committed; a failed reload is an internal
		// fault, not a caller-visible lifecycle state.
		logger.Error("Failed to reload posted transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return nil, fmt.Errorf("failed to reload posted transaction %s: %w", transactionID, apperrors.ErrInternal)
	}

	s.shadowPost(ctx, txn, approverID)

	logger.Info("Transaction approved", slog.String("transaction_id", transactionID), slog.String("approved_by", approverID))
	return txn, nil
}

// shadowPost mirrors a posted transaction to the external ledger,
// best-effort, outside the local commit boundary.
func (s *transactionService) shadowPost(ctx context.Context, txn *domain.Transaction, userID string) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if s.ledger == nil {
		return
	}

	ref, err := s.ledger.RecordEntry(ctx, domain.LedgerEntry{
		TenantID: txn.TenantID,
		Memo:     txn.Description,
		Date:     txn.BusinessDate,
		Entries: map[string]domain.Money{
			txn.DebitAccount:  txn.Amount,
			txn.CreditAccount: txn.Amount.Neg(),
		},
	})
	if err != nil {
		// Reconciliation warning only: local state is authoritative and the
		// ledger is a derived projection.
		logger.Warn("Ledger shadow-post failed, transaction remains out of sync",
			slog.String("transaction_id", txn.TransactionID),
			slog.String("error", err.Error()))
		return
	}

	if err := s.txnRepo.SetLedgerReference(ctx, txn.TenantID, txn.TransactionID, ref.JournalID, userID, time.Now().UTC()); err != nil {
		logger.Warn("Failed to store ledger reference", slog.String("transaction_id", txn.TransactionID), slog.String("error", err.Error()))
		return
	}
	txn.LedgerJournalRef = &ref.JournalID
}

// Void marks a posted transaction voided and atomically creates its
// reversal with debit/credit swapped and identical amount. The shadow-ledger
// reversal afterwards is best-effort.
func (s *transactionService) Void(ctx context.Context, tenantID string, transactionID string, reason string, userID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if reason == "" {
		return nil, fmt.Errorf("%w: void reason is required", apperrors.ErrValidation)
	}

	original, err := s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	if original.Status != domain.StatusPosted {
		return nil, fmt.Errorf("%w: transaction %s is %s, expected %s", apperrors.ErrStateConflict, transactionID, original.Status, domain.StatusPosted)
	}

	now := time.Now().UTC()
	reversal := original.Reversal(uuid.NewString(), now)
	reversal.AuditFields = domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}

	if err := s.txnRepo.VoidWithReversal(ctx, *original, reversal, reason, userID, now); err != nil {
		if !errors.Is(err, apperrors.ErrStateConflict) {
			logger.Error("Failed to void transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return nil, err
	}

	if s.ledger != nil && original.LedgerJournalRef != nil {
		if err := s.ledger.ReverseEntry(ctx, *original.LedgerJournalRef); err != nil {
			logger.Warn("Ledger reversal failed, journal remains out of sync",
				slog.String("transaction_id", transactionID),
				slog.String("ledger_ref", *original.LedgerJournalRef),
				slog.String("error", err.Error()))
		}
	}

	logger.Info("Transaction voided", slog.String("transaction_id", transactionID), slog.String("reversal_id", reversal.TransactionID))
	return s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
}

// TrialBalance sums debits and credits per account for the tenant. Total
// debits must equal total credits exactly; a nonzero difference is a
// data-integrity bug and surfaces as ErrFinancialIntegrity alongside the
// report so the caller can inspect the drift.
func (s *transactionService) TrialBalance(ctx context.Context, tenantID string, params dto.TrialBalanceParams) (*domain.TrialBalanceReport, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	rows, err := s.txnRepo.GetTrialBalance(ctx, tenantID, params.From, params.To)
	if err != nil {
		logger.Error("Failed to aggregate trial balance", slog.String("error", err.Error()), slog.String("tenant_id", tenantID))
		return nil, fmt.Errorf("failed to compute trial balance: %w", err)
	}

	report := &domain.TrialBalanceReport{
		TenantID: tenantID,
		From:     params.From,
		To:       params.To,
		Rows:     rows,
	}
	for _, row := range rows {
		report.TotalDebit += row.Debit
		report.TotalCredit += row.Credit
	}

	if !report.Balanced() {
		logger.Error("Trial balance does not sum to zero",
			slog.String("tenant_id", tenantID),
			slog.String("difference", report.Difference().String()))
		return report, fmt.Errorf("%w: trial balance difference is %s", apperrors.ErrFinancialIntegrity, report.Difference())
	}

	return report, nil
}
