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

// exportService drives the export retry queue. It never self-schedules:
// ProcessRetryQueue is invoked by an external scheduler (or the periodic
// worker task) and is idempotent per record within a run.
type exportService struct {
	exportRepo   portsrepo.ExportRepositoryFacade
	txnRepo      portsrepo.TransactionReader
	exporter     portssvc.AccountingExporter
	policy       domain.BackoffPolicy
	maxRetries   int
	claimTimeout time.Duration
	now          func() time.Time
}

// ExportServiceOption is a functional option for configuring the export service.
type ExportServiceOption func(*exportService)

// WithBackoffPolicy overrides the retry scheduling policy.
func WithBackoffPolicy(policy domain.BackoffPolicy) ExportServiceOption {
	return func(s *exportService) {
		s.policy = policy
	}
}

// WithMaxRetries overrides the per-record retry budget.
func WithMaxRetries(n int) ExportServiceOption {
	return func(s *exportService) {
		s.maxRetries = n
	}
}

// WithClaimTimeout overrides how long an IN_PROGRESS claim may sit untouched
// before a later sweep reclaims it from a dead worker.
func WithClaimTimeout(d time.Duration) ExportServiceOption {
	return func(s *exportService) {
		if d > 0 {
			s.claimTimeout = d
		}
	}
}

// WithExportClock injects the clock so backoff scheduling is testable
// without real timers.
func WithExportClock(now func() time.Time) ExportServiceOption {
	return func(s *exportService) {
		s.now = now
	}
}

// NewExportService creates the export retry-queue service.
func NewExportService(exportRepo portsrepo.ExportRepositoryFacade, txnRepo portsrepo.TransactionReader, exporter portssvc.AccountingExporter, options ...ExportServiceOption) portssvc.ExportSvcFacade {
	svc := &exportService{
		exportRepo: exportRepo,
		txnRepo:    txnRepo,
		exporter:   exporter,
		policy: domain.BackoffPolicy{
			InitialInterval: time.Minute,
			MaxInterval:     time.Hour,
			Multiplier:      2,
		},
		maxRetries:   3,
		claimTimeout: 10 * time.Minute,
		now:          time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ExportSvcFacade = (*exportService)(nil)

// ExportTransaction creates a pending export record for a posted
// transaction. The record becomes due immediately; the next queue run
// performs the first attempt.
func (s *exportService) ExportTransaction(ctx context.Context, tenantID string, transactionID string, userID string) (*domain.ExportRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.StatusPosted {
		return nil, fmt.Errorf("%w: only posted transactions are exported, %s is %s", apperrors.ErrStateConflict, transactionID, txn.Status)
	}

	now := s.now().UTC()
	rec := domain.ExportRecord{
		ExportID:      uuid.NewString(),
		TransactionID: transactionID,
		TenantID:      tenantID,
		Status:        domain.ExportPending,
		MaxRetries:    s.maxRetries,
		NextRetryAt:   &now,
		Endpoint:      s.exporter.Endpoint(),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.exportRepo.SaveExportRecord(ctx, rec); err != nil {
		logger.Error("Failed to create export record", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return nil, fmt.Errorf("failed to create export record: %w", err)
	}

	logger.Info("Export record created", slog.String("export_id", rec.ExportID), slog.String("transaction_id", transactionID))
	return &rec, nil
}

// ProcessRetryQueue claims due records and performs exactly one remote
// attempt per claimed record. The claim (status flip to IN_PROGRESS) keeps
// overlapping runs from processing the same record twice.
func (s *exportService) ProcessRetryQueue(ctx context.Context, batchSize int) (*dto.RetryQueueResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if batchSize <= 0 {
		batchSize = 50
	}

	now := s.now().UTC()
	records, err := s.exportRepo.ClaimDueExports(ctx, batchSize, now, now.Add(-s.claimTimeout))
	if err != nil {
		logger.Error("Failed to claim due export records", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to claim export records: %w", err)
	}

	result := &dto.RetryQueueResult{}
	for i := range records {
		rec := &records[i]
		result.Processed++
		if s.attempt(ctx, rec) {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	if result.Processed > 0 {
		logger.Info("Export retry queue processed",
			slog.Int("processed", result.Processed),
			slog.Int("succeeded", result.Succeeded),
			slog.Int("failed", result.Failed))
	}
	return result, nil
}

// attempt performs one remote call for a claimed record and persists the
// resulting state transition. It reports whether the attempt succeeded.
func (s *exportService) attempt(ctx context.Context, rec *domain.ExportRecord) bool {
	logger := middleware.GetLoggerFromCtx(ctx)

	// The claim flips status in SQL; the lineage timestamps (started_at,
	// last_attempt_at) are stamped here so every persisted outcome carries them.
	rec.Begin(s.now().UTC())

	txn, err := s.txnRepo.FindTransactionByID(ctx, rec.TenantID, rec.TransactionID)
	if err != nil {
		// The transaction is gone or unreadable; treat as a non-retryable failure.
		s.applyFailure(ctx, rec, domain.AttemptOutcome{
			ErrorCode:    "TRANSACTION_UNAVAILABLE",
			ErrorMessage: err.Error(),
			Retryable:    false,
		})
		return false
	}

	res, err := s.exporter.SubmitTransaction(ctx, portssvc.ExportSubmission{
		TransactionDate: txn.BusinessDate,
		DebitAccount:    txn.DebitAccount,
		CreditAccount:   txn.CreditAccount,
		Amount:          txn.Amount.String(),
		Description:     txn.Description,
		ReferenceNumber: txn.TransactionID,
	})
	now := s.now().UTC()
	if err != nil {
		outcome := domain.AttemptOutcome{
			ErrorCode:    "EXPORT_CALL_FAILED",
			ErrorMessage: err.Error(),
			Retryable:    apperrors.IsRetryable(err),
		}
		var syncErr *apperrors.ExternalSyncError
		if errors.As(err, &syncErr) {
			outcome.ResponseStatus = syncErr.StatusCode
			outcome.ResponseBody = syncErr.Body
		}
		s.applyFailure(ctx, rec, outcome)
		return false
	}

	rec.Succeed(now, domain.AttemptOutcome{
		ExternalDocID:  res.DocumentID,
		ResponseStatus: res.StatusCode,
		ResponseBody:   res.Body,
	})
	rec.LastUpdatedAt = now
	if err := s.exportRepo.UpdateExportRecord(ctx, *rec); err != nil {
		logger.Error("Failed to persist successful export attempt", slog.String("error", err.Error()), slog.String("export_id", rec.ExportID))
		return false
	}

	logger.Info("Transaction exported",
		slog.String("export_id", rec.ExportID),
		slog.String("transaction_id", rec.TransactionID),
		slog.String("external_doc_id", res.DocumentID))
	return true
}

func (s *exportService) applyFailure(ctx context.Context, rec *domain.ExportRecord, outcome domain.AttemptOutcome) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := s.now().UTC()
	rec.Fail(now, outcome, s.policy)
	rec.LastUpdatedAt = now
	if err := s.exportRepo.UpdateExportRecord(ctx, *rec); err != nil {
		logger.Error("Failed to persist failed export attempt", slog.String("error", err.Error()), slog.String("export_id", rec.ExportID))
		return
	}

	if rec.Status == domain.ExportAbandoned {
		logger.Warn("Export abandoned after exhausting retries",
			slog.String("export_id", rec.ExportID),
			slog.String("transaction_id", rec.TransactionID),
			slog.Int("attempts", rec.AttemptCount))
	} else {
		logger.Warn("Export attempt failed, retry scheduled",
			slog.String("export_id", rec.ExportID),
			slog.String("transaction_id", rec.TransactionID),
			slog.Int("attempts", rec.AttemptCount),
			slog.Time("next_retry_at", *rec.NextRetryAt))
	}
}

// GetExportHistory retrieves the attempt lineage for one transaction.
func (s *exportService) GetExportHistory(ctx context.Context, tenantID string, transactionID string) ([]domain.ExportRecord, error) {
	records, err := s.exportRepo.ListExportsByTransaction(ctx, tenantID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve export history for %s: %w", transactionID, err)
	}
	return records, nil
}

// SyncLag reports local-vs-external drift as a monitoring signal: posted
// transactions without a ledger reference, and export records per status.
func (s *exportService) SyncLag(ctx context.Context, tenantID string) (*dto.SyncLagResponse, error) {
	unsynced, err := s.txnRepo.CountPostedWithoutLedgerRef(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unsynced transactions: %w", err)
	}

	counts, err := s.exportRepo.CountExportsByStatus(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count export records: %w", err)
	}

	byStatus := make(map[string]int64, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}

	return &dto.SyncLagResponse{
		PostedWithoutLedgerRef: unsynced,
		ExportsByStatus:        byStatus,
	}, nil
}
