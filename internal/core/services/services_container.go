package services

import (
	portsrepo "github.com/ledgerline/receipt-backoffice/internal/core/ports/repositories"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, ledger portssvc.LedgerSvc, exporter portssvc.AccountingExporter) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Transaction = NewTransactionService(
		repos.TransactionRepo,
		repos.DocumentRepo,
		WithLedger(ledger),
	)

	container.SplitEntry = NewSplitEntryService(
		repos.TransactionRepo,
		repos.DocumentRepo,
		WithSplitLedger(ledger),
	)

	container.Export = NewExportService(
		repos.ExportRepo,
		repos.TransactionRepo,
		exporter,
		WithBackoffPolicy(cfg.ExportBackoffPolicy()),
		WithMaxRetries(cfg.Export.MaxRetries),
		WithClaimTimeout(cfg.Export.ClaimTimeout),
	)

	// The workflow service creates drafts through the transaction service so
	// document-driven drafts follow the same validation path as manual ones.
	txnWriter := container.Transaction.(portssvc.TransactionWriterSvc)
	container.Workflow = NewWorkflowService(repos.DocumentRepo, txnWriter)

	return container
}

var (
	_ portssvc.TransactionSvcFacade = (*transactionService)(nil)
	_ portssvc.SplitEntrySvcFacade  = (*splitEntryService)(nil)
	_ portssvc.ExportSvcFacade      = (*exportService)(nil)
	_ portssvc.WorkflowSvcFacade    = (*workflowService)(nil)
)
