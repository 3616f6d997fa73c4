package services

import (
	"context"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
)

// TransactionReaderSvc defines read operations for transaction data
type TransactionReaderSvc interface {
	// GetTransactionByID retrieves a specific transaction by its ID.
	GetTransactionByID(ctx context.Context, tenantID string, transactionID string) (*domain.Transaction, error)

	// ListTransactions retrieves a paginated list of transactions for a tenant.
	ListTransactions(ctx context.Context, tenantID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)

	// TrialBalance aggregates debits and credits per account and asserts the
	// totals match exactly. A nonzero difference is a FinancialIntegrity
	// condition, not a user error.
	TrialBalance(ctx context.Context, tenantID string, params dto.TrialBalanceParams) (*domain.TrialBalanceReport, error)
}

// TransactionWriterSvc defines lifecycle operations for transactions
type TransactionWriterSvc interface {
	// CreateDraft validates and persists a new draft transaction.
	CreateDraft(ctx context.Context, tenantID string, req dto.CreateTransactionRequest, creatorUserID string) (*domain.Transaction, error)

	// UpdateDraft changes the mutable fields of a draft transaction.
	UpdateDraft(ctx context.Context, tenantID string, transactionID string, req dto.UpdateTransactionRequest, userID string) (*domain.Transaction, error)

	// DeleteDraft removes a draft transaction. Any other status is rejected.
	DeleteDraft(ctx context.Context, tenantID string, transactionID string, userID string) error

	// SubmitForApproval moves a draft into the approval queue.
	SubmitForApproval(ctx context.Context, tenantID string, transactionID string, userID string) (*domain.Transaction, error)

	// Approve posts a draft transaction (local commit), then shadow-posts it
	// to the external ledger best-effort. Ledger failure never rolls back the
	// approval; local state is authoritative.
	Approve(ctx context.Context, tenantID string, transactionID string, approverID string) (*domain.Transaction, error)

	// Void marks a posted transaction voided and atomically creates its
	// reversal with swapped accounts. The ledger reversal afterwards is
	// best-effort.
	Void(ctx context.Context, tenantID string, transactionID string, reason string, userID string) (*domain.Transaction, error)
}

// TransactionSvcFacade combines all transaction lifecycle interfaces
type TransactionSvcFacade interface {
	TransactionReaderSvc
	TransactionWriterSvc
}
