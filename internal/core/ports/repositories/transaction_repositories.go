package repositories

import (
	"context"
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// ListTransactionsFilter narrows a paginated transaction listing.
type ListTransactionsFilter struct {
	Status    *domain.TransactionStatus
	Limit     int
	NextToken *string
}

// TransactionReader defines read operations for transaction data
type TransactionReader interface {
	// FindTransactionByID retrieves a transaction scoped to its tenant.
	FindTransactionByID(ctx context.Context, tenantID string, transactionID string) (*domain.Transaction, error)

	// ListTransactions retrieves a paginated list of transactions for a tenant
	// using token-based pagination. It returns the transactions, a token for
	// the next page, and an error.
	ListTransactions(ctx context.Context, tenantID string, filter ListTransactionsFilter) ([]domain.Transaction, *string, error)

	// FindTransactionsByGroupID retrieves all split entries sharing a group token, ordered by split index.
	FindTransactionsByGroupID(ctx context.Context, tenantID string, groupID string) ([]domain.Transaction, error)

	// GetTrialBalance aggregates debit and credit totals per account over
	// posted (and reversal) transactions, optionally bounded by business date.
	GetTrialBalance(ctx context.Context, tenantID string, from *time.Time, to *time.Time) ([]domain.TrialBalanceRow, error)

	// CountPostedWithoutLedgerRef counts posted transactions that have not yet
	// received a shadow-ledger journal reference (reconciliation lag signal).
	CountPostedWithoutLedgerRef(ctx context.Context, tenantID string) (int64, error)
}

// TransactionWriter defines write operations for transaction data
type TransactionWriter interface {
	// SaveTransaction inserts a new transaction record.
	SaveTransaction(ctx context.Context, txn domain.Transaction) error

	// UpdateDraft overwrites the mutable fields of a draft. The update is
	// conditional on the row still being a draft at write time; it returns
	// ErrStateConflict otherwise.
	UpdateDraft(ctx context.Context, txn domain.Transaction) error

	// DeleteDraft removes a draft transaction. Non-draft rows are never deleted.
	DeleteDraft(ctx context.Context, tenantID string, transactionID string) error

	// MarkSubmitted flips DRAFT -> PENDING_APPROVAL conditionally.
	MarkSubmitted(ctx context.Context, tenantID string, transactionID string, userID string, now time.Time) error

	// MarkPosted flips a draft (or pending-approval) transaction to POSTED,
	// capturing approver and time. The write only succeeds if the row is
	// still approvable at write time (compare-and-swap on status).
	MarkPosted(ctx context.Context, tenantID string, transactionID string, approverID string, now time.Time) error

	// VoidWithReversal atomically marks the original VOIDED, inserts the
	// reversal transaction, and links both records. No partial write of this
	// boundary is ever observable.
	VoidWithReversal(ctx context.Context, original domain.Transaction, reversal domain.Transaction, reason string, userID string, now time.Time) error

	// SaveSplitGroup atomically inserts every entry of a split group,
	// re-runs the tenant trial-balance check, and marks the source document
	// split-enabled. A failure at any step aborts the entire batch.
	SaveSplitGroup(ctx context.Context, entries []domain.Transaction, documentID string, userID string, now time.Time) error

	// SetLedgerReference stores the external shadow-ledger journal reference
	// on a posted transaction. This is one of the few mutations permitted
	// after posting.
	SetLedgerReference(ctx context.Context, tenantID string, transactionID string, ref string, userID string, now time.Time) error
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}
