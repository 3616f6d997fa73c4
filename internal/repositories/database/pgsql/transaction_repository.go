package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	portsrepo "github.com/ledgerline/receipt-backoffice/internal/core/ports/repositories"
	"github.com/ledgerline/receipt-backoffice/internal/utils/pagination"
)

// PgxTransactionRepository persists double-entry transactions.
type PgxTransactionRepository struct {
	BaseRepository
}

// NewTransactionRepository creates a new repository for transaction data.
func NewTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxTransactionRepository implements the facade
var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `
	transaction_id, tenant_id, debit_account, credit_account, amount, description,
	business_date, posting_date, status, source_document_id, split_group_id, split_index,
	reversal_of_id, reversed_by_id, ledger_journal_ref, approved_by, approved_at, void_reason,
	created_at, created_by, last_updated_at, last_updated_by`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount int64
	err := row.Scan(
		&t.TransactionID,
		&t.TenantID,
		&t.DebitAccount,
		&t.CreditAccount,
		&amount,
		&t.Description,
		&t.BusinessDate,
		&t.PostingDate,
		&t.Status,
		&t.SourceDocumentID,
		&t.SplitGroupID,
		&t.SplitIndex,
		&t.ReversalOfID,
		&t.ReversedByID,
		&t.LedgerJournalRef,
		&t.ApprovedBy,
		&t.ApprovedAt,
		&t.VoidReason,
		&t.CreatedAt,
		&t.CreatedBy,
		&t.LastUpdatedAt,
		&t.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	t.Amount = domain.Money(amount)
	return &t, nil
}

const insertTransactionQuery = `
	INSERT INTO transactions (
		transaction_id, tenant_id, debit_account, credit_account, amount, description,
		business_date, posting_date, status, source_document_id, split_group_id, split_index,
		reversal_of_id, reversed_by_id, ledger_journal_ref, approved_by, approved_at, void_reason,
		created_at, created_by, last_updated_at, last_updated_by
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
`

func insertTransactionArgs(t domain.Transaction) []any {
	return []any{
		t.TransactionID,
		t.TenantID,
		t.DebitAccount,
		t.CreditAccount,
		int64(t.Amount),
		t.Description,
		t.BusinessDate,
		t.PostingDate,
		t.Status,
		t.SourceDocumentID,
		t.SplitGroupID,
		t.SplitIndex,
		t.ReversalOfID,
		t.ReversedByID,
		t.LedgerJournalRef,
		t.ApprovedBy,
		t.ApprovedAt,
		t.VoidReason,
		t.CreatedAt,
		t.CreatedBy,
		t.LastUpdatedAt,
		t.LastUpdatedBy,
	}
}

// SaveTransaction inserts a new transaction record.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	if _, err := r.Pool.Exec(ctx, insertTransactionQuery, insertTransactionArgs(txn)...); err != nil {
		return apperrors.NewAppError(500, "failed to insert transaction "+txn.TransactionID, err)
	}
	return nil
}

// FindTransactionByID retrieves a transaction scoped to its tenant.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, tenantID string, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1 AND tenant_id = $2;`
	txn, err := scanTransaction(r.Pool.QueryRow(ctx, query, transactionID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction "+transactionID, err)
	}
	return txn, nil
}

// ListTransactions retrieves a page of transactions ordered by creation time
// descending, using a (created_at, transaction_id) pagination token.
func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, tenantID string, filter portsrepo.ListTransactionsFilter) ([]domain.Transaction, *string, error) {
	args := []any{tenantID}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = $1`

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if filter.NextToken != nil {
		createdAt, id, err := pagination.DecodeToken(*filter.NextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		args = append(args, createdAt, id)
		query += fmt.Sprintf(" AND (created_at, transaction_id) < ($%d, $%d)", len(args)-1, len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to detect whether another page exists.
	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, transaction_id DESC LIMIT $%d;", len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to list transactions", err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan transaction row", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to iterate transaction rows", err)
	}

	var nextToken *string
	if len(transactions) > limit {
		transactions = transactions[:limit]
		last := transactions[len(transactions)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		nextToken = &token
	}
	return transactions, nextToken, nil
}

// FindTransactionsByGroupID retrieves a split group ordered by split index.
func (r *PgxTransactionRepository) FindTransactionsByGroupID(ctx context.Context, tenantID string, groupID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = $1 AND split_group_id = $2 ORDER BY split_index;`
	rows, err := r.Pool.Query(ctx, query, tenantID, groupID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query split group "+groupID, err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan split entry row", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate split entry rows", err)
	}
	return transactions, nil
}

// postedStatuses are the statuses that contribute to the trial balance:
// everything economically recorded, including void pairs which cancel out.
const postedStatuses = `('POSTED', 'VOIDED', 'REVERSAL')`

const trialBalanceQuery = `
	SELECT account,
	       SUM(debit) AS total_debit,
	       SUM(credit) AS total_credit
	FROM (
		SELECT debit_account AS account, amount AS debit, 0 AS credit
		FROM transactions
		WHERE tenant_id = $1 AND status IN ` + postedStatuses + `
			AND ($2::date IS NULL OR business_date >= $2)
			AND ($3::date IS NULL OR business_date <= $3)
		UNION ALL
		SELECT credit_account AS account, 0 AS debit, amount AS credit
		FROM transactions
		WHERE tenant_id = $1 AND status IN ` + postedStatuses + `
			AND ($2::date IS NULL OR business_date >= $2)
			AND ($3::date IS NULL OR business_date <= $3)
	) sides
	GROUP BY account
	ORDER BY account;
`

// GetTrialBalance aggregates debit and credit totals per account.
func (r *PgxTransactionRepository) GetTrialBalance(ctx context.Context, tenantID string, from *time.Time, to *time.Time) ([]domain.TrialBalanceRow, error) {
	return queryTrialBalance(ctx, r.Pool, tenantID, from, to)
}

// queryable is satisfied by both the pool and an open pgx.Tx, so the trial
// balance can be re-checked inside a write transaction.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryTrialBalance(ctx context.Context, q queryable, tenantID string, from *time.Time, to *time.Time) ([]domain.TrialBalanceRow, error) {
	rows, err := q.Query(ctx, trialBalanceQuery, tenantID, from, to)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query trial balance", err)
	}
	defer rows.Close()

	result := []domain.TrialBalanceRow{}
	for rows.Next() {
		var row domain.TrialBalanceRow
		var debit, credit int64
		if err := rows.Scan(&row.Account, &debit, &credit); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan trial balance row", err)
		}
		row.Debit = domain.Money(debit)
		row.Credit = domain.Money(credit)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate trial balance rows", err)
	}
	return result, nil
}

// CountPostedWithoutLedgerRef counts posted transactions that still lack a
// shadow-ledger reference.
func (r *PgxTransactionRepository) CountPostedWithoutLedgerRef(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM transactions WHERE tenant_id = $1 AND status = 'POSTED' AND ledger_journal_ref IS NULL;`
	if err := r.Pool.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count unsynced transactions", err)
	}
	return count, nil
}

// classifyConditionalMiss distinguishes "row missing" from "row exists but
// in the wrong status" after a conditional write touched zero rows.
func (r *PgxTransactionRepository) classifyConditionalMiss(ctx context.Context, tenantID string, transactionID string) error {
	var status domain.TransactionStatus
	err := r.Pool.QueryRow(ctx, `SELECT status FROM transactions WHERE transaction_id = $1 AND tenant_id = $2;`, transactionID, tenantID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewAppError(500, "failed to inspect transaction "+transactionID, err)
	}
	return fmt.Errorf("%w: transaction %s is %s", apperrors.ErrStateConflict, transactionID, status)
}

// UpdateDraft overwrites the mutable fields of a draft. The WHERE clause
// only matches drafts, so a concurrently approved row is left untouched.
func (r *PgxTransactionRepository) UpdateDraft(ctx context.Context, txn domain.Transaction) error {
	query := `
		UPDATE transactions
		SET debit_account = $3, credit_account = $4, amount = $5, description = $6,
		    business_date = $7, last_updated_at = $8, last_updated_by = $9
		WHERE transaction_id = $1 AND tenant_id = $2 AND status = 'DRAFT';
	`
	tag, err := r.Pool.Exec(ctx, query,
		txn.TransactionID,
		txn.TenantID,
		txn.DebitAccount,
		txn.CreditAccount,
		int64(txn.Amount),
		txn.Description,
		txn.BusinessDate,
		txn.LastUpdatedAt,
		txn.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update draft "+txn.TransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyConditionalMiss(ctx, txn.TenantID, txn.TransactionID)
	}
	return nil
}

// DeleteDraft removes a draft transaction. Non-draft rows are never matched.
func (r *PgxTransactionRepository) DeleteDraft(ctx context.Context, tenantID string, transactionID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1 AND tenant_id = $2 AND status = 'DRAFT';`, transactionID, tenantID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete draft "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyConditionalMiss(ctx, tenantID, transactionID)
	}
	return nil
}

// MarkSubmitted flips DRAFT -> PENDING_APPROVAL conditionally.
func (r *PgxTransactionRepository) MarkSubmitted(ctx context.Context, tenantID string, transactionID string, userID string, now time.Time) error {
	query := `
		UPDATE transactions
		SET status = 'PENDING_APPROVAL', last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = $1 AND tenant_id = $2 AND status = 'DRAFT';
	`
	tag, err := r.Pool.Exec(ctx, query, transactionID, tenantID, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to submit transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyConditionalMiss(ctx, tenantID, transactionID)
	}
	return nil
}

// MarkPosted flips an approvable transaction to POSTED. The status
// predicate makes the write a compare-and-swap: concurrent approvals of
// the same draft serialize, the loser sees ErrStateConflict.
func (r *PgxTransactionRepository) MarkPosted(ctx context.Context, tenantID string, transactionID string, approverID string, now time.Time) error {
	query := `
		UPDATE transactions
		SET status = 'POSTED', posting_date = $3, approved_by = $4, approved_at = $3,
		    last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = $1 AND tenant_id = $2 AND status IN ('DRAFT', 'PENDING_APPROVAL');
	`
	tag, err := r.Pool.Exec(ctx, query, transactionID, tenantID, now, approverID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to post transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyConditionalMiss(ctx, tenantID, transactionID)
	}
	return nil
}

// VoidWithReversal atomically marks the original VOIDED, inserts the
// reversal, and links both records in one database transaction.
func (r *PgxTransactionRepository) VoidWithReversal(ctx context.Context, original domain.Transaction, reversal domain.Transaction, reason string, userID string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	voidQuery := `
		UPDATE transactions
		SET status = 'VOIDED', void_reason = $3, reversed_by_id = $4,
		    last_updated_at = $5, last_updated_by = $6
		WHERE transaction_id = $1 AND tenant_id = $2 AND status = 'POSTED';
	`
	tag, err := tx.Exec(ctx, voidQuery, original.TransactionID, original.TenantID, reason, reversal.TransactionID, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to void transaction "+original.TransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyConditionalMiss(ctx, original.TenantID, original.TransactionID)
	}

	if _, err := tx.Exec(ctx, insertTransactionQuery, insertTransactionArgs(reversal)...); err != nil {
		return apperrors.NewAppError(500, "failed to insert reversal for "+original.TransactionID, err)
	}

	return r.Commit(ctx, tx)
}

// SaveSplitGroup atomically inserts every entry of a split group, re-runs
// the tenant trial-balance check, and marks the source document
// split-enabled. Any failure aborts the whole batch; partial split groups
// are never visible.
func (r *PgxTransactionRepository) SaveSplitGroup(ctx context.Context, entries []domain.Transaction, documentID string, userID string, now time.Time) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: split group must contain at least one entry", apperrors.ErrValidation)
	}
	tenantID := entries[0].TenantID

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(insertTransactionQuery, insertTransactionArgs(entry)...)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert split entries for document "+documentID, err)
	}

	// Re-run the trial balance inside the same transaction; a nonzero
	// difference aborts the batch before anything becomes visible.
	rows, err := queryTrialBalance(ctx, tx, tenantID, nil, nil)
	if err != nil {
		return err
	}
	var diff domain.Money
	for _, row := range rows {
		diff += row.Debit - row.Credit
	}
	if diff != 0 {
		return fmt.Errorf("%w: trial balance difference is %s after split", apperrors.ErrFinancialIntegrity, diff)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE source_documents SET split_enabled = TRUE, last_updated_at = $3, last_updated_by = $4 WHERE document_id = $1 AND tenant_id = $2;`,
		documentID, tenantID, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark document split-enabled "+documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}

// SetLedgerReference stores the external ledger journal reference. This is
// one of the few fields that may change after posting.
func (r *PgxTransactionRepository) SetLedgerReference(ctx context.Context, tenantID string, transactionID string, ref string, userID string, now time.Time) error {
	query := `
		UPDATE transactions
		SET ledger_journal_ref = $3, last_updated_at = $4, last_updated_by = $5
		WHERE transaction_id = $1 AND tenant_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query, transactionID, tenantID, ref, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to set ledger reference on "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
