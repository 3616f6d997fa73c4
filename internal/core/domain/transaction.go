package domain

import "time"

// TransactionStatus indicates where a transaction sits in its lifecycle.
type TransactionStatus string

const (
	StatusDraft           TransactionStatus = "DRAFT"
	StatusPendingApproval TransactionStatus = "PENDING_APPROVAL"
	StatusPosted          TransactionStatus = "POSTED"
	StatusVoided          TransactionStatus = "VOIDED"
	StatusReversal        TransactionStatus = "REVERSAL"
)

// Transaction is the atomic double-entry fact: one debit and one credit of
// identical amount against two different accounts.
type Transaction struct {
	TransactionID    string            `json:"transactionID"` // Primary Key (UUID)
	TenantID         string            `json:"tenantID"`      // Owning tenant (Not Null)
	DebitAccount     string            `json:"debitAccount"`  // Account code debited
	CreditAccount    string            `json:"creditAccount"` // Account code credited; must differ from DebitAccount
	Amount           Money             `json:"amount"`        // Minor units, > 0, same for both sides
	Description      string            `json:"description"`
	BusinessDate     time.Time         `json:"businessDate"` // Date the underlying event occurred
	PostingDate      *time.Time        `json:"postingDate"`  // Set when the transaction is posted
	Status           TransactionStatus `json:"status"`
	SourceDocumentID *string           `json:"sourceDocumentID"` // Optional link to the source document
	SplitGroupID     *string           `json:"splitGroupID"`     // Correlation token shared by a split group
	SplitIndex       *int              `json:"splitIndex"`       // Ordinal position within the split group
	ReversalOfID     *string           `json:"reversalOfID"`     // On a reversal: the voided original
	ReversedByID     *string           `json:"reversedByID"`     // On a voided original: its reversal
	LedgerJournalRef *string           `json:"ledgerJournalRef"` // External shadow-ledger journal reference
	ApprovedBy       *string           `json:"approvedBy"`
	ApprovedAt       *time.Time        `json:"approvedAt"`
	VoidReason       *string           `json:"voidReason"`
	AuditFields
}

// IsDraftLike reports whether the transaction may still be edited or deleted.
func (t *Transaction) IsDraftLike() bool {
	return t.Status == StatusDraft
}

// CanApprove reports whether an approval action is legal for the current status.
func (t *Transaction) CanApprove() bool {
	return t.Status == StatusDraft || t.Status == StatusPendingApproval
}

// Reversal builds the compensating transaction for a posted original:
// debit and credit accounts swapped, identical amount, linked back to the
// original. The caller assigns the new id and audit fields.
func (t *Transaction) Reversal(newID string, now time.Time) Transaction {
	posting := now
	return Transaction{
		TransactionID:    newID,
		TenantID:         t.TenantID,
		DebitAccount:     t.CreditAccount,
		CreditAccount:    t.DebitAccount,
		Amount:           t.Amount,
		Description:      "Reversal of: " + t.Description,
		BusinessDate:     t.BusinessDate,
		PostingDate:      &posting,
		Status:           StatusReversal,
		SourceDocumentID: t.SourceDocumentID,
		ReversalOfID:     &t.TransactionID,
	}
}

// TrialBalanceRow is one account's aggregated debit/credit totals.
type TrialBalanceRow struct {
	Account string `json:"account"`
	Debit   Money  `json:"debit"`
	Credit  Money  `json:"credit"`
}

// TrialBalanceReport aggregates debits and credits per account for a tenant.
// A nonzero Difference indicates a data-integrity bug, not a user error.
type TrialBalanceReport struct {
	TenantID    string            `json:"tenantID"`
	From        *time.Time        `json:"from"`
	To          *time.Time        `json:"to"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  Money             `json:"totalDebit"`
	TotalCredit Money             `json:"totalCredit"`
}

// Difference returns total debits minus total credits; zero when balanced.
func (r *TrialBalanceReport) Difference() Money {
	return r.TotalDebit - r.TotalCredit
}

// Balanced reports whether total debits equal total credits exactly.
func (r *TrialBalanceReport) Balanced() bool {
	return r.Difference() == 0
}
