package dto

import (
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// CreateTransactionRequest is the payload for creating a draft transaction.
// Amount is a decimal string ("10.50") converted to minor units at the boundary.
type CreateTransactionRequest struct {
	DebitAccount     string    `json:"debitAccount" binding:"required,accountcode"`
	CreditAccount    string    `json:"creditAccount" binding:"required,accountcode"`
	Amount           string    `json:"amount" binding:"required"`
	Description      string    `json:"description" binding:"required"`
	BusinessDate     time.Time `json:"businessDate" binding:"required"`
	SourceDocumentID *string   `json:"sourceDocumentID"`
}

// UpdateTransactionRequest carries the draft fields that may be changed.
// Nil fields are left untouched.
type UpdateTransactionRequest struct {
	DebitAccount  *string    `json:"debitAccount" binding:"omitempty,accountcode"`
	CreditAccount *string    `json:"creditAccount" binding:"omitempty,accountcode"`
	Amount        *string    `json:"amount"`
	Description   *string    `json:"description"`
	BusinessDate  *time.Time `json:"businessDate"`
}

// VoidTransactionRequest carries the mandatory void reason.
type VoidTransactionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListTransactionsParams holds query parameters for listing transactions.
type ListTransactionsParams struct {
	Status    *string `form:"status"`
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID    string     `json:"transactionID"`
	DebitAccount     string     `json:"debitAccount"`
	CreditAccount    string     `json:"creditAccount"`
	Amount           string     `json:"amount"`
	Description      string     `json:"description"`
	BusinessDate     time.Time  `json:"businessDate"`
	PostingDate      *time.Time `json:"postingDate,omitempty"`
	Status           string     `json:"status"`
	SourceDocumentID *string    `json:"sourceDocumentID,omitempty"`
	SplitGroupID     *string    `json:"splitGroupID,omitempty"`
	ReversalOfID     *string    `json:"reversalOfID,omitempty"`
	ReversedByID     *string    `json:"reversedByID,omitempty"`
	LedgerJournalRef *string    `json:"ledgerJournalRef,omitempty"`
	ApprovedBy       *string    `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CreatedBy        string     `json:"createdBy"`
}

// ListTransactionsResponse is a page of transactions plus the next-page token.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to its response DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:    t.TransactionID,
		DebitAccount:     t.DebitAccount,
		CreditAccount:    t.CreditAccount,
		Amount:           t.Amount.String(),
		Description:      t.Description,
		BusinessDate:     t.BusinessDate,
		PostingDate:      t.PostingDate,
		Status:           string(t.Status),
		SourceDocumentID: t.SourceDocumentID,
		SplitGroupID:     t.SplitGroupID,
		ReversalOfID:     t.ReversalOfID,
		ReversedByID:     t.ReversedByID,
		LedgerJournalRef: t.LedgerJournalRef,
		ApprovedBy:       t.ApprovedBy,
		ApprovedAt:       t.ApprovedAt,
		CreatedAt:        t.CreatedAt,
		CreatedBy:        t.CreatedBy,
	}
}

// ToTransactionResponses converts a slice of domain transactions.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = ToTransactionResponse(&txns[i])
	}
	return responses
}
