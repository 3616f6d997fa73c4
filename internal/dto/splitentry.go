package dto

// SplitLineItem is one OCR-extracted line item to be turned into a journal entry.
type SplitLineItem struct {
	DebitAccount string `json:"debitAccount" binding:"required,accountcode"`
	Amount       string `json:"amount" binding:"required"`
	Description  string `json:"description" binding:"required"`
}

// CreateSplitEntryRequest decomposes one source document into N balanced
// journal entries sharing a credit (payment) account.
type CreateSplitEntryRequest struct {
	SourceDocumentID string          `json:"sourceDocumentID" binding:"required"`
	CreditAccount    string          `json:"creditAccount" binding:"required,accountcode"`
	LineItems        []SplitLineItem `json:"lineItems" binding:"required,min=1,dive"`
}

// SplitEntryResponse is the persisted split group.
type SplitEntryResponse struct {
	SplitGroupID string                `json:"splitGroupID"`
	Entries      []TransactionResponse `json:"entries"`
}
