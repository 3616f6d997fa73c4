package services

import (
	"context"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
)

// SplitEntrySvcFacade decomposes one source document into N balanced journal
// entries, all-or-nothing.
type SplitEntrySvcFacade interface {
	// CreateSplitEntry verifies the itemized sum against the document total,
	// persists one entry per line item atomically, and mirror-posts the group
	// to the shadow ledger best-effort.
	CreateSplitEntry(ctx context.Context, tenantID string, req dto.CreateSplitEntryRequest, userID string) ([]domain.Transaction, error)

	// GetSplitEntries retrieves a split group by its correlation token.
	GetSplitEntries(ctx context.Context, tenantID string, groupID string) ([]domain.Transaction, error)
}
