package services

import (
	"context"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// LedgerSvc is the shadow-ledger boundary consumed by the transaction and
// split-entry services. Implementations wrap the remote transport with a
// circuit breaker and retry; callers must treat every call as best-effort
// and never block local commits on it.
type LedgerSvc interface {
	// RecordEntry writes one journal to the shadow ledger. Positive account
	// deltas post as debits, negative deltas as credits, atomically on the
	// remote side.
	RecordEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerRef, error)

	// ReverseEntry voids a previously recorded journal.
	ReverseEntry(ctx context.Context, journalID string) error

	// GetBalance reads one account's balance from the shadow ledger.
	GetBalance(ctx context.Context, account string) (domain.Money, error)
}
