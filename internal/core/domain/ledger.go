package domain

import "time"

// LedgerEntry is one journal write against the external shadow ledger.
// Entries maps account codes to signed minor-unit deltas: positive deltas
// post as debits, negative deltas post as credits.
type LedgerEntry struct {
	TenantID string           `json:"tenantID"`
	Memo     string           `json:"memo"`
	Date     time.Time        `json:"date"`
	Entries  map[string]Money `json:"entries"`
}

// LedgerRef identifies a journal previously written to the shadow ledger,
// stored back on the local transaction for later reversal.
type LedgerRef struct {
	JournalID    string   `json:"journalID"`
	Transactions []string `json:"transactions"`
}
