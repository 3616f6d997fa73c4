package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/ledgerline/receipt-backoffice/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TransactionRepo: NewTransactionRepository(dbPool),
		ExportRepo:      NewExportRepository(dbPool),
		DocumentRepo:    NewDocumentRepository(dbPool),
	}
}
