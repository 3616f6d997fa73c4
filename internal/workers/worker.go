package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
	"github.com/ledgerline/receipt-backoffice/internal/middleware"
)

const defaultSweepBatchSize = 50

// Worker handles the background tasks of the accounting core: document
// confirmation events and the periodic export retry sweep.
type Worker struct {
	workflow portssvc.WorkflowSvcFacade
	export   portssvc.ExportSvcFacade
	logger   *slog.Logger
}

func NewWorker(workflow portssvc.WorkflowSvcFacade, export portssvc.ExportSvcFacade, logger *slog.Logger) *Worker {
	return &Worker{
		workflow: workflow,
		export:   export,
		logger:   logger,
	}
}

// RegisterHandlers attaches task handlers to an asynq mux.
func (w *Worker) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDocumentConfirmed, w.HandleDocumentConfirmed)
	mux.HandleFunc(TypeExportSweep, w.HandleExportSweep)
}

// HandleDocumentConfirmed converts a confirmed receipt into a source
// document plus a draft transaction. Re-delivered events are absorbed by
// the workflow service, so the handler never retries a duplicate.
func (w *Worker) HandleDocumentConfirmed(ctx context.Context, task *asynq.Task) error {
	var evt dto.DocumentConfirmedEvent
	if err := json.Unmarshal(task.Payload(), &evt); err != nil {
		return fmt.Errorf("failed to unmarshal document confirmed payload: %w", err)
	}

	logger := w.logger.With(slog.String("task", TypeDocumentConfirmed), slog.String("document_id", evt.DocumentID))
	ctx = middleware.ContextWithLogger(ctx, logger)

	txn, err := w.workflow.HandleDocumentConfirmed(ctx, evt)
	if err != nil {
		logger.Error("document confirmed handling failed", slog.String("error", err.Error()))
		return err
	}
	if txn == nil {
		logger.Info("document already processed, skipping")
		return nil
	}
	logger.Info("draft created from document", slog.String("transaction_id", txn.TransactionID))
	return nil
}

// HandleExportSweep runs one pass of the export retry queue.
func (w *Worker) HandleExportSweep(ctx context.Context, task *asynq.Task) error {
	var payload exportSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal export sweep payload: %w", err)
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = defaultSweepBatchSize
	}

	logger := w.logger.With(slog.String("task", TypeExportSweep))
	ctx = middleware.ContextWithLogger(ctx, logger)

	result, err := w.export.ProcessRetryQueue(ctx, payload.BatchSize)
	if err != nil {
		logger.Error("export sweep failed", slog.String("error", err.Error()))
		return err
	}
	logger.Info("export sweep finished",
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	)
	return nil
}
