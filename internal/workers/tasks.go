package workers

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/receipt-backoffice/internal/dto"
)

const (
	// TypeDocumentConfirmed carries a confirmed-receipt event from the OCR
	// pipeline into the transaction engine.
	TypeDocumentConfirmed = "workflow:document_confirmed"

	// TypeExportSweep triggers one pass over the export retry queue.
	TypeExportSweep = "export:process_queue"
)

// exportSweepPayload bounds how many records one sweep run may claim.
type exportSweepPayload struct {
	BatchSize int `json:"batchSize"`
}

// NewDocumentConfirmedTask builds a task for one confirmed document event.
func NewDocumentConfirmedTask(evt dto.DocumentConfirmedEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDocumentConfirmed, payload), nil
}

// NewExportSweepTask builds a task for one retry-queue sweep.
func NewExportSweepTask(batchSize int) (*asynq.Task, error) {
	payload, err := json.Marshal(exportSweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExportSweep, payload), nil
}
