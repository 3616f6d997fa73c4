package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
	"github.com/ledgerline/receipt-backoffice/internal/middleware"
)

// exportHandler handles HTTP requests for the export retry queue.
type exportHandler struct {
	exportService portssvc.ExportSvcFacade
}

func newExportHandler(exportService portssvc.ExportSvcFacade) *exportHandler {
	return &exportHandler{
		exportService: exportService,
	}
}

// exportTransaction godoc
// @Summary Queue a posted transaction for export
// @Description Creates a pending export record; the retry queue delivers it to the external accounting system
// @Tags exports
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 202 {object} dto.ExportRecordResponse "The queued export record"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not posted"
// @Router /transactions/{transactionID}/export [post]
func (h *exportHandler) exportTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)

	rec, err := h.exportService.ExportTransaction(c.Request.Context(), tenantID, transactionID, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		case errors.Is(err, apperrors.ErrStateConflict):
			logger.Warn("Export rejected", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to queue export", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue export"})
		}
		return
	}

	logger.Info("Export queued", slog.String("export_id", rec.ExportID), slog.String("transaction_id", transactionID))
	c.JSON(http.StatusAccepted, dto.ToExportRecordResponse(rec))
}

// getExportHistory godoc
// @Summary Export attempt history for a transaction
// @Tags exports
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {array} dto.ExportRecordResponse "Attempt lineage, newest first"
// @Router /transactions/{transactionID}/exports [get]
func (h *exportHandler) getExportHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)

	records, err := h.exportService.GetExportHistory(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		logger.Error("Failed to get export history", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve export history"})
		return
	}

	c.JSON(http.StatusOK, dto.ToExportRecordResponses(records))
}

// processRetryQueue godoc
// @Summary Run one pass of the export retry queue
// @Description Claims due records and attempts delivery once per record; normally invoked by the scheduler
// @Tags exports
// @Produce  json
// @Param   batchSize query int false "Maximum records to claim"
// @Success 200 {object} dto.RetryQueueResult "Processing summary"
// @Router /exports/process [post]
func (h *exportHandler) processRetryQueue(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	batchSize := 0
	if raw := c.Query("batchSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batchSize must be a positive integer"})
			return
		}
		batchSize = n
	}

	result, err := h.exportService.ProcessRetryQueue(c.Request.Context(), batchSize)
	if err != nil {
		logger.Error("Retry queue run failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process retry queue"})
		return
	}

	logger.Info("Retry queue run finished",
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	)
	c.JSON(http.StatusOK, result)
}

// syncLag godoc
// @Summary Reconciliation lag between local state and external systems
// @Tags exports
// @Produce  json
// @Success 200 {object} dto.SyncLagResponse "Drift counters"
// @Router /sync/lag [get]
func (h *exportHandler) syncLag(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, _ := middleware.GetTenantIDFromContext(c)

	lag, err := h.exportService.SyncLag(c.Request.Context(), tenantID)
	if err != nil {
		logger.Error("Failed to compute sync lag", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute sync lag"})
		return
	}

	c.JSON(http.StatusOK, lag)
}

// registerExportRoutes registers export queue routes
func registerExportRoutes(group *gin.RouterGroup, exportService portssvc.ExportSvcFacade) {
	handler := newExportHandler(exportService)

	group.POST("/transactions/:transactionID/export", handler.exportTransaction)
	group.GET("/transactions/:transactionID/exports", handler.getExportHistory)

	exports := group.Group("/exports")
	{
		exports.POST("/process", handler.processRetryQueue)
	}

	group.GET("/sync/lag", handler.syncLag)
}
