package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
	"github.com/ledgerline/receipt-backoffice/internal/middleware"
)

// transactionHandler handles HTTP requests for the transaction lifecycle.
type transactionHandler struct {
	txnService portssvc.TransactionSvcFacade
}

// newTransactionHandler creates a new transactionHandler.
func newTransactionHandler(txnService portssvc.TransactionSvcFacade) *transactionHandler {
	return &transactionHandler{
		txnService: txnService,
	}
}

// createDraft godoc
// @Summary Create a draft transaction
// @Description Validates and persists a new draft double-entry transaction
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transaction body dto.CreateTransactionRequest true "Draft transaction"
// @Success 201 {object} dto.TransactionResponse "The created draft"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 500 {object} map[string]string "Failed to create draft"
// @Router /transactions/ [post]
func (h *transactionHandler) createDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for CreateDraft", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)
	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("user_id", userID))

	txn, err := h.txnService.CreateDraft(c.Request.Context(), tenantID, req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating draft", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to create draft", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create draft"})
		return
	}

	logger.Info("Draft created", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// getTransaction godoc
// @Summary Get a transaction
// @Description Retrieves one transaction by ID
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse "The transaction"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Router /transactions/{transactionID} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)

	txn, err := h.txnService.GetTransactionByID(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		logger.Error("Failed to get transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction"})
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listTransactions godoc
// @Summary List transactions
// @Description Retrieves a paginated list of transactions, optionally filtered by status
// @Tags transactions
// @Produce  json
// @Param   status query string false "Status filter"
// @Param   limit query int false "Page size"
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListTransactionsResponse "A page of transactions"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Router /transactions/ [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, _ := middleware.GetTenantIDFromContext(c)

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	page, err := h.txnService.ListTransactions(c.Request.Context(), tenantID, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to list transactions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// updateDraft godoc
// @Summary Update a draft transaction
// @Description Changes the mutable fields of a draft; posted transactions are immutable
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   transaction body dto.UpdateTransactionRequest true "Fields to change"
// @Success 200 {object} dto.TransactionResponse "The updated draft"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not a draft"
// @Router /transactions/{transactionID} [put]
func (h *transactionHandler) updateDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)

	var req dto.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	txn, err := h.txnService.UpdateDraft(c.Request.Context(), tenantID, transactionID, req, userID)
	if err != nil {
		h.respondLifecycleError(c, logger, err, transactionID, "Failed to update draft")
		return
	}

	logger.Info("Draft updated", slog.String("transaction_id", transactionID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// deleteDraft godoc
// @Summary Delete a draft transaction
// @Description Removes a draft; any other status is rejected
// @Tags transactions
// @Param   transactionID path string true "Transaction ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not a draft"
// @Router /transactions/{transactionID} [delete]
func (h *transactionHandler) deleteDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.txnService.DeleteDraft(c.Request.Context(), tenantID, transactionID, userID); err != nil {
		h.respondLifecycleError(c, logger, err, transactionID, "Failed to delete draft")
		return
	}

	logger.Info("Draft deleted", slog.String("transaction_id", transactionID))
	c.Status(http.StatusNoContent)
}

// submitTransaction godoc
// @Summary Submit a draft for approval
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse "The pending transaction"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not a draft"
// @Router /transactions/{transactionID}/submit [post]
func (h *transactionHandler) submitTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)

	txn, err := h.txnService.SubmitForApproval(c.Request.Context(), tenantID, transactionID, userID)
	if err != nil {
		h.respondLifecycleError(c, logger, err, transactionID, "Failed to submit transaction")
		return
	}

	logger.Info("Transaction submitted for approval", slog.String("transaction_id", transactionID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// approveTransaction godoc
// @Summary Approve and post a transaction
// @Description Posts the transaction locally, then shadow-posts it to the external ledger best-effort
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse "The posted transaction"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not approvable"
// @Router /transactions/{transactionID}/approve [post]
func (h *transactionHandler) approveTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)

	txn, err := h.txnService.Approve(c.Request.Context(), tenantID, transactionID, userID)
	if err != nil {
		h.respondLifecycleError(c, logger, err, transactionID, "Failed to approve transaction")
		return
	}

	logger.Info("Transaction posted", slog.String("transaction_id", transactionID), slog.String("approved_by", userID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// voidTransaction godoc
// @Summary Void a posted transaction
// @Description Marks the transaction voided and atomically creates a reversal with swapped accounts
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   void body dto.VoidTransactionRequest true "Void reason"
// @Success 200 {object} dto.TransactionResponse "The voided transaction"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not posted"
// @Router /transactions/{transactionID}/void [post]
func (h *transactionHandler) voidTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)

	var req dto.VoidTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A void reason is required"})
		return
	}

	voided, err := h.txnService.Void(c.Request.Context(), tenantID, transactionID, req.Reason, userID)
	if err != nil {
		h.respondLifecycleError(c, logger, err, transactionID, "Failed to void transaction")
		return
	}

	logger.Info("Transaction voided", slog.String("transaction_id", transactionID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(voided))
}

// trialBalance godoc
// @Summary Trial balance report
// @Description Aggregates debits and credits per account; a nonzero difference is reported as an integrity failure
// @Tags transactions
// @Produce  json
// @Param   from query string false "Business date lower bound (YYYY-MM-DD)"
// @Param   to query string false "Business date upper bound (YYYY-MM-DD)"
// @Success 200 {object} domain.TrialBalanceReport "The balanced report"
// @Failure 500 {object} map[string]string "Trial balance does not balance"
// @Router /reports/trial-balance [get]
func (h *transactionHandler) trialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, _ := middleware.GetTenantIDFromContext(c)

	var params dto.TrialBalanceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	report, err := h.txnService.TrialBalance(c.Request.Context(), tenantID, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrFinancialIntegrity) {
			logger.Error("Trial balance does not balance", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
			return
		}
		logger.Error("Failed to compute trial balance", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute trial balance"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// respondLifecycleError maps lifecycle service errors onto HTTP statuses.
func (h *transactionHandler) respondLifecycleError(c *gin.Context, logger *slog.Logger, err error, transactionID string, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	case errors.Is(err, apperrors.ErrStateConflict):
		logger.Warn("Lifecycle state conflict", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// registerTransactionRoutes registers transaction lifecycle routes
func registerTransactionRoutes(group *gin.RouterGroup, txnService portssvc.TransactionSvcFacade) {
	handler := newTransactionHandler(txnService)

	transactions := group.Group("/transactions")
	{
		transactions.POST("/", handler.createDraft)
		transactions.GET("/", handler.listTransactions)
		transactions.GET("/:transactionID", handler.getTransaction)
		transactions.PUT("/:transactionID", handler.updateDraft)
		transactions.DELETE("/:transactionID", handler.deleteDraft)
		transactions.POST("/:transactionID/submit", handler.submitTransaction)
		transactions.POST("/:transactionID/approve", handler.approveTransaction)
		transactions.POST("/:transactionID/void", handler.voidTransaction)
	}

	reports := group.Group("/reports")
	{
		reports.GET("/trial-balance", handler.trialBalance)
	}
}
