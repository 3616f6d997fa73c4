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

// splitEntryHandler handles HTTP requests for split-entry accounting.
type splitEntryHandler struct {
	splitService portssvc.SplitEntrySvcFacade
}

func newSplitEntryHandler(splitService portssvc.SplitEntrySvcFacade) *splitEntryHandler {
	return &splitEntryHandler{
		splitService: splitService,
	}
}

// createSplitEntry godoc
// @Summary Split a source document into balanced journal entries
// @Description Verifies the itemized sum against the document total and persists one entry per line item atomically
// @Tags split-entries
// @Accept  json
// @Produce  json
// @Param   split body dto.CreateSplitEntryRequest true "Split entry request"
// @Success 201 {object} dto.SplitEntryResponse "The persisted split group"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Source document not found"
// @Failure 422 {object} map[string]string "Items do not sum to the document total"
// @Router /split-entries/ [post]
func (h *splitEntryHandler) createSplitEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateSplitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for CreateSplitEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tenantID, _ := middleware.GetTenantIDFromContext(c)
	userID, _ := middleware.GetUserIDFromContext(c)
	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("document_id", req.SourceDocumentID))

	entries, err := h.splitService.CreateSplitEntry(c.Request.Context(), tenantID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Source document not found"})
		case errors.Is(err, apperrors.ErrFinancialIntegrity):
			logger.Warn("Split entry rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to create split entry", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create split entry"})
		}
		return
	}

	logger.Info("Split group persisted", slog.Int("entries", len(entries)))
	resp := dto.SplitEntryResponse{Entries: dto.ToTransactionResponses(entries)}
	if len(entries) > 0 && entries[0].SplitGroupID != nil {
		resp.SplitGroupID = *entries[0].SplitGroupID
	}
	c.JSON(http.StatusCreated, resp)
}

// getSplitEntries godoc
// @Summary Get a split group
// @Description Retrieves every entry of a split group, ordered by split index
// @Tags split-entries
// @Produce  json
// @Param   groupID path string true "Split group ID"
// @Success 200 {object} dto.SplitEntryResponse "The split group"
// @Failure 404 {object} map[string]string "Split group not found"
// @Router /split-entries/{groupID} [get]
func (h *splitEntryHandler) getSplitEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")
	tenantID, _ := middleware.GetTenantIDFromContext(c)

	entries, err := h.splitService.GetSplitEntries(c.Request.Context(), tenantID, groupID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Split group not found"})
			return
		}
		logger.Error("Failed to get split group", slog.String("error", err.Error()), slog.String("group_id", groupID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve split group"})
		return
	}

	c.JSON(http.StatusOK, dto.SplitEntryResponse{
		SplitGroupID: groupID,
		Entries:      dto.ToTransactionResponses(entries),
	})
}

// registerSplitEntryRoutes registers split-entry routes
func registerSplitEntryRoutes(group *gin.RouterGroup, splitService portssvc.SplitEntrySvcFacade) {
	handler := newSplitEntryHandler(splitService)

	splits := group.Group("/split-entries")
	{
		splits.POST("/", handler.createSplitEntry)
		splits.GET("/:groupID", handler.getSplitEntries)
	}
}
