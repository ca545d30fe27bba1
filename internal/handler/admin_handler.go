package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drakeRAGE/movie-recommendation-app/internal/model"
	"github.com/drakeRAGE/movie-recommendation-app/internal/storage"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	calls  storage.CallRepository
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(calls storage.CallRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		calls:  calls,
		logger: logger,
	}
}

// Stats returns audited call counts, per outcome.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.calls.Count(ctx)
	if err != nil {
		h.logger.Error("counting completion calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	counts, err := h.calls.CountByOutcome(ctx)
	if err != nil {
		h.logger.Error("counting completion calls by outcome", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	// Report every outcome, zeros included, so dashboards see a stable shape.
	byOutcome := make(gin.H, len(model.AllOutcomes))
	for _, o := range model.AllOutcomes {
		byOutcome[string(o)] = counts[o]
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"outcomes": byOutcome,
	})
}

// Recent lists the latest audited calls, newest first.
// Route: GET /api/v1/admin/calls?limit=20
func (h *AdminHandler) Recent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRecentLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid limit: must be between 1 and " + strconv.Itoa(maxRecentLimit),
			})
			return
		}
		limit = n
	}

	calls, err := h.calls.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing completion calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if calls == nil {
		calls = []model.CompletionCall{}
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

// Call looks up one audited call by the request ID returned in X-Request-ID,
// so a user-reported failure can be traced to its outcome.
// Route: GET /api/v1/admin/calls/:request_id
func (h *AdminHandler) Call(c *gin.Context) {
	requestID := c.Param("request_id")

	call, err := h.calls.GetByRequestID(c.Request.Context(), requestID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		h.logger.Error("getting completion call",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, call)
}
