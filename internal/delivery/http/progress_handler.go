package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/query"
)

// ProgressHandler serves non-blocking progress lookups.
type ProgressHandler struct {
	service *query.Service
	logger  *zap.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(service *query.Service, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger,
	}
}

// Get handles GET /api/v1/progress?key=<ProgressKey>.
// An unknown key answers 200 with an empty body: absence of "state" means
// "not yet visible", which pollers treat like a job still running.
func (h *ProgressHandler) Get(c *gin.Context) {
	keyStr := c.Query("key")
	if keyStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing key parameter"})
		return
	}

	rec, visible, err := h.service.Lookup(c.Request.Context(), domain.ProgressKey(keyStr))
	if err != nil {
		h.logger.Error("Progress lookup failed", zap.Error(err), zap.String("progress_key", keyStr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !visible {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, rec)
}
