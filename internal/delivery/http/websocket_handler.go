package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/query"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development; restrict in production
	},
}

// WebSocketHandler pushes progress snapshots for clients that prefer a live
// stream over polling.
type WebSocketHandler struct {
	service *query.Service
	logger  *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(service *query.Service, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  logger,
	}
}

// Stream handles GET /api/v1/jobs/:key/stream (WebSocket upgrade)
func (h *WebSocketHandler) Stream(c *gin.Context) {
	key := domain.ProgressKey(c.Param("key"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket connection opened", zap.String("progress_key", string(key)))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		rec, visible, err := h.service.Lookup(c.Request.Context(), key)
		if err != nil {
			conn.WriteJSON(gin.H{"error": "Progress lookup failed"})
			return
		}
		if !visible {
			// Registration may still be in flight; keep streaming.
			if err := conn.WriteJSON(gin.H{}); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(rec); err != nil {
			h.logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
			return
		}

		// Stop streaming once the job reaches a terminal state
		if rec.State.IsTerminal() {
			h.logger.Debug("Job reached terminal state, closing WebSocket",
				zap.String("progress_key", string(key)))
			return
		}
	}
}
