package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/requestdata"
	"github.com/yungbote/shopfloor-backend/internal/sse"
)

// SSEHandler streams shop-floor events to stations. Every stream joins
// the floor channel; job channels are joined per subscribe call.
type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*sse.SSEClient // key: operator ID, one stream per operator
}

func NewSSEHandler(baseLog *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log:     baseLog.With("handler", "SSEHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*sse.SSEClient),
	}
}

func (h *SSEHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.OperatorID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	h.mu.Lock()
	if existing, ok := h.clients[rd.OperatorID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, rd.OperatorID)
	}
	client := h.hub.NewSSEClient(rd.OperatorID)
	h.clients[rd.OperatorID] = client
	h.mu.Unlock()

	h.hub.AddChannel(client, sse.FloorChannel)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	delete(h.clients, rd.OperatorID)
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

type sseChannelRequest struct {
	JobID uuid.UUID `json:"job_id" binding:"required"`
}

func (h *SSEHandler) Subscribe(c *gin.Context) {
	h.changeSubscription(c, h.hub.AddChannel)
}

func (h *SSEHandler) Unsubscribe(c *gin.Context) {
	h.changeSubscription(c, h.hub.RemoveChannel)
}

func (h *SSEHandler) changeSubscription(c *gin.Context, apply func(*sse.SSEClient, string)) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.OperatorID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	var req sseChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	h.mu.RLock()
	client, exists := h.clients[rd.OperatorID]
	h.mu.RUnlock()
	if !exists {
		c.JSON(http.StatusConflict, gin.H{"error": "no active event stream"})
		return
	}
	apply(client, sse.JobChannel(req.JobID))
	RespondOK(c, gin.H{"channel": sse.JobChannel(req.JobID)})
}
